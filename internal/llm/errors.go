package llm

import "errors"

// Typed failures returned by the chat and embeddings clients.
// ErrRateLimited and ErrTimeout are transient and safe to retry with backoff.
// ErrContentPolicy is permanent; retrying the same request cannot succeed.
var (
	ErrRateLimited   = errors.New("llm: rate limited")
	ErrTimeout       = errors.New("llm: request timed out")
	ErrContentPolicy = errors.New("llm: request rejected by content policy")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}
