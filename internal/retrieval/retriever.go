package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"medbot-ai/internal/contextutil"
	"medbot-ai/internal/llm"
	"medbot-ai/internal/vectorstore"
)

// Embedder turns query text into vectors for similarity search.
//
//go:generate mockgen -destination=mocks/mock_embedder.go -package=mocks medbot-ai/internal/retrieval Embedder
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever runs routed requests against the vector index. Requests from a
// single route execute concurrently; the merged result is deterministic
// regardless of completion order.
type Retriever struct {
	embedder    Embedder
	store       vectorstore.VectorStore
	collection  string
	callTimeout time.Duration
	retryCount  int
	backoffBase time.Duration
}

// NewRetriever creates a retriever.
func NewRetriever(embedder Embedder, store vectorstore.VectorStore, collection string, callTimeout time.Duration, retryCount int, backoffBase time.Duration) *Retriever {
	return &Retriever{
		embedder:    embedder,
		store:       store,
		collection:  collection,
		callTimeout: callTimeout,
		retryCount:  retryCount,
		backoffBase: backoffBase,
	}
}

// Retrieve embeds the request texts, fans the searches out concurrently, and
// merges the results sorted by non-increasing similarity. Transient failures
// (index unreachable, rate limits, timeouts) are retried with exponential
// backoff; any search still failing makes the whole call fail so the caller
// can fall back to knowledge-base-only operation. Zero results is not a
// failure.
func (r *Retriever) Retrieve(ctx context.Context, requests []Request) ([]Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(requests) == 0 {
		return nil, nil
	}

	vectors, err := r.embedRequests(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	perRequest := make([][]vectorstore.SearchResult, len(requests))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, request := range requests {
		group.Go(func() error {
			var results []vectorstore.SearchResult
			err := r.withRetry(groupCtx, func(callCtx context.Context) error {
				var searchErr error
				results, searchErr = r.store.Search(callCtx, r.collection, vectors[request.Text], request.TopK, request.Filter)
				return searchErr
			})
			if err != nil {
				return fmt.Errorf("search %d/%d failed: %w", i+1, len(requests), err)
			}
			perRequest[i] = results
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "requests", len(requests), "error", err)
		return nil, err
	}

	// Concatenate in request order before sorting so the merge does not
	// depend on goroutine completion order.
	var documents []Document
	for _, results := range perRequest {
		for _, result := range results {
			documents = append(documents, documentFromResult(result))
		}
	}
	sort.SliceStable(documents, func(a, b int) bool {
		return documents[a].Similarity > documents[b].Similarity
	})

	logger.InfoContext(ctx, "retrieval completed", "requests", len(requests), "documents", len(documents))
	return documents, nil
}

// embedRequests embeds each distinct request text once.
func (r *Retriever) embedRequests(ctx context.Context, requests []Request) (map[string][]float32, error) {
	var texts []string
	seen := make(map[string]bool)
	for _, request := range requests {
		if !seen[request.Text] {
			seen[request.Text] = true
			texts = append(texts, request.Text)
		}
	}

	var embedded [][]float32
	err := r.withRetry(ctx, func(callCtx context.Context) error {
		var embedErr error
		embedded, embedErr = r.embedder.EmbedTexts(callCtx, texts)
		return embedErr
	})
	if err != nil {
		return nil, err
	}

	vectors := make(map[string][]float32, len(texts))
	for i, text := range texts {
		vectors[text] = embedded[i]
	}
	return vectors, nil
}

// withRetry runs fn under the per-call timeout, retrying transient failures
// with exponential backoff. Semantic failures are returned immediately.
func (r *Retriever) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.retryCount; attempt++ {
		if attempt > 0 {
			backoff := r.backoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) {
			return err
		}
	}
	return lastErr
}

func isTransient(err error) bool {
	return errors.Is(err, vectorstore.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		llm.IsTransient(err)
}

// documentFromResult converts an index hit into a Document. Similarity is
// clamped to [0,1]; cosine scores can run slightly negative.
func documentFromResult(result vectorstore.SearchResult) Document {
	doc := Document{
		SourceID:    result.PointID,
		SourceName:  metaString(result.Meta, "source"),
		Text:        metaString(result.Meta, "text"),
		Heading:     metaString(result.Meta, "heading_path"),
		Category:    metaString(result.Meta, "category"),
		Similarity:  float64(result.Score),
		Credibility: metaFloat(result.Meta, "credibility"),
	}
	if doc.Similarity < 0 {
		doc.Similarity = 0
	}
	if doc.Similarity > 1 {
		doc.Similarity = 1
	}
	if ts := metaFloat(result.Meta, "updated_at"); ts > 0 {
		doc.UpdatedAt = time.Unix(int64(ts), 0).UTC()
	}
	return doc
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func metaFloat(meta map[string]any, key string) float64 {
	switch v := meta[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}
