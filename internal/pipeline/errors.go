package pipeline

import "errors"

var (
	// ErrRetrievalFailure means the vector index could not be queried at
	// all; distinct from a query that matched nothing.
	ErrRetrievalFailure = errors.New("retrieval failed")

	// ErrGenerationFailure means the language model call failed after
	// retries.
	ErrGenerationFailure = errors.New("generation failed")

	// ErrNoContext means neither the knowledge base nor the vector index
	// produced any grounding material.
	ErrNoContext = errors.New("no context available")
)
