package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks medbot-ai/internal/vectorstore VectorStore

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the vector index cannot be reached or the
// call times out. It is distinct from a search that returns zero results,
// which is not an error.
var ErrUnavailable = errors.New("vector index unavailable")

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// Filter is the closed set of metadata constraints a search may carry.
// Using a struct instead of a string-keyed map makes an invalid filter
// field a compile-time error rather than a silent no-op.
type Filter struct {
	// Medications restricts results to passages tagged with any of these
	// medication names.
	Medications []string
	// Conditions restricts results to passages tagged with any of these
	// condition names.
	Conditions []string
	// Category restricts results to a single document category.
	Category string
	// MaxAgeDays restricts results to passages updated within the window.
	// Zero means unbounded.
	MaxAgeDays int
}

// IsZero reports whether the filter carries no constraints.
func (f Filter) IsZero() bool {
	return len(f.Medications) == 0 && len(f.Conditions) == 0 && f.Category == "" && f.MaxAgeDays == 0
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search honoring every filter constraint.
	// Results are ordered by non-increasing score; length is at most k.
	// Unreachable-index and timeout failures wrap ErrUnavailable.
	Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error
}
