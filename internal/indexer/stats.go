package indexer

import (
	"context"
	"fmt"

	"medbot-ai/internal/storage"
	"medbot-ai/internal/vectorstore"
)

// CorpusStats summarizes the indexed guideline corpus.
type CorpusStats struct {
	Documents  int    `json:"documents"`
	Passages   int    `json:"passages"`
	VectorSize int    `json:"vector_size"`
	Status     string `json:"status"`
}

// CollectionInspector exposes the vector collection metadata needed for
// corpus stats. *vectorstore.QdrantStore satisfies it.
type CollectionInspector interface {
	GetCollectionInfo(ctx context.Context, collection string) (*vectorstore.CollectionInfo, error)
}

// StatsCollector reports corpus stats from the document registry and the
// vector collection.
type StatsCollector struct {
	documentRepo storage.DocumentStore
	inspector    CollectionInspector
	collection   string
}

// NewStatsCollector creates a stats collector for the given collection.
func NewStatsCollector(documentRepo storage.DocumentStore, inspector CollectionInspector, collection string) *StatsCollector {
	return &StatsCollector{
		documentRepo: documentRepo,
		inspector:    inspector,
		collection:   collection,
	}
}

// Collect gathers the current corpus stats. The passage count comes from the
// vector collection so a drift between registry and index is visible.
func (s *StatsCollector) Collect(ctx context.Context) (*CorpusStats, error) {
	documents, err := s.documentRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	info, err := s.inspector.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}

	return &CorpusStats{
		Documents:  documents,
		Passages:   info.PointsCount,
		VectorSize: info.VectorSize,
		Status:     info.Status,
	}, nil
}
