package indexer

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	storage_mocks "medbot-ai/internal/storage/mocks"
	"medbot-ai/internal/vectorstore"
)

type fakeInspector struct {
	info *vectorstore.CollectionInfo
	err  error
}

func (f *fakeInspector) GetCollectionInfo(ctx context.Context, collection string) (*vectorstore.CollectionInfo, error) {
	return f.info, f.err
}

func TestStatsCollectorCollect(t *testing.T) {
	ctrl := gomock.NewController(t)
	documentRepo := storage_mocks.NewMockDocumentStore(ctrl)
	documentRepo.EXPECT().Count(gomock.Any()).Return(12, nil)

	inspector := &fakeInspector{info: &vectorstore.CollectionInfo{
		VectorSize:  768,
		PointsCount: 84,
		Status:      "Green",
	}}

	collector := NewStatsCollector(documentRepo, inspector, "guidelines")
	stats, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if stats.Documents != 12 {
		t.Errorf("Documents = %d, want 12", stats.Documents)
	}
	if stats.Passages != 84 {
		t.Errorf("Passages = %d, want 84", stats.Passages)
	}
	if stats.VectorSize != 768 {
		t.Errorf("VectorSize = %d, want 768", stats.VectorSize)
	}
	if stats.Status != "Green" {
		t.Errorf("Status = %q, want Green", stats.Status)
	}
}

func TestStatsCollectorCollectionUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	documentRepo := storage_mocks.NewMockDocumentStore(ctrl)
	documentRepo.EXPECT().Count(gomock.Any()).Return(3, nil)

	inspector := &fakeInspector{err: errors.New("connection refused")}
	collector := NewStatsCollector(documentRepo, inspector, "guidelines")

	if _, err := collector.Collect(context.Background()); err == nil {
		t.Error("expected error when collection info is unavailable")
	}
}
