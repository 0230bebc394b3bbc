package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeIndexer struct {
	started chan struct{}
	err     error
}

func (f *fakeIndexer) IndexAll(ctx context.Context) error {
	close(f.started)
	return f.err
}

func TestReindexHandlerAccepts(t *testing.T) {
	indexer := &fakeIndexer{started: make(chan struct{})}
	handler := NewReindexHandler(indexer)

	req := httptest.NewRequest(http.MethodPost, "/api/reindex", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	var resp ReindexResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "accepted" {
		t.Errorf("Status = %q, want accepted", resp.Status)
	}

	select {
	case <-indexer.started:
	case <-time.After(time.Second):
		t.Fatal("IndexAll was not started")
	}
}

func TestReindexHandlerMethodNotAllowed(t *testing.T) {
	handler := NewReindexHandler(&fakeIndexer{started: make(chan struct{})})

	req := httptest.NewRequest(http.MethodGet, "/api/reindex", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
