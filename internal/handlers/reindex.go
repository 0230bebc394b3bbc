package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"medbot-ai/internal/contextutil"
)

// Indexer re-ingests the guideline corpus.
type Indexer interface {
	IndexAll(ctx context.Context) error
}

// ReindexHandler handles HTTP requests for triggering re-ingestion.
type ReindexHandler struct {
	indexer Indexer
}

// NewReindexHandler creates a new ReindexHandler.
func NewReindexHandler(indexer Indexer) *ReindexHandler {
	return &ReindexHandler{indexer: indexer}
}

// ReindexResponse represents the response from the reindex endpoint.
type ReindexResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ServeHTTP handles HTTP requests for triggering re-ingestion. The work runs
// in a goroutine detached from the request lifetime; the handler returns
// 202 Accepted immediately.
func (h *ReindexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	logger.InfoContext(ctx, "re-ingestion triggered via API")

	indexCtx := context.WithoutCancel(ctx)
	go func() {
		if err := h.indexer.IndexAll(indexCtx); err != nil {
			logger.ErrorContext(indexCtx, "re-ingestion completed with errors", "error", err)
			return
		}
		logger.InfoContext(indexCtx, "re-ingestion completed")
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(ReindexResponse{
		Message: "Ingestion started. Check server logs for progress.",
		Status:  "accepted",
	})
}
