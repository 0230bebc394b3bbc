package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"medbot-ai/internal/contextutil"
	"medbot-ai/internal/indexer"
)

// CorpusReporter reports the indexed corpus state. *indexer.StatsCollector
// satisfies it.
type CorpusReporter interface {
	Collect(ctx context.Context) (*indexer.CorpusStats, error)
}

// KBReporter reports the knowledge base inventory. *kb.Accessor satisfies it.
type KBReporter interface {
	Stats(ctx context.Context) (interactions int, protocols int, err error)
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	corpus             CorpusReporter
	kbase              KBReporter
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(corpus CorpusReporter, kbase KBReporter) *HealthHandler {
	return &HealthHandler{
		corpus:             corpus,
		kbase:              kbase,
		healthCheckTimeout: 5 * time.Second,
	}
}

// KBStats is the knowledge base portion of the health response.
type KBStats struct {
	Interactions int `json:"interactions"`
	Protocols    int `json:"protocols"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`

	// Corpus holds the indexed corpus stats when the index is reachable.
	Corpus *indexer.CorpusStats `json:"corpus,omitempty"`

	// KB holds the knowledge base entry counts when the store is reachable.
	KB *KBStats `json:"kb,omitempty"`

	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
// Returns 200 OK if healthy, 503 Service Unavailable otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	httpStatus := http.StatusOK

	stats, err := h.corpus.Collect(checkCtx)
	if err != nil {
		logger.WarnContext(ctx, "corpus health check failed", "error", err)
		response.Status = "unhealthy"
		response.Issues = append(response.Issues, "vector_index_unavailable")
		httpStatus = http.StatusServiceUnavailable
	} else {
		response.Corpus = stats
	}

	interactions, protocols, err := h.kbase.Stats(checkCtx)
	if err != nil {
		logger.WarnContext(ctx, "knowledge base health check failed", "error", err)
		response.Status = "unhealthy"
		response.Issues = append(response.Issues, "knowledge_base_unavailable")
		httpStatus = http.StatusServiceUnavailable
	} else {
		response.KB = &KBStats{Interactions: interactions, Protocols: protocols}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}
