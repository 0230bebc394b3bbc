package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"medbot-ai/internal/contextutil"
	"medbot-ai/internal/llm"
	"medbot-ai/internal/pipeline"
	"medbot-ai/internal/query"
	"medbot-ai/internal/vectorstore"
)

// maxQuestionRunes bounds the accepted question length.
const maxQuestionRunes = 2000

// Asker answers one medical question end to end.
type Asker interface {
	Answer(ctx context.Context, q query.Query) (pipeline.Response, error)
}

// AskHandler handles HTTP requests for medical questions.
type AskHandler struct {
	asker Asker
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(asker Asker) *AskHandler {
	return &AskHandler{asker: asker}
}

// AskRequest is the HTTP request payload for a question. Intent and entities
// are optional annotations from an upstream NLU front end.
type AskRequest struct {
	Question string          `json:"question"`
	Intent   string          `json:"intent,omitempty"`
	Entities EntitiesRequest `json:"entities,omitempty"`
}

// EntitiesRequest carries extracted medical entities.
type EntitiesRequest struct {
	Medications []string `json:"medications,omitempty"`
	Conditions  []string `json:"conditions,omitempty"`
}

// AskResponse is the HTTP response payload for a question.
type AskResponse struct {
	Answer     string           `json:"answer"`
	Sources    []SourceResponse `json:"sources"`
	Confidence float64          `json:"confidence"`
	Emergency  bool             `json:"emergency"`
	Trigger    string           `json:"trigger,omitempty"`
}

// SourceResponse is one provenance entry in the response.
type SourceResponse struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for medical questions.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Question == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}
	if utf8.RuneCountInString(req.Question) > maxQuestionRunes {
		logger.WarnContext(ctx, "question too long", "runes", utf8.RuneCountInString(req.Question))
		writeError(w, http.StatusBadRequest, "Question is too long")
		return
	}

	q := query.Query{
		Text:   req.Question,
		Intent: req.Intent,
		Entities: query.Entities{
			Medications: req.Entities.Medications,
			Conditions:  req.Entities.Conditions,
		},
	}

	resp, err := h.asker.Answer(ctx, q)
	if err != nil {
		handlePipelineError(w, r, err)
		return
	}

	sources := make([]SourceResponse, len(resp.Sources))
	for i, source := range resp.Sources {
		sources[i] = SourceResponse{Name: source.Name, Confidence: source.Confidence}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(AskResponse{
		Answer:     resp.Answer,
		Sources:    sources,
		Confidence: resp.Confidence,
		Emergency:  resp.Emergency,
		Trigger:    resp.Trigger,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handlePipelineError maps pipeline errors to HTTP status codes.
func handlePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "pipeline error", "error", err)

	switch {
	case errors.Is(err, vectorstore.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Vector index unavailable")
	case errors.Is(err, llm.ErrRateLimited), errors.Is(err, llm.ErrTimeout), errors.Is(err, llm.ErrContentPolicy):
		writeError(w, http.StatusBadGateway, "Language model service error")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to process question")
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
