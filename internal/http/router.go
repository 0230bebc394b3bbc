package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"medbot-ai/internal/handlers"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Asker   handlers.Asker
	Corpus  handlers.CorpusReporter
	KB      handlers.KBReporter
	Indexer handlers.Indexer
}

// NewRouter creates the HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.Asker)
	healthHandler := handlers.NewHealthHandler(deps.Corpus, deps.KB)
	reindexHandler := handlers.NewReindexHandler(deps.Indexer)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Method(http.MethodPost, "/reindex", reindexHandler)
	})

	return r
}
