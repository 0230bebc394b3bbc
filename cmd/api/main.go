package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"medbot-ai/internal/config"
	"medbot-ai/internal/escalation"
	"medbot-ai/internal/http"
	"medbot-ai/internal/indexer"
	"medbot-ai/internal/kb"
	"medbot-ai/internal/llm"
	"medbot-ai/internal/pipeline"
	"medbot-ai/internal/ranking"
	"medbot-ai/internal/retrieval"
	"medbot-ai/internal/storage"
	"medbot-ai/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	kbRepo := storage.NewKBRepo(db)
	documentRepo := storage.NewDocumentRepo(db)
	passageRepo := storage.NewPassageRepo(db)

	ctx := context.Background()

	// Seed the knowledge base from a JSON export when one is configured
	if cfg.KBSeedPath != "" {
		if err := kb.Seed(ctx, kbRepo, cfg.KBSeedPath); err != nil {
			log.Fatalf("Failed to seed knowledge base: %v", err)
		}
		slog.Info("Knowledge base seeded", "path", cfg.KBSeedPath)
	}

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Create the guideline ingestion pipeline
	ingestion := indexer.NewPipeline(
		cfg.GuidelinesPath,
		documentRepo,
		passageRepo,
		embedder,
		vectorStore,
		cfg.QdrantCollection,
	)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Escalation channel: webhook when configured, log-only otherwise
	var notifier escalation.Notifier
	if cfg.EscalationURL != "" {
		notifier = escalation.NewWebhookNotifier(cfg.EscalationURL, 10*time.Second)
		slog.Info("Escalation webhook configured")
	} else {
		notifier = escalation.NoopNotifier{}
		slog.Warn("No escalation webhook configured, emergency events are log-only")
	}

	// Assemble the answer pipeline
	router := retrieval.NewRouter(cfg.RecencyCutoffDays).WithGeneralTopK(cfg.TopK)
	retriever := retrieval.NewRetriever(embedder, vectorStore, cfg.QdrantCollection, cfg.CallTimeout, cfg.RetryCount, cfg.BackoffBase)
	ranker := ranking.NewRanker(cfg.MMRLambda, cfg.ContextBudget, cfg.RecencyCutoffDays)
	knowledgeBase := kb.NewAccessor(kbRepo)

	answerPipeline := pipeline.New(router, retriever, ranker, knowledgeBase, llmClient, notifier, pipeline.Options{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MaxReroutes:         cfg.MaxReroutes,
		CallTimeout:         cfg.CallTimeout,
		RetryCount:          cfg.RetryCount,
		BackoffBase:         cfg.BackoffBase,
	})
	slog.Info("Answer pipeline initialized")

	stats := indexer.NewStatsCollector(documentRepo, vectorStore, cfg.QdrantCollection)

	// Create router with dependencies
	deps := &http.Deps{
		Asker:   answerPipeline,
		Corpus:  stats,
		KB:      knowledgeBase,
		Indexer: ingestion,
	}
	httpRouter := http.NewRouter(deps)

	// Start guideline ingestion in background after the router is ready
	if cfg.GuidelinesPath != "" {
		go func() {
			indexCtx := context.Background()
			slog.Info("Starting background ingestion of guidelines", "path", cfg.GuidelinesPath)
			if err := ingestion.IndexAll(indexCtx); err != nil {
				slog.Error("Ingestion completed with errors", "error", err)
			} else {
				slog.Info("Ingestion completed successfully")
			}
		}()
	} else {
		slog.Warn("No guidelines path configured, skipping ingestion")
	}

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, httpRouter); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
