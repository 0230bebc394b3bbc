package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	DBPath             string
	QdrantURL          string
	QdrantCollection   string
	QdrantVectorSize   int
	GuidelinesPath     string
	KBSeedPath         string
	EscalationURL      string
	APIPort            string

	// Retrieval and ranking policy. The cutoffs and weights here are
	// policy defaults, not contracts; tune them per deployment.
	TopK                int
	MMRLambda           float64
	RecencyCutoffDays   int
	ConfidenceThreshold float64
	MaxReroutes         int
	ContextBudget       int

	// External call behavior.
	CallTimeout time.Duration
	RetryCount  int
	BackoffBase time.Duration

	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded
// automatically. Environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up toward the project root looking for a .env file.
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		DBPath:             getEnv("DB_PATH", "./data/medbot-ai.db"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "medical-knowledge"),
		GuidelinesPath:     getEnv("GUIDELINES_PATH", ""),
		KBSeedPath:         getEnv("KB_SEED_PATH", ""),
		EscalationURL:      getEnv("ESCALATION_WEBHOOK_URL", ""),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	// QDRANT_VECTOR_SIZE must match the output vector size of the embeddings
	// model. If the size changes, the Qdrant collection must be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	if cfg.TopK, err = getEnvInt("RETRIEVAL_TOP_K", 5); err != nil {
		return nil, err
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("RETRIEVAL_TOP_K must be greater than 0")
	}
	if cfg.MMRLambda, err = getEnvFloat("MMR_LAMBDA", 0.5); err != nil {
		return nil, err
	}
	if cfg.MMRLambda < 0 || cfg.MMRLambda > 1 {
		return nil, fmt.Errorf("MMR_LAMBDA must be in [0,1]")
	}
	if cfg.RecencyCutoffDays, err = getEnvInt("RECENCY_CUTOFF_DAYS", 0); err != nil {
		return nil, err
	}
	if cfg.RecencyCutoffDays < 0 {
		return nil, fmt.Errorf("RECENCY_CUTOFF_DAYS must not be negative")
	}
	if cfg.ConfidenceThreshold, err = getEnvFloat("CONFIDENCE_THRESHOLD", 0.5); err != nil {
		return nil, err
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("CONFIDENCE_THRESHOLD must be in [0,1]")
	}
	if cfg.MaxReroutes, err = getEnvInt("MAX_REROUTES", 2); err != nil {
		return nil, err
	}
	if cfg.MaxReroutes < 0 {
		return nil, fmt.Errorf("MAX_REROUTES must not be negative")
	}
	if cfg.ContextBudget, err = getEnvInt("CONTEXT_BUDGET_CHARS", 4000); err != nil {
		return nil, err
	}
	if cfg.ContextBudget <= 0 {
		return nil, fmt.Errorf("CONTEXT_BUDGET_CHARS must be greater than 0")
	}

	timeoutMS, err := getEnvInt("CALL_TIMEOUT_MS", 3000)
	if err != nil {
		return nil, err
	}
	if timeoutMS <= 0 {
		return nil, fmt.Errorf("CALL_TIMEOUT_MS must be greater than 0")
	}
	cfg.CallTimeout = time.Duration(timeoutMS) * time.Millisecond

	if cfg.RetryCount, err = getEnvInt("RETRY_COUNT", 2); err != nil {
		return nil, err
	}
	if cfg.RetryCount < 0 {
		return nil, fmt.Errorf("RETRY_COUNT must not be negative")
	}
	backoffMS, err := getEnvInt("BACKOFF_BASE_MS", 200)
	if err != nil {
		return nil, err
	}
	if backoffMS <= 0 {
		return nil, fmt.Errorf("BACKOFF_BASE_MS must be greater than 0")
	}
	cfg.BackoffBase = time.Duration(backoffMS) * time.Millisecond

	switch strings.ToLower(getEnv("LOG_LEVEL", "info")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info":
		cfg.LogLevel = slog.LevelInfo
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	// Create the data directory if it doesn't exist.
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

// getEnvFloat gets a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return parsed, nil
}
