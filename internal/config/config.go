package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/context-rag/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr           string        `env:"SERVER_ADDR,notEmpty" envDefault:":8080"`
	ServerRequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"60s"`
	CORSAllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Database configuration. Empty URL keeps the context registry in memory.
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Pipeline configuration
	RAGCfg RAGConfig `envPrefix:"RAG_"`

	// External service configurations
	EmbeddingCfg EmbeddingConfig `envPrefix:"EMBEDDING_"`
	LLMCfg       LLMConfig       `envPrefix:"LLM_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty" envDefault:"info"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Environment (set from flag, not from env var)
	Environment string
}

type RAGConfig struct {
	ChunkSize           int           `env:"CHUNK_SIZE" envDefault:"800"`
	ChunkMode           string        `env:"CHUNK_MODE" envDefault:"sentence"`
	MinChunkChars       int           `env:"MIN_CHUNK_CHARS" envDefault:"10"`
	TopK                int           `env:"TOP_K" envDefault:"3"`
	Strategy            string        `env:"STRATEGY" envDefault:"hybrid"`
	MinScore            float64       `env:"MIN_SCORE" envDefault:"0"`
	MaxContextChars     int           `env:"MAX_CONTEXT_CHARS" envDefault:"2000"`
	EmbedBatchSize      int           `env:"EMBED_BATCH_SIZE" envDefault:"3"`
	EmbedBatchDelay     time.Duration `env:"EMBED_BATCH_DELAY" envDefault:"100ms"`
	IngestConcurrency   int           `env:"INGEST_CONCURRENCY" envDefault:"4"`
	QuickMatchRulesFile string        `env:"QUICK_MATCH_RULES_FILE"`
	ContextsFile        string        `env:"CONTEXTS_FILE"`
	ContextCacheTTL     time.Duration `env:"CONTEXT_CACHE_TTL" envDefault:"5m"`
}

type EmbeddingConfig struct {
	HTTPClientConfig
	Provider      string               `env:"PROVIDER" envDefault:"ollama"`
	Model         string               `env:"MODEL" envDefault:"nomic-embed-text"`
	Endpoint      string               `env:"ENDPOINT" envDefault:"/api/embeddings"`
	CallTimeout   time.Duration        `env:"CALL_TIMEOUT" envDefault:"10s"`
	MaxInputChars int                  `env:"MAX_INPUT_CHARS" envDefault:"8000"`
	Fallback      bool                 `env:"FALLBACK" envDefault:"true"`
	CacheSize     int                  `env:"CACHE_SIZE" envDefault:"1024"`
	RateLimit     float64              `env:"RATE_LIMIT" envDefault:"0"`
	RateBurst     int                  `env:"RATE_BURST" envDefault:"3"`
	Breaker       BreakerConfig        `envPrefix:"BREAKER_"`
	Retry         pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type LLMConfig struct {
	HTTPClientConfig
	Provider            string               `env:"PROVIDER" envDefault:"openai"`
	Model               string               `env:"MODEL" envDefault:"gpt-4o"`
	MaxTokens           int                  `env:"MAX_TOKENS" envDefault:"150"`
	Temperature         float32              `env:"TEMPERATURE" envDefault:"0.1"`
	SuggestionMaxTokens int                  `env:"SUGGESTION_MAX_TOKENS" envDefault:"200"`
	Retry               pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `env:"MAX_REQUESTS" envDefault:"1"`
	Interval         time.Duration `env:"INTERVAL" envDefault:"30s"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"30s"`
	FailureThreshold uint32        `env:"FAILURE_THRESHOLD" envDefault:"5"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"5s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"30s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"5242880"`    // 5 MiB
	MaxTotalSize  int64 `env:"MAX_TOTAL_SIZE" envDefault:"26214400"`  // 25 MiB
	MaxFileCount  int   `env:"MAX_FILE_COUNT" envDefault:"64"`        // Max 64 files
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"` // 32 MiB
}

// LoadConfig reads .env.<environment> if present and parses the process environment
func LoadConfig(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	// Pipeline
	if cfg.RAGCfg.ChunkSize < 50 || cfg.RAGCfg.ChunkSize > 8000 {
		errors = append(errors, fmt.Sprintf("RAG_CHUNK_SIZE must be between 50 and 8000, got %d", cfg.RAGCfg.ChunkSize))
	}

	if cfg.RAGCfg.ChunkMode != "sentence" && cfg.RAGCfg.ChunkMode != "paragraph" {
		errors = append(errors, fmt.Sprintf("RAG_CHUNK_MODE must be sentence or paragraph, got %q", cfg.RAGCfg.ChunkMode))
	}

	if cfg.RAGCfg.MinChunkChars < 0 || cfg.RAGCfg.MinChunkChars >= cfg.RAGCfg.ChunkSize {
		errors = append(errors, fmt.Sprintf("RAG_MIN_CHUNK_CHARS must be between 0 and RAG_CHUNK_SIZE(%d), got %d", cfg.RAGCfg.ChunkSize, cfg.RAGCfg.MinChunkChars))
	}

	if cfg.RAGCfg.TopK < 1 || cfg.RAGCfg.TopK > 20 {
		errors = append(errors, fmt.Sprintf("RAG_TOP_K must be between 1 and 20, got %d", cfg.RAGCfg.TopK))
	}

	switch cfg.RAGCfg.Strategy {
	case "embedding", "keyword", "hybrid":
	default:
		errors = append(errors, fmt.Sprintf("RAG_STRATEGY must be embedding, keyword or hybrid, got %q", cfg.RAGCfg.Strategy))
	}

	if cfg.RAGCfg.MinScore < 0 || cfg.RAGCfg.MinScore >= 1 {
		errors = append(errors, fmt.Sprintf("RAG_MIN_SCORE must be in [0, 1), got %v", cfg.RAGCfg.MinScore))
	}

	if cfg.RAGCfg.MaxContextChars < 100 {
		errors = append(errors, fmt.Sprintf("RAG_MAX_CONTEXT_CHARS must be at least 100, got %d", cfg.RAGCfg.MaxContextChars))
	}

	if cfg.RAGCfg.EmbedBatchSize < 1 || cfg.RAGCfg.EmbedBatchSize > 32 {
		errors = append(errors, fmt.Sprintf("RAG_EMBED_BATCH_SIZE must be between 1 and 32, got %d", cfg.RAGCfg.EmbedBatchSize))
	}

	if cfg.RAGCfg.IngestConcurrency < 1 || cfg.RAGCfg.IngestConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("RAG_INGEST_CONCURRENCY must be between 1 and 64, got %d", cfg.RAGCfg.IngestConcurrency))
	}

	// Embedding backend
	switch cfg.EmbeddingCfg.Provider {
	case "ollama", "openai":
		if cfg.EmbeddingCfg.Url == "" && !cfg.EnableMocks {
			errors = append(errors, fmt.Sprintf("EMBEDDING_SERVICE_URL is required for provider %q", cfg.EmbeddingCfg.Provider))
		}
	case "none":
	default:
		errors = append(errors, fmt.Sprintf("EMBEDDING_PROVIDER must be ollama, openai or none, got %q", cfg.EmbeddingCfg.Provider))
	}

	if cfg.EmbeddingCfg.Provider == "none" && !cfg.EmbeddingCfg.Fallback {
		errors = append(errors, "EMBEDDING_FALLBACK cannot be disabled when EMBEDDING_PROVIDER is none")
	}

	if cfg.EmbeddingCfg.MaxInputChars < 1 {
		errors = append(errors, fmt.Sprintf("EMBEDDING_MAX_INPUT_CHARS must be positive, got %d", cfg.EmbeddingCfg.MaxInputChars))
	}

	if cfg.EmbeddingCfg.CacheSize < 0 {
		errors = append(errors, fmt.Sprintf("EMBEDDING_CACHE_SIZE must not be negative, got %d", cfg.EmbeddingCfg.CacheSize))
	}

	if cfg.EmbeddingCfg.RateLimit < 0 {
		errors = append(errors, fmt.Sprintf("EMBEDDING_RATE_LIMIT must not be negative, got %v", cfg.EmbeddingCfg.RateLimit))
	}

	// Generation backend
	switch cfg.LLMCfg.Provider {
	case "openai":
		if cfg.LLMCfg.Token == "" && !cfg.EnableMocks {
			errors = append(errors, "LLM_TOKEN is required for provider openai")
		}
	case "none":
	default:
		errors = append(errors, fmt.Sprintf("LLM_PROVIDER must be openai or none, got %q", cfg.LLMCfg.Provider))
	}

	if cfg.LLMCfg.MaxTokens < 1 || cfg.LLMCfg.MaxTokens > 4096 {
		errors = append(errors, fmt.Sprintf("LLM_MAX_TOKENS must be between 1 and 4096, got %d", cfg.LLMCfg.MaxTokens))
	}

	if cfg.LLMCfg.Temperature < 0 || cfg.LLMCfg.Temperature > 2 {
		errors = append(errors, fmt.Sprintf("LLM_TEMPERATURE must be between 0 and 2, got %v", cfg.LLMCfg.Temperature))
	}

	// Database
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
