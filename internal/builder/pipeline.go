package builder

import (
	"fmt"

	"github.com/futig/context-rag/internal/config"
	"github.com/futig/context-rag/internal/integration/embedding"
	"github.com/futig/context-rag/internal/integration/llm"
	"github.com/futig/context-rag/internal/rag/chunker"
	"github.com/futig/context-rag/internal/rag/embedder"
	"github.com/futig/context-rag/internal/rag/index"
	"github.com/futig/context-rag/internal/rag/quickmatch"
	"github.com/futig/context-rag/internal/rag/ranking"
	"github.com/futig/context-rag/internal/rag/synthesizer"
	"github.com/futig/context-rag/internal/usecase/search"
	"go.uber.org/zap"
)

// Pipeline holds the in-process components shared by the service and the CLI
type Pipeline struct {
	Chunker     *chunker.Chunker
	Embedder    *embedder.Embedder
	Index       *index.Index
	Ranker      ranking.Strategy
	Matcher     *quickmatch.Matcher
	Synthesizer search.AnswerSynthesizer
}

// BuildPipeline wires chunking, embedding, indexing, ranking and answer
// synthesis from configuration
func BuildPipeline(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	mode, err := chunker.ParseMode(cfg.RAGCfg.ChunkMode)
	if err != nil {
		return nil, err
	}
	chunks := chunker.New(mode, cfg.RAGCfg.ChunkSize, cfg.RAGCfg.MinChunkChars)

	emb, err := embedder.New(embeddingBackend(cfg, logger), embedder.Config{
		MaxInputChars: cfg.EmbeddingCfg.MaxInputChars,
		Timeout:       cfg.EmbeddingCfg.CallTimeout,
		Fallback:      cfg.EmbeddingCfg.Fallback,
		CacheSize:     cfg.EmbeddingCfg.CacheSize,
		RateLimit:     cfg.EmbeddingCfg.RateLimit,
		RateBurst:     cfg.EmbeddingCfg.RateBurst,
		Breaker: embedder.BreakerConfig{
			MaxRequests:      cfg.EmbeddingCfg.Breaker.MaxRequests,
			Interval:         cfg.EmbeddingCfg.Breaker.Interval,
			Timeout:          cfg.EmbeddingCfg.Breaker.Timeout,
			FailureThreshold: cfg.EmbeddingCfg.Breaker.FailureThreshold,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	idx := index.New(chunks, emb, index.Config{
		BatchSize:  cfg.RAGCfg.EmbedBatchSize,
		BatchDelay: cfg.RAGCfg.EmbedBatchDelay,
	})

	ranker, err := ranking.New(cfg.RAGCfg.Strategy, emb, cfg.RAGCfg.MinScore)
	if err != nil {
		return nil, err
	}

	rules := quickmatch.DefaultRules()
	if cfg.RAGCfg.QuickMatchRulesFile != "" {
		extra, err := quickmatch.LoadRules(cfg.RAGCfg.QuickMatchRulesFile)
		if err != nil {
			return nil, err
		}
		rules = append(rules, extra...)
	}

	matcher, err := quickmatch.New(rules)
	if err != nil {
		return nil, fmt.Errorf("compile quick-match rules: %w", err)
	}

	logger.Info("RAG pipeline initialized",
		zap.String("chunk_mode", string(chunks.Mode())),
		zap.Int("chunk_size", cfg.RAGCfg.ChunkSize),
		zap.String("embedding_provider", cfg.EmbeddingCfg.Provider),
		zap.String("strategy", ranker.Name()),
		zap.Int("quick_match_rules", matcher.Len()),
		zap.String("llm_provider", cfg.LLMCfg.Provider),
	)

	return &Pipeline{
		Chunker:     chunks,
		Embedder:    emb,
		Index:       idx,
		Ranker:      ranker,
		Matcher:     matcher,
		Synthesizer: answerSynthesizer(cfg, logger),
	}, nil
}

// embeddingBackend returns nil for provider none, leaving only the hash fallback
func embeddingBackend(cfg *config.Config, logger *zap.Logger) embedder.Backend {
	if cfg.EmbeddingCfg.Provider == "none" {
		return nil
	}

	if cfg.EnableMocks {
		logger.Info("Using mock embedding connector")
		return embedding.NewMockConnector(logger)
	}

	switch cfg.EmbeddingCfg.Provider {
	case "openai":
		return embedding.NewOpenAIConnector(cfg.EmbeddingCfg, logger)
	default:
		return embedding.NewOllamaConnector(cfg.EmbeddingCfg, logger)
	}
}

func answerSynthesizer(cfg *config.Config, logger *zap.Logger) search.AnswerSynthesizer {
	if cfg.LLMCfg.Provider == "none" {
		logger.Info("No generation backend configured, using extractive answers")
		return synthesizer.NewExtractive()
	}

	var generator synthesizer.Generator
	if cfg.EnableMocks {
		logger.Info("Using mock LLM connector")
		generator = llm.NewMockConnector(logger)
	} else {
		generator = llm.NewConnector(cfg.LLMCfg, logger)
	}

	return synthesizer.NewLLM(generator, synthesizer.Config{
		MaxContextChars:     cfg.RAGCfg.MaxContextChars,
		MaxTokens:           cfg.LLMCfg.MaxTokens,
		Temperature:         cfg.LLMCfg.Temperature,
		SuggestionMaxTokens: cfg.LLMCfg.SuggestionMaxTokens,
	})
}

// NewSearchUsecase builds the question answering facade over a pipeline
func NewSearchUsecase(cfg *config.Config, repo search.ContextRepository, p *Pipeline, logger *zap.Logger) *search.SearchUsecase {
	return search.NewUsecase(
		repo,
		p.Index,
		p.Ranker,
		p.Matcher,
		p.Synthesizer,
		search.Config{
			TopK:              cfg.RAGCfg.TopK,
			IngestConcurrency: cfg.RAGCfg.IngestConcurrency,
		},
		logger,
	)
}
