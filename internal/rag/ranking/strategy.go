package ranking

import (
	"context"
	"fmt"

	"github.com/futig/context-rag/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	StrategyEmbedding = "embedding"
	StrategyKeyword   = "keyword"
	StrategyHybrid    = "hybrid"
)

// Strategy ranks a chunk set for a query. Scores are not comparable across strategies.
type Strategy interface {
	Name() string
	Rank(ctx context.Context, query string, chunks []entity.DocumentChunk, limit int) ([]entity.SearchResult, error)
}

type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingStrategy ranks by cosine similarity between the query embedding and chunk embeddings
type EmbeddingStrategy struct {
	embedder QueryEmbedder
	minScore float64
}

func NewEmbeddingStrategy(embedder QueryEmbedder, minScore float64) *EmbeddingStrategy {
	return &EmbeddingStrategy{
		embedder: embedder,
		minScore: minScore,
	}
}

func (s *EmbeddingStrategy) Name() string {
	return StrategyEmbedding
}

func (s *EmbeddingStrategy) Rank(ctx context.Context, query string, chunks []entity.DocumentChunk, limit int) ([]entity.SearchResult, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return RankByVector(vec, chunks, limit, s.minScore), nil
}

// KeywordStrategy ranks by term frequency with a full-phrase bonus
type KeywordStrategy struct{}

func NewKeywordStrategy() *KeywordStrategy {
	return &KeywordStrategy{}
}

func (s *KeywordStrategy) Name() string {
	return StrategyKeyword
}

func (s *KeywordStrategy) Rank(_ context.Context, query string, chunks []entity.DocumentChunk, limit int) ([]entity.SearchResult, error) {
	return RankByKeywords(query, chunks, limit), nil
}

// ChainStrategy asks the secondary strategy when the primary fails or finds nothing
type ChainStrategy struct {
	primary   Strategy
	secondary Strategy
}

func NewChainStrategy(primary, secondary Strategy) *ChainStrategy {
	return &ChainStrategy{
		primary:   primary,
		secondary: secondary,
	}
}

func (s *ChainStrategy) Name() string {
	return s.primary.Name() + "+" + s.secondary.Name()
}

func (s *ChainStrategy) Rank(ctx context.Context, query string, chunks []entity.DocumentChunk, limit int) ([]entity.SearchResult, error) {
	results, err := s.primary.Rank(ctx, query, chunks, limit)
	if err != nil {
		ctxzap.Warn(ctx, "primary ranking failed, using secondary",
			zap.String("primary", s.primary.Name()),
			zap.Error(err),
		)
	} else if len(results) > 0 {
		return results, nil
	}

	return s.secondary.Rank(ctx, query, chunks, limit)
}

// New builds the named strategy. Hybrid is embedding ranking backed by keywords.
func New(name string, embedder QueryEmbedder, minScore float64) (Strategy, error) {
	switch name {
	case StrategyEmbedding:
		return NewEmbeddingStrategy(embedder, minScore), nil
	case StrategyKeyword:
		return NewKeywordStrategy(), nil
	case StrategyHybrid, "":
		return NewChainStrategy(NewEmbeddingStrategy(embedder, minScore), NewKeywordStrategy()), nil
	default:
		return nil, fmt.Errorf("%w: unknown ranking strategy %q", entity.ErrInvalidParameter, name)
	}
}
