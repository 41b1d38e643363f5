package search

import (
	"context"

	"github.com/futig/context-rag/internal/entity"
	"github.com/futig/context-rag/internal/rag/quickmatch"
)

type ContextRepository interface {
	Get(ctx context.Context, id entity.ContextID) (*entity.Context, error)
	Save(ctx context.Context, c entity.Context) (*entity.Context, error)
	List(ctx context.Context) ([]*entity.Context, error)
	Delete(ctx context.Context, id entity.ContextID) error
}

type DocumentIndex interface {
	AddDocument(ctx context.Context, contextID entity.ContextID, filename, content string) (entity.IngestResult, error)
	ClearContext(contextID entity.ContextID)
	DocumentCount(contextID entity.ContextID) int
	ChunksFor(contextID entity.ContextID) []entity.DocumentChunk
}

type Ranker interface {
	Name() string
	Rank(ctx context.Context, query string, chunks []entity.DocumentChunk, limit int) ([]entity.SearchResult, error)
}

type QuickMatcher interface {
	Match(query string, chunks []entity.DocumentChunk) (quickmatch.Match, bool)
}

type AnswerSynthesizer interface {
	Generate(ctx context.Context, query string, results []entity.SearchResult) (string, error)
	Suggest(ctx context.Context, query, answer string) ([]string, error)
}
