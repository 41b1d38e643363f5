package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/futig/context-rag/internal/entity"
	"github.com/futig/context-rag/internal/pkg/logger"
	"github.com/futig/context-rag/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	EmptyContextMessage = "No documents found in this context. Please upload some documents first."
	noMatchTemplate     = "I couldn't find information about \"%s\" in the uploaded documents. " +
		"Try a different search term or check if the relevant documents are uploaded."

	maxQueryChars = 2000
)

// NoMatchMessage is the answer when ranking finds nothing for query
func NoMatchMessage(query string) string {
	return fmt.Sprintf(noMatchTemplate, query)
}

type Config struct {
	TopK              int
	IngestConcurrency int
}

// SearchUsecase runs the question answering pipeline over an index of
// uploaded documents per context.
type SearchUsecase struct {
	contextRepo ContextRepository
	index       DocumentIndex
	ranker      Ranker
	matcher     QuickMatcher
	synthesizer AnswerSynthesizer
	cfg         Config
	logger      *zap.Logger
}

func NewUsecase(
	contextRepo ContextRepository,
	index DocumentIndex,
	ranker Ranker,
	matcher QuickMatcher,
	synthesizer AnswerSynthesizer,
	cfg Config,
	logger *zap.Logger,
) *SearchUsecase {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.IngestConcurrency <= 0 {
		cfg.IngestConcurrency = 1
	}

	return &SearchUsecase{
		contextRepo: contextRepo,
		index:       index,
		ranker:      ranker,
		matcher:     matcher,
		synthesizer: synthesizer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Search answers query from the documents of the context. Empty contexts
// and queries without relevant chunks produce fixed answers; only a failing
// generation backend returns an error (matching entity.ErrGenerationFailed).
func (uc *SearchUsecase) Search(ctx context.Context, query string, contextID entity.ContextID) (*entity.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query", entity.ErrMissingField)
	}
	if utf8.RuneCountInString(query) > maxQueryChars {
		return nil, fmt.Errorf("%w: query longer than %d characters", entity.ErrInvalidParameter, maxQueryChars)
	}

	answer := &entity.Answer{QueryID: uuid.New().String()}
	ctx = logger.AddFields(ctx,
		zap.String("query_id", answer.QueryID),
		zap.Int64("context_id", int64(contextID)),
	)

	docContext, err := uc.contextRepo.Get(ctx, contextID)
	if err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}

	chunks := uc.index.ChunksFor(contextID)
	if len(chunks) == 0 {
		ctxzap.Info(ctx, "search on empty context")
		answer.Text = EmptyContextMessage
		answer.Path = entity.PathEmptyContext
		answer.Sources = []entity.Source{}
		return answer, nil
	}

	if match, ok := uc.matcher.Match(query, chunks); ok {
		ctxzap.Info(ctx, "answered by quick match", zap.String("rule", match.Rule))
		answer.Text = match.Answer
		answer.Path = entity.PathQuickMatch
		answer.Sources = buildSources(docContext, contextID, []entity.SearchResult{{Chunk: match.Chunk}})
		return answer, nil
	}

	results, err := uc.ranker.Rank(ctx, query, chunks, uc.cfg.TopK)
	if err != nil {
		// ranking degrades to no results
		ctxzap.Warn(ctx, "ranking failed", zap.String("strategy", uc.ranker.Name()), zap.Error(err))
		results = nil
	}

	if len(results) == 0 {
		ctxzap.Info(ctx, "no relevant chunks", zap.Int("chunks", len(chunks)))
		answer.Text = NoMatchMessage(query)
		answer.Path = entity.PathNoMatch
		answer.Sources = []entity.Source{}
		return answer, nil
	}

	text, err := uc.synthesizer.Generate(ctx, query, results)
	if err != nil {
		ctxzap.Error(ctx, "answer synthesis failed", zap.Error(err))
		if !errors.Is(err, entity.ErrGenerationFailed) {
			err = &entity.GenerationError{Err: err}
		}
		return nil, err
	}

	ctxzap.Info(ctx, "answer synthesized",
		zap.String("strategy", uc.ranker.Name()),
		zap.Int("results", len(results)),
		zap.Float64("top_score", results[0].Score),
	)

	answer.Text = text
	answer.Path = entity.PathSynthesized
	answer.Sources = buildSources(docContext, contextID, results)

	return answer, nil
}

// Ingest indexes one document for an existing context
func (uc *SearchUsecase) Ingest(ctx context.Context, contextID entity.ContextID, filename, content string) (entity.IngestResult, error) {
	if _, err := uc.contextRepo.Get(ctx, contextID); err != nil {
		return entity.IngestResult{}, fmt.Errorf("get context: %w", err)
	}

	return uc.ingest(ctx, contextID, filename, content)
}

// IngestFiles indexes several documents concurrently. Results keep the order of files.
func (uc *SearchUsecase) IngestFiles(ctx context.Context, contextID entity.ContextID, files []entity.FileData) ([]entity.IngestResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: files", entity.ErrMissingField)
	}

	if _, err := uc.contextRepo.Get(ctx, contextID); err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}

	results := make([]entity.IngestResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.IngestConcurrency)

	for i, f := range files {
		g.Go(func() error {
			res, err := uc.ingest(gctx, contextID, f.Filename, string(f.Content))
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "documents ingested",
		zap.Int("file_count", len(files)),
		zap.Int("document_count", uc.index.DocumentCount(contextID)),
	)

	return results, nil
}

func (uc *SearchUsecase) ingest(ctx context.Context, contextID entity.ContextID, filename, content string) (entity.IngestResult, error) {
	filename = validator.SanitizeFilename(filename)
	if filename == "" || filename == "." {
		return entity.IngestResult{}, fmt.Errorf("%w: filename", entity.ErrMissingField)
	}

	ctx = logger.AddFields(ctx,
		zap.Int64("context_id", int64(contextID)),
		zap.String("filename", filename),
	)

	res, err := uc.index.AddDocument(ctx, contextID, filename, content)
	if err != nil {
		return entity.IngestResult{}, fmt.Errorf("index %s: %w", filename, err)
	}

	return res, nil
}

// ClearContext drops every indexed document of the context
func (uc *SearchUsecase) ClearContext(ctx context.Context, contextID entity.ContextID) error {
	before := uc.index.DocumentCount(contextID)
	uc.index.ClearContext(contextID)

	ctxzap.Info(ctx, "context cleared",
		zap.Int64("context_id", int64(contextID)),
		zap.Int("documents_removed", before),
	)

	return nil
}

// DocumentCount returns the number of distinct files indexed for the context
func (uc *SearchUsecase) DocumentCount(_ context.Context, contextID entity.ContextID) int {
	return uc.index.DocumentCount(contextID)
}

// Suggestions proposes follow-up questions for an answered query
func (uc *SearchUsecase) Suggestions(ctx context.Context, contextID entity.ContextID, query, answer string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query", entity.ErrMissingField)
	}

	if _, err := uc.contextRepo.Get(ctx, contextID); err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}

	suggestions, err := uc.synthesizer.Suggest(ctx, query, answer)
	if err != nil {
		return nil, fmt.Errorf("suggest questions: %w", err)
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	return suggestions, nil
}
