package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/futig/context-rag/internal/entity"
	"github.com/futig/context-rag/internal/rag/chunker"
	"github.com/futig/context-rag/internal/rag/embedder"
	"github.com/futig/context-rag/internal/rag/index"
	"github.com/futig/context-rag/internal/rag/quickmatch"
	"github.com/futig/context-rag/internal/rag/ranking"
	"github.com/futig/context-rag/internal/rag/synthesizer"
	"github.com/futig/context-rag/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const manual = "Manufacturer - Acme Corp. Model - X200. Horsepower rating is 50 hp."

var topics = []string{"engine", "manufacturer", "weather"}

// topicBackend embeds text as a one-hot vector over a few topic words
type topicBackend struct{}

func (topicBackend) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(topics))
	for i, t := range topics {
		if strings.Contains(lower, t) {
			vec[i] = 1
		}
	}
	return vec, nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (g *fakeGenerator) Complete(_ context.Context, _ entity.GenerationRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.reply, g.err
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fixture struct {
	uc        *SearchUsecase
	index     *index.Index
	generator *fakeGenerator
}

func newFixture(t *testing.T, strategy string) *fixture {
	t.Helper()

	emb, err := embedder.New(topicBackend{}, embedder.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	idx := index.New(chunker.New(chunker.ModeSentence, 800, 10), emb, index.Config{BatchSize: 3})

	ranker, err := ranking.New(strategy, emb, 0)
	require.NoError(t, err)

	gen := &fakeGenerator{reply: "The engine needs synthetic oil."}

	repo := repository.NewContextMemory(
		entity.Context{ID: 1, Name: "Tractors"},
		entity.Context{ID: 2, Name: "Engines", SharePointURL: "https://example.sharepoint.com/engines"},
	)

	uc := NewUsecase(repo, idx, ranker, quickmatch.Default(),
		synthesizer.NewLLM(gen, synthesizer.DefaultConfig()),
		Config{TopK: 3, IngestConcurrency: 2},
		zap.NewNop(),
	)

	return &fixture{uc: uc, index: idx, generator: gen}
}

func TestSearch_QuickMatchSkipsGeneration(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)
	ctx := context.Background()

	res, err := f.uc.Ingest(ctx, 1, "manual.txt", manual)
	require.NoError(t, err)
	assert.Positive(t, res.Chunks)

	answer, err := f.uc.Search(ctx, "Who is the manufacturer?", 1)
	require.NoError(t, err)

	assert.Equal(t, entity.PathQuickMatch, answer.Path)
	assert.Contains(t, answer.Text, "Acme Corp")
	assert.NotEmpty(t, answer.QueryID)
	assert.Equal(t, []entity.Source{{Title: "manual.txt", URL: "uploaded-files-1"}}, answer.Sources)
	assert.Zero(t, f.generator.Calls())
}

func TestSearch_UnrelatedQueryReturnsNoMatch(t *testing.T) {
	f := newFixture(t, ranking.StrategyEmbedding)
	ctx := context.Background()

	_, err := f.uc.Ingest(ctx, 1, "manual.txt", manual)
	require.NoError(t, err)

	answer, err := f.uc.Search(ctx, "What is the weather on Mars?", 1)
	require.NoError(t, err)

	assert.Equal(t, entity.PathNoMatch, answer.Path)
	assert.Equal(t, NoMatchMessage("What is the weather on Mars?"), answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, f.generator.Calls())
}

func TestSearch_NonsenseQueryFallsThroughBothStrategies(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)
	ctx := context.Background()

	_, err := f.uc.IngestFiles(ctx, 2, []entity.FileData{
		{Filename: "oil.txt", Content: []byte("The engine requires synthetic oil every 500 hours.")},
		{Filename: "tyres.txt", Content: []byte("Tyre pressure should be checked weekly.")},
	})
	require.NoError(t, err)

	answer, err := f.uc.Search(ctx, "unrelated nonsense query zzz", 2)
	require.NoError(t, err)

	assert.Equal(t, entity.PathNoMatch, answer.Path)
	assert.Contains(t, answer.Text, "couldn't find information")
	assert.Zero(t, f.generator.Calls())
}

func TestSearch_EmptyContext(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)

	answer, err := f.uc.Search(context.Background(), "anything at all", 1)
	require.NoError(t, err)

	assert.Equal(t, entity.PathEmptyContext, answer.Path)
	assert.Equal(t, EmptyContextMessage, answer.Text)
	assert.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)
}

func TestSearch_ContextsAreIsolated(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)
	ctx := context.Background()

	_, err := f.uc.Ingest(ctx, 1, "manual.txt", manual)
	require.NoError(t, err)

	answer, err := f.uc.Search(ctx, "Who is the manufacturer?", 2)
	require.NoError(t, err)
	assert.Equal(t, entity.PathEmptyContext, answer.Path)
	assert.Zero(t, f.uc.DocumentCount(ctx, 2))
	assert.Equal(t, 1, f.uc.DocumentCount(ctx, 1))
}

func TestSearch_UnknownContext(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)
	ctx := context.Background()

	_, err := f.uc.Search(ctx, "Who is the manufacturer?", 99)
	assert.ErrorIs(t, err, entity.ErrContextNotFound)

	_, err = f.uc.Ingest(ctx, 99, "manual.txt", manual)
	assert.ErrorIs(t, err, entity.ErrContextNotFound)
	assert.Zero(t, f.uc.DocumentCount(ctx, 99))
}

func TestSearch_QueryValidation(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)
	ctx := context.Background()

	_, err := f.uc.Search(ctx, "   ", 1)
	assert.ErrorIs(t, err, entity.ErrMissingField)

	_, err = f.uc.Search(ctx, strings.Repeat("q", maxQueryChars+1), 1)
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}

func TestSearch_SynthesizedAnswer(t *testing.T) {
	f := newFixture(t, ranking.StrategyEmbedding)
	ctx := context.Background()

	_, err := f.uc.Ingest(ctx, 2, "service.txt", "The engine requires synthetic oil every 500 hours.")
	require.NoError(t, err)

	answer, err := f.uc.Search(ctx, "What oil does the engine use?", 2)
	require.NoError(t, err)

	assert.Equal(t, entity.PathSynthesized, answer.Path)
	assert.Equal(t, "The engine needs synthetic oil.", answer.Text)
	assert.Equal(t, []entity.Source{{Title: "service.txt", URL: "https://example.sharepoint.com/engines"}}, answer.Sources)
	assert.Equal(t, 1, f.generator.Calls())
}

func TestSearch_GenerationFailure(t *testing.T) {
	f := newFixture(t, ranking.StrategyEmbedding)
	f.generator.err = errors.New("upstream unavailable")
	ctx := context.Background()

	_, err := f.uc.Ingest(ctx, 2, "service.txt", "The engine requires synthetic oil every 500 hours.")
	require.NoError(t, err)

	answer, err := f.uc.Search(ctx, "Tell me about the engine", 2)
	require.Error(t, err)
	assert.Nil(t, answer)
	assert.ErrorIs(t, err, entity.ErrGenerationFailed)

	var genErr *entity.GenerationError
	assert.ErrorAs(t, err, &genErr)
}

type failingSynth struct{}

func (failingSynth) Generate(context.Context, string, []entity.SearchResult) (string, error) {
	return "", errors.New("boom")
}

func (failingSynth) Suggest(context.Context, string, string) ([]string, error) {
	return nil, errors.New("boom")
}

func TestSearch_WrapsPlainSynthesizerErrors(t *testing.T) {
	f := newFixture(t, ranking.StrategyKeyword)
	f.uc.synthesizer = failingSynth{}
	ctx := context.Background()

	_, err := f.uc.Ingest(ctx, 1, "notes.txt", "Oil pressure warnings appear on the dashboard.")
	require.NoError(t, err)

	_, err = f.uc.Search(ctx, "dashboard warnings", 1)
	assert.ErrorIs(t, err, entity.ErrGenerationFailed)
}

func TestIngest_ReplacesSameFilename(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)
	ctx := context.Background()

	_, err := f.uc.Ingest(ctx, 1, "manual.txt", manual)
	require.NoError(t, err)
	_, err = f.uc.Ingest(ctx, 1, "manual.txt", "Manufacturer - Beta Works. Built in 1999.")
	require.NoError(t, err)

	assert.Equal(t, 1, f.uc.DocumentCount(ctx, 1))

	answer, err := f.uc.Search(ctx, "Who is the manufacturer?", 1)
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "Beta Works")
}

func TestIngest_SanitizesFilename(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)

	res, err := f.uc.Ingest(context.Background(), 1, `..\docs\manual.txt`, manual)
	require.NoError(t, err)
	assert.Equal(t, "manual.txt", res.Filename)
}

func TestIngestFiles_KeepsOrder(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)
	ctx := context.Background()

	files := make([]entity.FileData, 0, 5)
	for _, name := range []string{"e.txt", "b.txt", "d.txt", "a.txt", "c.txt"} {
		files = append(files, entity.FileData{
			Filename: name,
			Content:  []byte(fmt.Sprintf("This document is called %s and has content.", name)),
		})
	}

	results, err := f.uc.IngestFiles(ctx, 1, files)
	require.NoError(t, err)
	require.Len(t, results, len(files))
	for i, r := range results {
		assert.Equal(t, files[i].Filename, r.Filename)
		assert.Equal(t, 1, r.Chunks)
	}
	assert.Equal(t, 5, f.uc.DocumentCount(ctx, 1))
}

func TestIngestFiles_Errors(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)
	ctx := context.Background()

	_, err := f.uc.IngestFiles(ctx, 1, nil)
	assert.ErrorIs(t, err, entity.ErrMissingField)

	_, err = f.uc.IngestFiles(ctx, 42, []entity.FileData{{Filename: "a.txt", Content: []byte(manual)}})
	assert.ErrorIs(t, err, entity.ErrContextNotFound)
}

func TestClearContext(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)
	ctx := context.Background()

	_, err := f.uc.Ingest(ctx, 1, "manual.txt", manual)
	require.NoError(t, err)
	_, err = f.uc.Ingest(ctx, 2, "manual.txt", manual)
	require.NoError(t, err)

	require.NoError(t, f.uc.ClearContext(ctx, 1))
	assert.Zero(t, f.uc.DocumentCount(ctx, 1))
	assert.Equal(t, 1, f.uc.DocumentCount(ctx, 2))

	answer, err := f.uc.Search(ctx, "Who is the manufacturer?", 1)
	require.NoError(t, err)
	assert.Equal(t, entity.PathEmptyContext, answer.Path)

	// clearing an unknown context is a no-op
	assert.NoError(t, f.uc.ClearContext(ctx, 77))
}

func TestSuggestions(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)
	f.generator.reply = `{"suggestions": ["What model is it?", "How much horsepower?"]}`
	ctx := context.Background()

	got, err := f.uc.Suggestions(ctx, 1, "Who is the manufacturer?", "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, []string{"What model is it?", "How much horsepower?"}, got)

	_, err = f.uc.Suggestions(ctx, 99, "q", "a")
	assert.ErrorIs(t, err, entity.ErrContextNotFound)

	_, err = f.uc.Suggestions(ctx, 1, "", "a")
	assert.ErrorIs(t, err, entity.ErrMissingField)
}

func TestSuggestions_ExtractiveReturnsEmptyList(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)
	f.uc.synthesizer = synthesizer.NewExtractive()

	got, err := f.uc.Suggestions(context.Background(), 1, "q", "a")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBuildSources_Deduplicates(t *testing.T) {
	chunk := func(name string) entity.SearchResult {
		return entity.SearchResult{Chunk: entity.DocumentChunk{Metadata: entity.ChunkMetadata{Filename: name}}}
	}

	sources := buildSources(&entity.Context{ID: 3}, 3, []entity.SearchResult{
		chunk("a.txt"), chunk("b.txt"), chunk("a.txt"),
	})

	assert.Equal(t, []entity.Source{
		{Title: "a.txt", URL: "uploaded-files-3"},
		{Title: "b.txt", URL: "uploaded-files-3"},
	}, sources)
}

func TestDeleteContext_DestroysIndex(t *testing.T) {
	f := newFixture(t, ranking.StrategyHybrid)
	ctx := context.Background()

	_, err := f.uc.Ingest(ctx, 1, "manual.txt", manual)
	require.NoError(t, err)
	_, err = f.uc.Ingest(ctx, 2, "engine.txt", "The engine requires synthetic oil every 500 hours.")
	require.NoError(t, err)

	require.NoError(t, f.uc.DeleteContext(ctx, 1))

	assert.Zero(t, f.uc.DocumentCount(ctx, 1))
	assert.Empty(t, f.index.ChunksFor(1))
	assert.Equal(t, 1, f.uc.DocumentCount(ctx, 2))

	_, err = f.uc.Search(ctx, "Who is the manufacturer?", 1)
	assert.ErrorIs(t, err, entity.ErrContextNotFound)

	err = f.uc.DeleteContext(ctx, 1)
	assert.ErrorIs(t, err, entity.ErrContextNotFound)
}

func TestCreateContext_AssignsIDAndLists(t *testing.T) {
	f := newFixture(t, ranking.StrategyKeyword)
	ctx := context.Background()

	created, err := f.uc.CreateContext(ctx, &entity.CreateContextRequest{Name: "  Harvesters ", SharePointURL: "https://example.sharepoint.com/h"})
	require.NoError(t, err)
	assert.Equal(t, entity.ContextID(3), created.ID)
	assert.Equal(t, "Harvesters", created.Name)

	got, err := f.uc.GetContext(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.sharepoint.com/h", got.SharePointURL)

	list, err := f.uc.ListContexts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, created.ID, list[2].ID)

	_, err = f.uc.Ingest(ctx, created.ID, "h.txt", "Manufacturer - Deere. Model - S790.")
	require.NoError(t, err)

	_, err = f.uc.CreateContext(ctx, &entity.CreateContextRequest{Name: ""})
	assert.ErrorIs(t, err, entity.ErrMissingField)
}
