package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/futig/context-rag/internal/entity"
	"github.com/futig/context-rag/internal/rag/chunker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeEmbedder struct {
	failOn   string
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	hold     chan struct{}
	started  chan struct{}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	for {
		old := f.peak.Load()
		if cur <= old || f.peak.CompareAndSwap(old, cur) {
			break
		}
	}

	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		time.Sleep(time.Millisecond)
	}

	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("backend rejected chunk")
	}
	return []float32{float32(len(text)), 1}, nil
}

func sentences(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s sentence %02d carries enough text.", prefix, i)
	}
	return strings.Join(parts, " ")
}

func newTestIndex(emb Embedder, delay time.Duration) *Index {
	// every sentence becomes its own chunk
	return New(chunker.New(chunker.ModeSentence, 40, chunker.DefaultMinChars), emb, Config{BatchSize: 3, BatchDelay: delay})
}

func TestAddDocumentStoresOrderedChunks(t *testing.T) {
	idx := newTestIndex(&fakeEmbedder{}, 0)

	res, err := idx.AddDocument(context.Background(), 1, "manual.txt", sentences("Pump", 4))
	require.NoError(t, err)
	assert.Equal(t, entity.IngestResult{Filename: "manual.txt", Chunks: 4}, res)

	chunks := idx.ChunksFor(1)
	require.Len(t, chunks, 4)
	for n, c := range chunks {
		assert.Equal(t, n, c.Metadata.ChunkIndex)
		assert.Equal(t, "manual.txt", c.Metadata.Filename)
		assert.Equal(t, entity.ContextID(1), c.Metadata.ContextID)
		assert.Equal(t, fmt.Sprintf("1_manual.txt_%d", n), c.ID)
		assert.Contains(t, c.Content, fmt.Sprintf("sentence %02d", n))
		assert.NotEmpty(t, c.Embedding)
	}
}

func TestAddDocumentBelowFloorKeepsCount(t *testing.T) {
	idx := newTestIndex(&fakeEmbedder{}, 0)

	_, err := idx.AddDocument(context.Background(), 1, "a.txt", sentences("Valve", 2))
	require.NoError(t, err)
	require.Equal(t, 1, idx.DocumentCount(1))

	res, err := idx.AddDocument(context.Background(), 1, "tiny.txt", "  short  ")
	require.NoError(t, err)

	assert.Zero(t, res.Chunks)
	assert.Equal(t, 1, idx.DocumentCount(1))
}

func TestDocumentCountCountsFilenames(t *testing.T) {
	idx := newTestIndex(&fakeEmbedder{}, 0)
	ctx := context.Background()

	_, err := idx.AddDocument(ctx, 7, "a.txt", sentences("Alpha", 3))
	require.NoError(t, err)
	_, err = idx.AddDocument(ctx, 7, "b.txt", sentences("Beta", 5))
	require.NoError(t, err)

	assert.Equal(t, 2, idx.DocumentCount(7))
	assert.Len(t, idx.ChunksFor(7), 8)
	assert.Zero(t, idx.DocumentCount(8))
}

func TestAddDocumentReplacesSameFilename(t *testing.T) {
	idx := newTestIndex(&fakeEmbedder{}, 0)
	ctx := context.Background()

	_, err := idx.AddDocument(ctx, 1, "a.txt", sentences("Old", 3))
	require.NoError(t, err)
	_, err = idx.AddDocument(ctx, 1, "b.txt", sentences("Other", 1))
	require.NoError(t, err)
	_, err = idx.AddDocument(ctx, 1, "a.txt", sentences("New", 2))
	require.NoError(t, err)

	chunks := idx.ChunksFor(1)
	require.Len(t, chunks, 3)
	assert.Equal(t, "b.txt", chunks[0].Metadata.Filename)
	assert.True(t, strings.HasPrefix(chunks[1].Content, "New sentence 00"))
	assert.Equal(t, 0, chunks[1].Metadata.ChunkIndex)
	assert.Equal(t, 1, chunks[2].Metadata.ChunkIndex)
	assert.Equal(t, 2, idx.DocumentCount(1))
}

func TestAddDocumentSkipsFailedChunks(t *testing.T) {
	idx := newTestIndex(&fakeEmbedder{failOn: "sentence 01"}, 0)

	res, err := idx.AddDocument(context.Background(), 1, "a.txt", sentences("Gear", 3))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 1, res.Skipped)

	chunks := idx.ChunksFor(1)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Content, "sentence 00")
	assert.Contains(t, chunks[1].Content, "sentence 02")
	assert.Equal(t, 1, chunks[1].Metadata.ChunkIndex)
}

func TestClearContextAndIsolation(t *testing.T) {
	idx := newTestIndex(&fakeEmbedder{}, 0)
	ctx := context.Background()

	_, err := idx.AddDocument(ctx, 1, "a.txt", sentences("One", 2))
	require.NoError(t, err)
	_, err = idx.AddDocument(ctx, 2, "b.txt", sentences("Two", 2))
	require.NoError(t, err)

	for _, c := range idx.ChunksFor(2) {
		assert.Equal(t, entity.ContextID(2), c.Metadata.ContextID)
	}

	idx.ClearContext(1)

	assert.Empty(t, idx.ChunksFor(1))
	assert.Zero(t, idx.DocumentCount(1))
	assert.Len(t, idx.ChunksFor(2), 2)

	idx.Reset()
	assert.Empty(t, idx.ChunksFor(2))
}

func TestChunksForReturnsSnapshot(t *testing.T) {
	idx := newTestIndex(&fakeEmbedder{}, 0)

	_, err := idx.AddDocument(context.Background(), 1, "a.txt", sentences("Snap", 2))
	require.NoError(t, err)

	snap := idx.ChunksFor(1)
	snap[0].Content = "mutated"

	assert.NotEqual(t, "mutated", idx.ChunksFor(1)[0].Content)
}

func TestAddDocumentBoundsConcurrency(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := newTestIndex(emb, 0)

	_, err := idx.AddDocument(context.Background(), 1, "big.txt", sentences("Wide", 10))
	require.NoError(t, err)

	assert.Equal(t, int32(10), emb.calls.Load())
	assert.LessOrEqual(t, emb.peak.Load(), int32(3))
}

func TestAddDocumentPausesBetweenBatches(t *testing.T) {
	idx := newTestIndex(&fakeEmbedder{}, 30*time.Millisecond)

	start := time.Now()
	_, err := idx.AddDocument(context.Background(), 1, "a.txt", sentences("Slow", 7))
	require.NoError(t, err)

	// three batches, two pauses
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestAddDocumentCancelledDuringPause(t *testing.T) {
	idx := newTestIndex(&fakeEmbedder{}, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := idx.AddDocument(ctx, 1, "a.txt", sentences("Cancel", 5))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, idx.ChunksFor(1))
}

func TestAddDocumentCancelledBeforeStartStoresNothing(t *testing.T) {
	idx := newTestIndex(&fakeEmbedder{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := idx.AddDocument(ctx, 1, "a.txt", "Manufacturer - Acme Corp. Model - X200.")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Chunks)
	assert.Empty(t, idx.ChunksFor(1))
	assert.Zero(t, idx.DocumentCount(1))
}

func TestAddDocumentReuploadWithoutChunksDropsFile(t *testing.T) {
	idx := newTestIndex(&fakeEmbedder{}, 0)
	ctx := context.Background()

	_, err := idx.AddDocument(ctx, 1, "a.txt", sentences("Old", 2))
	require.NoError(t, err)
	_, err = idx.AddDocument(ctx, 1, "b.txt", sentences("Keep", 1))
	require.NoError(t, err)

	res, err := idx.AddDocument(ctx, 1, "a.txt", "  short  ")
	require.NoError(t, err)
	assert.Zero(t, res.Chunks)

	chunks := idx.ChunksFor(1)
	require.Len(t, chunks, 1)
	assert.Equal(t, "b.txt", chunks[0].Metadata.Filename)
	assert.Equal(t, 1, idx.DocumentCount(1))
}

func TestAddDocumentReuploadAllFailedDropsFile(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := newTestIndex(emb, 0)
	ctx := context.Background()

	_, err := idx.AddDocument(ctx, 1, "a.txt", sentences("Gear", 2))
	require.NoError(t, err)

	emb.failOn = "Broken"
	res, err := idx.AddDocument(ctx, 1, "a.txt", sentences("Broken", 2))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)

	assert.Empty(t, idx.ChunksFor(1))
	assert.Zero(t, idx.DocumentCount(1))
}

func TestClearDuringIngestDiscardsDocument(t *testing.T) {
	emb := &fakeEmbedder{hold: make(chan struct{}), started: make(chan struct{}, 1)}
	idx := newTestIndex(emb, 0)

	errCh := make(chan error, 1)
	go func() {
		_, err := idx.AddDocument(context.Background(), 1, "a.txt", sentences("Race", 1))
		errCh <- err
	}()

	<-emb.started
	idx.ClearContext(1)
	close(emb.hold)

	assert.ErrorIs(t, <-errCh, ErrSuperseded)
	assert.Empty(t, idx.ChunksFor(1))
}

func TestConcurrentReadersSeeWholeDocuments(t *testing.T) {
	idx := newTestIndex(&fakeEmbedder{}, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for f := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := idx.AddDocument(ctx, 1, fmt.Sprintf("f%d.txt", f), sentences("Doc", 6))
			assert.NoError(t, err)
		}()
	}

	stop := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			perFile := map[string]int{}
			for _, c := range idx.ChunksFor(1) {
				perFile[c.Metadata.Filename]++
			}
			for name, n := range perFile {
				assert.Equal(t, 6, n, name)
			}
		}
	}()

	wg.Wait()
	close(stop)
	readers.Wait()

	assert.Equal(t, 4, idx.DocumentCount(1))
}
