// Package index keeps the per-context chunk sets searched by the pipeline.
package index

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/futig/context-rag/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize  = 3
	DefaultBatchDelay = 100 * time.Millisecond
)

// ErrSuperseded is returned when the context was cleared while a document was being embedded
var ErrSuperseded = errors.New("context cleared during ingestion")

type Splitter interface {
	Split(text string) []string
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Config struct {
	// BatchSize bounds concurrent embedding calls for one document
	BatchSize int
	// BatchDelay is the pause between embedding batches
	BatchDelay time.Duration
}

// Index maps a context to an ordered chunk list. Lists are never modified
// in place: writers build a new slice and swap it under the lock, so a
// reader always sees whole documents.
type Index struct {
	splitter Splitter
	embedder Embedder
	cfg      Config

	mu          sync.RWMutex
	contexts    map[entity.ContextID][]entity.DocumentChunk
	generations map[entity.ContextID]uint64
	epoch       uint64
}

func New(splitter Splitter, embedder Embedder, cfg Config) *Index {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}

	return &Index{
		splitter:    splitter,
		embedder:    embedder,
		cfg:         cfg,
		contexts:    make(map[entity.ContextID][]entity.DocumentChunk),
		generations: make(map[entity.ContextID]uint64),
	}
}

// AddDocument chunks and embeds content and publishes the chunks for the
// context. Chunks whose embedding fails are skipped. Indexing a filename
// that is already present replaces its previous chunks, even when the new
// content yields none. A cancelled ingest leaves the index unchanged.
func (i *Index) AddDocument(ctx context.Context, contextID entity.ContextID, filename, content string) (entity.IngestResult, error) {
	result := entity.IngestResult{Filename: filename}

	i.mu.RLock()
	generation, epoch := i.generations[contextID], i.epoch
	i.mu.RUnlock()

	pieces := i.splitter.Split(content)
	if len(pieces) == 0 {
		ctxzap.Debug(ctx, "document produced no chunks", zap.String("filename", filename))
	}

	vectors, err := i.embedAll(ctx, pieces)
	if err != nil {
		return result, err
	}

	chunks := make([]entity.DocumentChunk, 0, len(pieces))
	for n, piece := range pieces {
		if vectors[n] == nil {
			result.Skipped++
			continue
		}

		idx := len(chunks)
		chunks = append(chunks, entity.DocumentChunk{
			ID:        entity.ChunkID(contextID, filename, idx),
			Content:   piece,
			Embedding: vectors[n],
			Metadata: entity.ChunkMetadata{
				Filename:   filename,
				ContextID:  contextID,
				ChunkIndex: idx,
			},
		})
	}
	result.Chunks = len(chunks)

	if len(chunks) == 0 && result.Skipped > 0 {
		ctxzap.Warn(ctx, "no chunk of the document could be embedded",
			zap.String("filename", filename),
			zap.Int("skipped", result.Skipped),
		)
	}

	if err := ctx.Err(); err != nil {
		return entity.IngestResult{Filename: filename}, fmt.Errorf("embed chunks: %w", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.generations[contextID] != generation || i.epoch != epoch {
		return entity.IngestResult{Filename: filename}, fmt.Errorf("%w: %s", ErrSuperseded, filename)
	}

	current := i.contexts[contextID]
	next := make([]entity.DocumentChunk, 0, len(current)+len(chunks))
	for _, c := range current {
		if c.Metadata.Filename != filename {
			next = append(next, c)
		}
	}
	next = append(next, chunks...)

	if len(next) == 0 {
		delete(i.contexts, contextID)
	} else {
		i.contexts[contextID] = next
	}

	if replaced := len(current) - (len(next) - len(chunks)); replaced > 0 || len(chunks) > 0 {
		ctxzap.Info(ctx, "document indexed",
			zap.String("filename", filename),
			zap.Int("chunks", result.Chunks),
			zap.Int("skipped", result.Skipped),
			zap.Int("replaced", replaced),
		)
	}

	return result, nil
}

// embedAll embeds pieces in batches of BatchSize and pauses between batches.
// A failed piece leaves a nil vector; only cancellation aborts the document.
func (i *Index) embedAll(ctx context.Context, pieces []string) ([][]float32, error) {
	vectors := make([][]float32, len(pieces))

	for start := 0; start < len(pieces); start += i.cfg.BatchSize {
		end := min(start+i.cfg.BatchSize, len(pieces))

		g, gctx := errgroup.WithContext(ctx)
		for n := start; n < end; n++ {
			g.Go(func() error {
				vec, err := i.embedder.Embed(gctx, pieces[n])
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					ctxzap.Warn(ctx, "skipping chunk after embedding failure",
						zap.Int("chunk", n),
						zap.Error(err),
					)
					return nil
				}
				vectors[n] = vec
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}

		if end < len(pieces) && i.cfg.BatchDelay > 0 {
			timer := time.NewTimer(i.cfg.BatchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("embed chunks: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}

	return vectors, nil
}

// ClearContext drops every chunk of the context. Ingestions already in
// flight for it are discarded when they finish.
func (i *Index) ClearContext(contextID entity.ContextID) {
	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.contexts, contextID)
	i.generations[contextID]++
}

// DocumentCount returns the number of distinct filenames indexed for the context
func (i *Index) DocumentCount(contextID entity.ContextID) int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, c := range i.contexts[contextID] {
		seen[c.Metadata.Filename] = struct{}{}
	}

	return len(seen)
}

// ChunksFor returns a snapshot of the context's chunks in insertion order
func (i *Index) ChunksFor(contextID entity.ContextID) []entity.DocumentChunk {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return slices.Clone(i.contexts[contextID])
}

// Reset drops all contexts
func (i *Index) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()

	clear(i.contexts)
	i.epoch++
}
