package entity

import (
	"fmt"
	"strconv"
)

// ContextID identifies a document collection in the external context registry
type ContextID int64

func (id ContextID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseContextID parses a path or flag value into a ContextID
func ParseContextID(raw string) (ContextID, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidContext, raw)
	}
	return ContextID(v), nil
}

// Context is a named collection of documents
type Context struct {
	ID            ContextID
	Name          string
	Description   string
	SharePointURL string
}

type ChunkMetadata struct {
	Filename   string    `json:"filename"`
	ContextID  ContextID `json:"context_id"`
	ChunkIndex int       `json:"chunk_index"`
}

// DocumentChunk is a bounded piece of an ingested document with its embedding
type DocumentChunk struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Embedding []float32     `json:"-"`
	Metadata  ChunkMetadata `json:"metadata"`
}

// ChunkID composes the identifier of the chunk at position index of filename
func ChunkID(contextID ContextID, filename string, index int) string {
	return fmt.Sprintf("%d_%s_%d", contextID, filename, index)
}

// SearchResult is a ranked chunk. Scores are only comparable within one strategy.
type SearchResult struct {
	Chunk DocumentChunk
	Score float64
}

type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Path describes which branch of the pipeline produced an answer
type Path string

const (
	PathEmptyContext Path = "EMPTY_CONTEXT"
	PathQuickMatch   Path = "QUICK_MATCH"
	PathNoMatch      Path = "NO_MATCH"
	PathSynthesized  Path = "SYNTHESIZED"
)

type Answer struct {
	QueryID string
	Text    string
	Sources []Source
	Path    Path
}
