// Package synthesizer turns ranked chunks into an answer.
package synthesizer

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/futig/context-rag/internal/entity"
	"github.com/futig/context-rag/internal/rag/ranking"
)

const (
	NoRelevantInfoMessage = "No relevant information found in the documents for your query."
	NoResponseMessage     = "No response generated."

	DefaultMaxContextChars = 2000

	contextSeparator = "\n\n---\n\n"
)

// BuildContext labels each chunk with its filename, joins them and cuts
// the result to maxChars characters.
func BuildContext(results []entity.SearchResult, maxChars int) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, "From "+r.Chunk.Metadata.Filename+":\n"+r.Chunk.Content)
	}

	text := strings.Join(parts, contextSeparator)
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}

	return truncateRunes(text, maxChars)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Extractive answers without a generation backend by quoting the sentences
// of each chunk that mention a query word.
type Extractive struct{}

func NewExtractive() *Extractive {
	return &Extractive{}
}

func (e *Extractive) Generate(_ context.Context, query string, results []entity.SearchResult) (string, error) {
	if len(results) == 0 {
		return NoRelevantInfoMessage, nil
	}

	var b strings.Builder
	b.WriteString("Based on the documents, here's what I found about \"" + query + "\":\n\n")

	for _, r := range results {
		b.WriteString("From " + r.Chunk.Metadata.Filename + ":\n")
		b.WriteString(highlight(query, r.Chunk.Content))
		b.WriteString("\n\n")
	}

	return strings.TrimSpace(b.String()), nil
}

// Suggest is not supported without a generation backend
func (e *Extractive) Suggest(context.Context, string, string) ([]string, error) {
	return nil, nil
}

const (
	maxHighlightSentences = 3
	highlightPreviewChars = 200
)

func highlight(query, content string) string {
	words := ranking.KeywordTokens(query)

	var picked []string
	for _, s := range strings.FieldsFunc(content, func(r rune) bool { return r == '.' || r == '!' || r == '?' }) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		lower := strings.ToLower(s)
		for _, w := range words {
			if strings.Contains(lower, w) {
				picked = append(picked, s)
				break
			}
		}
		if len(picked) == maxHighlightSentences {
			break
		}
	}

	if len(picked) > 0 {
		return strings.Join(picked, ". ") + "."
	}

	preview := truncateRunes(content, highlightPreviewChars)
	if len(preview) < len(content) {
		preview += "..."
	}
	return preview
}
