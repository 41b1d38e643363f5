package ranking

import (
	"strings"
	"unicode"

	"github.com/futig/context-rag/internal/entity"
)

// PhraseBonus is added once when a chunk contains the whole query
const PhraseBonus = 10

// KeywordTokens lowercases the query, splits it on whitespace and trims
// surrounding punctuation from every token.
func KeywordTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))

	tokens := fields[:0]
	for _, f := range fields {
		if tok := strings.TrimFunc(f, unicode.IsPunct); tok != "" {
			tokens = append(tokens, tok)
		}
	}

	return tokens
}

// KeywordScore counts occurrences of every query token in content
// (case-insensitive) and adds PhraseBonus for a full-query match.
func KeywordScore(query string, content string) float64 {
	lower := strings.ToLower(content)

	var score float64
	for _, tok := range KeywordTokens(query) {
		score += float64(strings.Count(lower, tok))
	}

	if phrase := strings.TrimSpace(strings.ToLower(query)); phrase != "" && strings.Contains(lower, phrase) {
		score += PhraseBonus
	}

	return score
}

// RankByKeywords keeps only chunks with a positive score, best first
func RankByKeywords(query string, chunks []entity.DocumentChunk, limit int) []entity.SearchResult {
	results := make([]entity.SearchResult, 0, len(chunks))
	for _, c := range chunks {
		if score := KeywordScore(query, c.Content); score > 0 {
			results = append(results, entity.SearchResult{Chunk: c, Score: score})
		}
	}

	return top(results, limit)
}
