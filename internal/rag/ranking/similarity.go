// Package ranking orders a context's chunks against a query.
package ranking

import (
	"cmp"
	"math"
	"slices"

	"github.com/futig/context-rag/internal/entity"
)

// CosineSimilarity is 0 when either vector has zero norm or the lengths differ
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}

// RankByVector scores chunks by cosine similarity to query and keeps the
// best limit results scoring above minScore. Ties keep chunk order.
func RankByVector(query []float32, chunks []entity.DocumentChunk, limit int, minScore float64) []entity.SearchResult {
	results := make([]entity.SearchResult, 0, len(chunks))
	for _, c := range chunks {
		if score := CosineSimilarity(query, c.Embedding); score > minScore {
			results = append(results, entity.SearchResult{Chunk: c, Score: score})
		}
	}

	return top(results, limit)
}

func top(results []entity.SearchResult, limit int) []entity.SearchResult {
	slices.SortStableFunc(results, func(a, b entity.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results
}
