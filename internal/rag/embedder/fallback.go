package embedder

import (
	"math"
	"regexp"
	"strings"
)

// FallbackDimensions is the size of hash-based pseudo-embeddings
const FallbackDimensions = 384

var nonWordRe = regexp.MustCompile(`\W+`)

// Fallback builds a deterministic bag-of-hashed-words vector. Every token
// longer than two characters adds 1/sqrt(tokenCount) to its bucket and the
// result is L2-normalized. Text without such tokens yields the zero vector.
func Fallback(text string) []float32 {
	var tokens []string
	for _, w := range nonWordRe.Split(strings.ToLower(text), -1) {
		if len(w) > 2 {
			tokens = append(tokens, w)
		}
	}

	acc := make([]float64, FallbackDimensions)
	if len(tokens) == 0 {
		return make([]float32, FallbackDimensions)
	}

	weight := 1 / math.Sqrt(float64(len(tokens)))
	for _, tok := range tokens {
		acc[bucket(tok)] += weight
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, FallbackDimensions)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}

	return out
}

// bucket hashes with h = h*31 + c over 32-bit signed arithmetic
func bucket(token string) int {
	var h int32
	for i := 0; i < len(token); i++ {
		h = h*31 + int32(token[i])
	}

	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}

	return int(abs % FallbackDimensions)
}
