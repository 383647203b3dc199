// Package vectormath holds the similarity functions used to score candidates.
package vectormath

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch signals vectors of different lengths.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyVector signals a zero-length vector.
	ErrEmptyVector = errors.New("empty vector")
	// ErrZeroNorm signals a vector whose direction is undefined.
	ErrZeroNorm = errors.New("zero-norm vector")
)

// CosineSimilarity returns the cosine of the angle between a and b, clamped
// to [-1, 1]. Accumulation is done in float64.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, ErrEmptyVector
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, ErrZeroNorm
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, fmt.Errorf("cosine similarity is not finite: %v", sim)
	}
	return math.Max(-1, math.Min(1, sim)), nil
}
