package search

import (
	"context"
	"math"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// cosineSimilarity compares two vectors, truncating to the shorter dimension
// when they differ. Mismatched dimensions are a degraded comparison, not an
// error: logging it keeps the mismatch visible without failing the search.
func cosineSimilarity(ctx context.Context, a, b []float32) float64 {
	if len(a) != len(b) {
		logutil.GetLogger(ctx).Warn("vector dimension mismatch, truncating",
			zap.Int("left", len(a)),
			zap.Int("right", len(b)))
		min := len(a)
		if len(b) < min {
			min = len(b)
		}
		a = a[:min]
		b = b[:min]
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
