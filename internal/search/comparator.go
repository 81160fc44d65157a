package search

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/vecsearch/internal/chunker"
	"github.com/xxxsen/vecsearch/internal/model"
	"go.uber.org/zap"
)

const (
	similarityWeight = 10.0
	coverageWeight   = 0.5
	coverageCap      = 5.0
	speedNumerator   = 2000.0
	speedFloorMS     = 100.0
	speedCap         = 1.0
)

// Comparator runs the search engine under competing chunking strategies and
// scores which one served the query better.
type Comparator struct {
	engine *Engine
}

func NewComparator(engine *Engine) *Comparator {
	return &Comparator{engine: engine}
}

// Compare searches fragments tagged fixed_size against those tagged
// intelligent. Score = similarity component + coverage component + speed
// component; ties and all-empty runs default to fixed_size.
func (c *Comparator) Compare(ctx context.Context, query string, limit int) (*model.StrategyComparison, error) {
	strategies := []string{string(chunker.StrategyFixedSize), string(chunker.StrategyIntelligent)}
	perStrategy := make(map[string]model.StrategyStats, len(strategies))
	scores := make(map[string]float64, len(strategies))
	for _, strategy := range strategies {
		start := time.Now()
		results, err := c.engine.Search(ctx, query, limit, "", strategy)
		if err != nil {
			return nil, fmt.Errorf("search under %s: %w", strategy, err)
		}
		elapsed := time.Since(start).Milliseconds()
		stats := buildStats(results, elapsed)
		perStrategy[strategy] = stats
		scores[strategy] = scoreStrategy(stats)
		logutil.GetLogger(ctx).Info("strategy evaluated",
			zap.String("strategy", strategy),
			zap.Int("count", stats.Count),
			zap.Float64("avg_similarity", stats.AvgSimilarity),
			zap.Int64("time_ms", stats.TimeMS),
			zap.Float64("score", scores[strategy]))
	}
	best, reasoning := decideWinner(perStrategy, scores)
	return &model.StrategyComparison{
		PerStrategy:  perStrategy,
		BestStrategy: best,
		Reasoning:    reasoning,
	}, nil
}

func buildStats(results []*model.SearchResult, elapsedMS int64) model.StrategyStats {
	stats := model.StrategyStats{
		Count:  len(results),
		TimeMS: elapsedMS,
	}
	if len(results) == 0 {
		return stats
	}
	sum := 0.0
	docs := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		sum += r.Similarity
		docs = append(docs, *r)
	}
	stats.AvgSimilarity = sum / float64(len(results))
	stats.Documents = docs
	return stats
}

func scoreStrategy(stats model.StrategyStats) float64 {
	if stats.Count == 0 {
		return 0
	}
	similarity := stats.AvgSimilarity * similarityWeight
	coverage := float64(stats.Count) * coverageWeight
	if coverage > coverageCap {
		coverage = coverageCap
	}
	ms := float64(stats.TimeMS)
	if ms < speedFloorMS {
		ms = speedFloorMS
	}
	speed := speedNumerator / ms
	if speed > speedCap {
		speed = speedCap
	}
	return similarity + coverage + speed
}

func decideWinner(perStrategy map[string]model.StrategyStats, scores map[string]float64) (string, string) {
	fixed := string(chunker.StrategyFixedSize)
	intelligent := string(chunker.StrategyIntelligent)
	fixedStats := perStrategy[fixed]
	intelStats := perStrategy[intelligent]

	if fixedStats.Count == 0 && intelStats.Count == 0 {
		return fixed, "No relevant documents were found under either strategy; defaulting to fixed_size."
	}
	if intelStats.Count == 0 {
		return fixed, "Only fixed_size chunking returned relevant documents."
	}
	if fixedStats.Count == 0 {
		return intelligent, "Only intelligent chunking returned relevant documents."
	}
	if scores[intelligent] > scores[fixed] {
		return intelligent, winnerReason("intelligent", intelStats, fixedStats)
	}
	// Ties fall to fixed_size.
	return fixed, winnerReason("fixed_size", fixedStats, intelStats)
}

// winnerReason picks a template based on which sub-component decided the
// outcome.
func winnerReason(winner string, won, lost model.StrategyStats) string {
	switch {
	case won.AvgSimilarity > lost.AvgSimilarity:
		return fmt.Sprintf("%s chunking won with higher average similarity (%.4f vs %.4f).", winner, won.AvgSimilarity, lost.AvgSimilarity)
	case won.Count > lost.Count:
		return fmt.Sprintf("%s chunking won by returning more relevant documents (%d vs %d).", winner, won.Count, lost.Count)
	case won.TimeMS < lost.TimeMS:
		return fmt.Sprintf("%s chunking won on retrieval speed (%dms vs %dms).", winner, won.TimeMS, lost.TimeMS)
	default:
		return fmt.Sprintf("%s chunking won on the combined score.", winner)
	}
}
