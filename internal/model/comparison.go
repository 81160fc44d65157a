package model

// StrategyStats summarizes one chunking strategy's showing for a query.
type StrategyStats struct {
	Count         int            `json:"count"`
	AvgSimilarity float64        `json:"avg_similarity"`
	TimeMS        int64          `json:"time_ms"`
	Documents     []SearchResult `json:"documents"`
}

// StrategyComparison reports a head-to-head run of two chunking strategies
// against the same query. Constructed per comparison call, never persisted.
type StrategyComparison struct {
	PerStrategy  map[string]StrategyStats `json:"per_strategy"`
	BestStrategy string                   `json:"best_strategy"`
	Reasoning    string                   `json:"reasoning"`
}
