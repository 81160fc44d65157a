package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/vecsearch/internal/gateway"
	"github.com/xxxsen/vecsearch/internal/model"
	"github.com/xxxsen/vecsearch/internal/repo"
	"go.uber.org/zap"
)

const (
	defaultCandidateCap   = 300
	defaultRelevanceFloor = 0.5
	defaultMappedBoost    = 0.08
	defaultRawBoost       = 0.05
	defaultSearchLimit    = 5
)

// FragmentSource supplies the bounded candidate rows the engine scores.
type FragmentSource interface {
	FetchCandidates(ctx context.Context, filter repo.CandidateFilter, limit int) ([]*model.Fragment, error)
}

type embedSource interface {
	Embed(ctx context.Context, text string) (gateway.EmbedResult, error)
}

type EngineConfig struct {
	CandidateCap   int
	RelevanceFloor float64
	MappedBoost    float64
	RawBoost       float64
}

func (c *EngineConfig) fill() {
	if c.CandidateCap <= 0 {
		c.CandidateCap = defaultCandidateCap
	}
	if c.RelevanceFloor <= 0 {
		c.RelevanceFloor = defaultRelevanceFloor
	}
	if c.MappedBoost <= 0 {
		c.MappedBoost = defaultMappedBoost
	}
	if c.RawBoost <= 0 {
		c.RawBoost = defaultRawBoost
	}
}

// Engine runs brute-force similarity search: expand the query, embed it,
// scan a bounded candidate set, score with cosine similarity plus
// cross-lingual boosts, then rank.
type Engine struct {
	source   FragmentSource
	embedder embedSource
	expander *Expander
	cfg      EngineConfig
}

func NewEngine(source FragmentSource, embedder embedSource, expander *Expander, cfg EngineConfig) *Engine {
	cfg.fill()
	return &Engine{source: source, embedder: embedder, expander: expander, cfg: cfg}
}

// Search returns at most limit results ranked by similarity descending. The
// strategyFilter restricts the scan to fragments ingested under one chunking
// strategy; callers outside the comparator leave it empty.
func (e *Engine) Search(ctx context.Context, query string, limit int, sourceFilter string, strategyFilter string) ([]*model.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	logger := logutil.GetLogger(ctx)
	exp := e.expander.Expand(ctx, query)
	embedRes, err := e.embedder.Embed(ctx, exp.EmbeddingQuery())
	if err != nil {
		return nil, err
	}
	if embedRes.Degraded {
		logger.Warn("query embedding degraded, result quality will suffer", zap.String("reason", embedRes.Reason))
	}
	candidates, err := e.source.FetchCandidates(ctx, repo.CandidateFilter{
		Source:   sourceFilter,
		Terms:    exp.FilterTerms(),
		Strategy: strategyFilter,
	}, e.cfg.CandidateCap)
	if err != nil {
		return nil, err
	}
	results := make([]*model.SearchResult, 0, len(candidates))
	skipped := 0
	for _, frag := range candidates {
		meta, err := model.ParseFragmentMetadata(frag.Metadata)
		if err != nil || meta.Embedding == nil {
			// One bad row never fails the search.
			skipped++
			continue
		}
		sim := cosineSimilarity(ctx, embedRes.Vector, meta.Embedding)
		if exp.CrossLingual {
			sim = e.applyCrossLingualBoost(ctx, frag, exp, sim)
		}
		sim = clamp01(sim)
		results = append(results, &model.SearchResult{
			ID:         frag.ID,
			Title:      frag.Title,
			Content:    frag.Title,
			Metadata:   meta.User,
			Similarity: sim,
			Source:     metadataSource(meta.User),
			ChunkInfo:  metadataChunkInfo(meta.User),
		})
	}
	if skipped > 0 {
		logger.Debug("skipped candidates with unusable metadata", zap.Int("skipped", skipped))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) > 0 && results[0].Similarity < e.cfg.RelevanceFloor {
		logger.Warn("top similarity below relevance floor",
			zap.Float64("similarity", results[0].Similarity),
			zap.Float64("floor", e.cfg.RelevanceFloor))
	}
	return results, nil
}

// applyCrossLingualBoost rewards candidates whose title carries mapped
// English equivalents (+MappedBoost each) or raw query terms (+RawBoost
// each).
func (e *Engine) applyCrossLingualBoost(ctx context.Context, frag *model.Fragment, exp *Expansion, sim float64) float64 {
	boost := 0.0
	loweredTitle := strings.ToLower(frag.Title)
	for _, term := range exp.MappedTerms {
		if strings.Contains(loweredTitle, strings.ToLower(term)) {
			boost += e.cfg.MappedBoost
		}
	}
	for _, term := range strings.Fields(exp.Original) {
		if len(term) > 1 && strings.Contains(frag.Title, term) {
			boost += e.cfg.RawBoost
		}
	}
	if boost == 0 {
		return sim
	}
	boosted := sim + boost
	if boosted > 1.0 {
		boosted = 1.0
	}
	logutil.GetLogger(ctx).Debug("cross-lingual boost applied",
		zap.Int64("id", frag.ID),
		zap.Float64("base", sim),
		zap.Float64("boosted", boosted))
	return boosted
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func metadataSource(meta map[string]interface{}) string {
	if v, ok := meta["pdf_filename"].(string); ok && v != "" {
		return v
	}
	if v, ok := meta["source"].(string); ok && v != "" {
		return v
	}
	return "Unknown source"
}

func metadataChunkInfo(meta map[string]interface{}) string {
	idx := metadataInt(meta, "chunk_index")
	total := metadataInt(meta, "total_chunks")
	return fmt.Sprintf("%s/%s", idx, total)
}

func metadataInt(meta map[string]interface{}, key string) string {
	switch v := meta[key].(type) {
	case float64:
		return fmt.Sprintf("%d", int(v))
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return "?"
	}
}
