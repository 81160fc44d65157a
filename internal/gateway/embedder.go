package gateway

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/vecsearch/internal/ai"
	"github.com/xxxsen/vecsearch/internal/resultcache"
	"go.uber.org/zap"
)

const (
	taskTypeSemanticSimilarity = "SEMANTIC_SIMILARITY"

	defaultEmbedDim       = 768
	defaultEmbedRetries   = 3
	defaultGenericRetries = 1
	defaultBackoffBase    = 2 * time.Second
	defaultBatchDelay     = 1 * time.Second
)

// EmbedResult carries the vector plus a degraded marker. A degraded result is
// a synthetic vector produced after retry exhaustion; callers that care about
// search quality can inspect Degraded instead of receiving noise silently.
type EmbedResult struct {
	Vector   []float32
	Degraded bool
	Reason   string
}

type EmbedderConfig struct {
	Dim            int
	MaxRetries     int
	GenericRetries int
	BackoffBase    time.Duration
	CacheTTL       time.Duration
	BatchDelay     time.Duration
}

func (c *EmbedderConfig) fill() {
	if c.Dim <= 0 {
		c.Dim = defaultEmbedDim
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultEmbedRetries
	}
	if c.GenericRetries <= 0 {
		c.GenericRetries = defaultGenericRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = defaultBatchDelay
	}
}

// Embedder is the embedding gateway: fixed output dimension, result-cache
// memoization, retry with backoff, and a degraded random-vector fallback when
// the upstream stays unavailable. The wrapped embedder is expected to carry
// its own cache and rate-limit tiers.
type Embedder struct {
	next  ai.IEmbedder
	cache *resultcache.Cache
	cfg   EmbedderConfig
}

func NewEmbedder(next ai.IEmbedder, cache *resultcache.Cache, cfg EmbedderConfig) *Embedder {
	cfg.fill()
	return &Embedder{next: next, cache: cache, cfg: cfg}
}

func (e *Embedder) Dim() int {
	return e.cfg.Dim
}

// Embed returns a vector of exactly Dim entries. The only error it surfaces
// is context cancellation; every upstream failure is absorbed into a degraded
// result so ingest and search keep moving.
func (e *Embedder) Embed(ctx context.Context, text string) (EmbedResult, error) {
	if strings.TrimSpace(text) == "" {
		return EmbedResult{Vector: make([]float32, e.cfg.Dim)}, nil
	}
	key := resultcache.NewKey("embed", e.next.ModelName(), taskTypeSemanticSimilarity, text)
	return resultcache.Memoize(ctx, e.cache, key, e.cfg.CacheTTL, func(ctx context.Context) (EmbedResult, error) {
		return e.embedWithRetry(ctx, text)
	})
}

func (e *Embedder) embedWithRetry(ctx context.Context, text string) (EmbedResult, error) {
	logger := logutil.GetLogger(ctx)
	var lastErr error
	quotaAttempt := 0
	genericAttempt := 0
	for {
		vec, err := e.next.Embed(ctx, text, taskTypeSemanticSimilarity)
		if err == nil && len(vec) > 0 {
			return EmbedResult{Vector: normalizeDim(vec, e.cfg.Dim)}, nil
		}
		if err == nil {
			err = fmt.Errorf("upstream returned empty embedding")
		}
		if ctx.Err() != nil {
			return EmbedResult{}, ctx.Err()
		}
		lastErr = err
		var wait time.Duration
		if ai.IsQuotaError(err) {
			if quotaAttempt >= e.cfg.MaxRetries {
				break
			}
			wait = e.cfg.BackoffBase*time.Duration(1<<quotaAttempt) + time.Duration(rand.Float64()*float64(time.Second))
			logger.Warn("embedding quota exhausted, backing off",
				zap.Int("attempt", quotaAttempt+1),
				zap.Int("max_retries", e.cfg.MaxRetries),
				zap.Duration("wait", wait),
				zap.Error(err))
			quotaAttempt++
		} else {
			if genericAttempt >= e.cfg.GenericRetries {
				break
			}
			wait = e.cfg.BackoffBase * time.Duration(genericAttempt+1) / 2
			logger.Warn("embedding call failed, retrying",
				zap.Int("attempt", genericAttempt+1),
				zap.Duration("wait", wait),
				zap.Error(err))
			genericAttempt++
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return EmbedResult{}, err
		}
	}
	logger.Warn("embedding retries exhausted, falling back to random vector", zap.Error(lastErr))
	return EmbedResult{
		Vector:   randomVector(e.cfg.Dim),
		Degraded: true,
		Reason:   lastErr.Error(),
	}, nil
}

// EmbedBatch embeds texts in order. Items within a batch run concurrently,
// batches run sequentially with a short delay in between so a large import
// does not stampede the upstream quota. A batchSize <= 0 auto-scales with the
// input volume.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([]EmbedResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = autoBatchSize(len(texts))
	}
	logger := logutil.GetLogger(ctx)
	results := make([]EmbedResult, len(texts))
	errs := make([]error, len(texts))
	start := time.Now()
	total := (len(texts) + batchSize - 1) / batchSize
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		var wg sync.WaitGroup
		for idx := i; idx < end; idx++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx], errs[idx] = e.Embed(ctx, texts[idx])
			}(idx)
		}
		wg.Wait()
		for idx := i; idx < end; idx++ {
			if errs[idx] != nil {
				return nil, errs[idx]
			}
		}
		done := end
		elapsed := time.Since(start)
		rate := float64(done) / maxFloat(elapsed.Seconds(), 0.001)
		eta := time.Duration(float64(len(texts)-done)/maxFloat(rate, 0.001)) * time.Second
		logger.Info("embedding batch done",
			zap.Int("batch", i/batchSize+1),
			zap.Int("total_batches", total),
			zap.Int("done", done),
			zap.Int("total", len(texts)),
			zap.Float64("per_second", rate),
			zap.Duration("eta", eta))
		if end < len(texts) {
			if err := sleepCtx(ctx, e.cfg.BatchDelay); err != nil {
				return nil, err
			}
		}
	}
	return results, nil
}

func autoBatchSize(total int) int {
	switch {
	case total <= 20:
		return 5
	case total <= 100:
		return 10
	default:
		return 20
	}
}

// normalizeDim truncates longer vectors and zero-pads shorter ones so every
// stored embedding has the same length.
func normalizeDim(vec []float32, dim int) []float32 {
	out := make([]float32, dim)
	copy(out, vec)
	return out
}

func randomVector(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = rand.Float32()
	}
	return vec
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
