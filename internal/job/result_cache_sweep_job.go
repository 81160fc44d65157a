package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/vecsearch/internal/resultcache"
	"go.uber.org/zap"
)

// ResultCacheSweepJob evicts expired result-cache entries so entries that are
// never read again do not pin memory until the next lookup.
type ResultCacheSweepJob struct {
	cache *resultcache.Cache
}

func NewResultCacheSweepJob(cache *resultcache.Cache) *ResultCacheSweepJob {
	return &ResultCacheSweepJob{cache: cache}
}

func (j *ResultCacheSweepJob) Name() string {
	return "result_cache_sweep"
}

func (j *ResultCacheSweepJob) Run(ctx context.Context) error {
	if j.cache == nil {
		return nil
	}
	removed := j.cache.SweepExpired()
	logutil.GetLogger(ctx).Info("result cache sweep done",
		zap.Int("removed", removed),
		zap.Int("remaining", j.cache.Len()))
	return nil
}
