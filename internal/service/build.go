package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/vecsearch/internal/ai"
	"github.com/xxxsen/vecsearch/internal/chunker"
	"github.com/xxxsen/vecsearch/internal/config"
	"github.com/xxxsen/vecsearch/internal/embedcache"
	"github.com/xxxsen/vecsearch/internal/gateway"
	"github.com/xxxsen/vecsearch/internal/job"
	"github.com/xxxsen/vecsearch/internal/ratelimit"
	"github.com/xxxsen/vecsearch/internal/repo"
	"github.com/xxxsen/vecsearch/internal/resultcache"
	"github.com/xxxsen/vecsearch/internal/schedule"
	"github.com/xxxsen/vecsearch/internal/search"
)

// Runtime bundles the built service with the pieces that need lifecycle
// management: the shared caches and the background job scheduler.
type Runtime struct {
	Service *RetrievalService

	cfg       *config.Config
	results   *resultcache.Cache
	cacheRepo *repo.EmbeddingCacheRepo
	scheduler schedule.Scheduler
}

// Build wires the full dependency graph from config: providers, the embedding
// cache chain, gateways, planner, search engine and the service facade.
func Build(cfg *config.Config, db *sqlx.DB) (*Runtime, error) {
	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("create ai provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("create embed provider: %w", err)
	}
	limiter := ratelimit.New(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)

	fragmentRepo := repo.NewFragmentRepo(db)
	cacheRepo := repo.NewEmbeddingCacheRepo(db)

	embedder := ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel)
	if cfg.AI.FallbackEmbedProvider != "" {
		fallbackProvider, err := ai.NewEmbedProvider(cfg.AI.FallbackEmbedProvider, cfg.AI.FallbackProviderData())
		if err != nil {
			return nil, fmt.Errorf("create fallback embed provider: %w", err)
		}
		embedder = ai.NewGroupEmbedder([]ai.EmbedderEntry{
			{Name: cfg.AI.EmbedModel, Embedder: embedder},
			{Name: cfg.AI.FallbackEmbedModel, Embedder: ai.NewEmbedder(fallbackProvider, cfg.AI.FallbackEmbedModel)},
		})
	}
	// Rate limiting sits innermost so cache hits never consume a quota slot.
	embedder = embedcache.WrapRateLimitToEmbedder(embedder, limiter)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.Cache.EmbedLRUSize,
		time.Duration(cfg.Cache.EmbedLRUTTLMins)*time.Minute)

	results := resultcache.New()
	embedGateway := gateway.NewEmbedder(embedder, results, gateway.EmbedderConfig{
		Dim:      cfg.AI.EmbedDim,
		CacheTTL: time.Duration(cfg.Cache.EmbedTTLHours) * time.Hour,
	})
	completer := gateway.NewCompleter(provider, limiter, gateway.CompleterConfig{
		SimpleModel:  cfg.AI.SimpleModel,
		NormalModel:  cfg.AI.NormalModel,
		ComplexModel: cfg.AI.ComplexModel,
		CacheSize:    cfg.Cache.CompletionSize,
		CacheTTL:     time.Duration(cfg.Cache.CompletionTTLMins) * time.Minute,
	})

	planner := chunker.NewPlanner(completer, chunker.PlannerConfig{
		ChunkSize:         cfg.Chunking.ChunkSize,
		Overlap:           cfg.Chunking.Overlap,
		ShortDocThreshold: cfg.Chunking.ShortDocThreshold,
		HardMaxChunkSize:  cfg.Chunking.HardMaxChunkSize,
	})
	engine := search.NewEngine(fragmentRepo, embedGateway, search.NewExpander(completer), search.EngineConfig{
		CandidateCap:   cfg.Search.CandidateCap,
		RelevanceFloor: cfg.Search.RelevanceFloor,
	})
	comparator := search.NewComparator(engine)

	svc := NewRetrievalService(fragmentRepo, embedGateway, planner, engine, comparator, completer,
		results, time.Duration(cfg.Cache.SearchTTLMins)*time.Minute)
	return &Runtime{
		Service:   svc,
		cfg:       cfg,
		results:   results,
		cacheRepo: cacheRepo,
		scheduler: schedule.NewCronScheduler(),
	}, nil
}

// Start registers the maintenance jobs and starts the scheduler.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.scheduler.AddJob(job.NewResultCacheSweepJob(r.results), r.cfg.Jobs.ResultCacheSweepCron); err != nil {
		return err
	}
	if err := r.scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(r.cacheRepo, r.cfg.Cache.DBCacheMaxAgeDays), r.cfg.Jobs.EmbedCacheCleanupCron); err != nil {
		return err
	}
	r.scheduler.Start(ctx)
	return nil
}

// Stop waits for in-flight jobs to finish.
func (r *Runtime) Stop() {
	r.scheduler.Stop()
}
