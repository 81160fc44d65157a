package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	DSN       string           `json:"dsn"`
	LogConfig logger.LogConfig `json:"log_config"`
	AI        AIConfig         `json:"ai"`
	RateLimit RateLimitConfig  `json:"rate_limit"`
	Cache     CacheConfig      `json:"cache"`
	Chunking  ChunkingConfig   `json:"chunking"`
	Search    SearchConfig     `json:"search"`
	Jobs      JobsConfig       `json:"jobs"`
}

type AIConfig struct {
	Provider      string                 `json:"provider"`
	EmbedProvider string                 `json:"embed_provider"`
	Data          map[string]interface{} `json:"data"`
	EmbedModel    string                 `json:"embed_model"`
	EmbedDim      int                    `json:"embed_dim"`
	SimpleModel   string                 `json:"simple_model"`
	NormalModel   string                 `json:"normal_model"`
	ComplexModel  string                 `json:"complex_model"`

	// Optional secondary embedding provider tried when the primary fails.
	FallbackEmbedProvider string                 `json:"fallback_embed_provider"`
	FallbackEmbedModel    string                 `json:"fallback_embed_model"`
	FallbackData          map[string]interface{} `json:"fallback_data"`
}

// FallbackProviderData returns the provider config for the fallback embedder,
// defaulting to the primary's data block when no dedicated one is set.
func (c *AIConfig) FallbackProviderData() map[string]interface{} {
	if len(c.FallbackData) > 0 {
		return c.FallbackData
	}
	return c.Data
}

type RateLimitConfig struct {
	MaxRequests   int `json:"max_requests"`
	WindowSeconds int `json:"window_seconds"`
}

type CacheConfig struct {
	EmbedTTLHours      int `json:"embed_ttl_hours"`
	CompletionTTLMins  int `json:"completion_ttl_mins"`
	CompletionSize     int `json:"completion_size"`
	EmbedLRUSize       int `json:"embed_lru_size"`
	EmbedLRUTTLMins    int `json:"embed_lru_ttl_mins"`
	SearchTTLMins      int `json:"search_ttl_mins"`
	DBCacheMaxAgeDays  int `json:"db_cache_max_age_days"`
}

type ChunkingConfig struct {
	ChunkSize         int `json:"chunk_size"`
	Overlap           int `json:"overlap"`
	ShortDocThreshold int `json:"short_doc_threshold"`
	HardMaxChunkSize  int `json:"hard_max_chunk_size"`
}

type SearchConfig struct {
	CandidateCap   int     `json:"candidate_cap"`
	RelevanceFloor float64 `json:"relevance_floor"`
	DefaultLimit   int     `json:"default_limit"`
}

type JobsConfig struct {
	ResultCacheSweepCron  string `json:"result_cache_sweep_cron"`
	EmbedCacheCleanupCron string `json:"embed_cache_cleanup_cron"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = cfg.AI.Provider
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.SimpleModel == "" {
		return nil, fmt.Errorf("ai.simple_model is required")
	}
	if cfg.AI.NormalModel == "" {
		cfg.AI.NormalModel = cfg.AI.SimpleModel
	}
	if cfg.AI.ComplexModel == "" {
		cfg.AI.ComplexModel = cfg.AI.NormalModel
	}
	if cfg.AI.EmbedDim == 0 {
		cfg.AI.EmbedDim = 768
	}
	if cfg.AI.FallbackEmbedProvider != "" && cfg.AI.FallbackEmbedModel == "" {
		return nil, fmt.Errorf("ai.fallback_embed_model is required when ai.fallback_embed_provider is set")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 60
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.Cache.EmbedTTLHours == 0 {
		cfg.Cache.EmbedTTLHours = 24
	}
	if cfg.Cache.CompletionTTLMins == 0 {
		cfg.Cache.CompletionTTLMins = 30
	}
	if cfg.Cache.CompletionSize == 0 {
		cfg.Cache.CompletionSize = 256
	}
	if cfg.Cache.EmbedLRUSize == 0 {
		cfg.Cache.EmbedLRUSize = 2048
	}
	if cfg.Cache.EmbedLRUTTLMins == 0 {
		cfg.Cache.EmbedLRUTTLMins = 60
	}
	if cfg.Cache.SearchTTLMins == 0 {
		cfg.Cache.SearchTTLMins = 60
	}
	if cfg.Cache.DBCacheMaxAgeDays == 0 {
		cfg.Cache.DBCacheMaxAgeDays = 30
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 200
	}
	if cfg.Chunking.ShortDocThreshold == 0 {
		cfg.Chunking.ShortDocThreshold = 500
	}
	if cfg.Search.CandidateCap == 0 {
		cfg.Search.CandidateCap = 300
	}
	if cfg.Search.RelevanceFloor == 0 {
		cfg.Search.RelevanceFloor = 0.5
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 5
	}
	if cfg.Jobs.ResultCacheSweepCron == "" {
		cfg.Jobs.ResultCacheSweepCron = "@every 10m"
	}
	if cfg.Jobs.EmbedCacheCleanupCron == "" {
		cfg.Jobs.EmbedCacheCleanupCron = "@daily"
	}
	return &cfg, nil
}
