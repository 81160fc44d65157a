package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/vecsearch/internal/ai"
	"github.com/xxxsen/vecsearch/internal/ratelimit"
	"go.uber.org/zap"
)

// Complexity selects the model tier and reasoning budget for a completion.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityNormal  Complexity = "normal"
	ComplexityComplex Complexity = "complex"
)

const (
	thinkingBudgetNormal  = 1024
	thinkingBudgetComplex = 8192

	defaultCompletionCacheSize = 256
	defaultCompletionCacheTTL  = 30 * time.Minute

	// Returned when every tier and retry is exhausted. Failures surface as
	// text so callers in the steady-state path never see a hard error.
	completionFallbackText = "I'm sorry, but I couldn't generate a response at this time. Please try again later."
)

type CompleterConfig struct {
	SimpleModel  string
	NormalModel  string
	ComplexModel string

	MaxRetries     int
	GenericRetries int
	BackoffBase    time.Duration
	CacheSize      int
	CacheTTL       time.Duration
}

func (c *CompleterConfig) fill() {
	if c.NormalModel == "" {
		c.NormalModel = c.SimpleModel
	}
	if c.ComplexModel == "" {
		c.ComplexModel = c.NormalModel
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
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCompletionCacheSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCompletionCacheTTL
	}
}

// Completer is the completion gateway: complexity-tiered model selection,
// prompt-level caching, retry with backoff, and a one-shot fallback to the
// lowest tier before giving up.
type Completer struct {
	provider ai.IAIProvider
	limiter  *ratelimit.Limiter
	cache    *expirable.LRU[string, string]
	cfg      CompleterConfig
}

func NewCompleter(provider ai.IAIProvider, limiter *ratelimit.Limiter, cfg CompleterConfig) *Completer {
	cfg.fill()
	return &Completer{
		provider: provider,
		limiter:  limiter,
		cache:    expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
		cfg:      cfg,
	}
}

// Complete generates text for prompt, prepending contextText when present.
// The only error it returns is context cancellation; generation failures
// degrade through the lower tier and finally to a static apology string.
func (c *Completer) Complete(ctx context.Context, prompt string, contextText string, complexity Complexity, useCache bool) (string, error) {
	fullPrompt := prompt
	if contextText != "" {
		fullPrompt = contextText + "\n\n" + prompt
	}
	cacheKey := completionCacheKey(fullPrompt, complexity)
	if useCache {
		if cached, ok := c.cache.Get(cacheKey); ok {
			logutil.GetLogger(ctx).Debug("completion cache hit", zap.String("complexity", string(complexity)))
			return cached, nil
		}
	}
	model, budget := c.selectTier(complexity)
	res, err := c.generateWithRetry(ctx, model, fullPrompt, budget)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if model != c.cfg.SimpleModel && c.cfg.SimpleModel != "" {
			logutil.GetLogger(ctx).Warn("completion failed, falling back to base model",
				zap.String("model", model),
				zap.String("fallback", c.cfg.SimpleModel),
				zap.Error(err))
			res, err = c.generateWithRetry(ctx, c.cfg.SimpleModel, fullPrompt, 0)
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// The apology is never cached: the next call with the same prompt
		// must reach the upstream again once it recovers.
		logutil.GetLogger(ctx).Error("completion failed on all tiers", zap.Error(err))
		return completionFallbackText, nil
	}
	if useCache {
		c.cache.Add(cacheKey, res)
	}
	return res, nil
}

func (c *Completer) selectTier(complexity Complexity) (string, int32) {
	switch complexity {
	case ComplexitySimple:
		return c.cfg.SimpleModel, 0
	case ComplexityComplex:
		return c.cfg.ComplexModel, thinkingBudgetComplex
	default:
		return c.cfg.NormalModel, thinkingBudgetNormal
	}
}

func (c *Completer) generateWithRetry(ctx context.Context, model string, prompt string, budget int32) (string, error) {
	logger := logutil.GetLogger(ctx)
	var lastErr error
	quotaAttempt := 0
	genericAttempt := 0
	for {
		if c.limiter != nil {
			if err := c.limiter.WaitIfNeeded(ctx); err != nil {
				return "", err
			}
		}
		res, err := c.provider.Generate(ctx, model, prompt, &ai.GenerateOptions{ThinkingBudget: budget})
		if err == nil && res != "" {
			return res, nil
		}
		if err == nil {
			err = fmt.Errorf("upstream returned empty completion")
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		var wait time.Duration
		if ai.IsQuotaError(err) {
			if quotaAttempt >= c.cfg.MaxRetries {
				return "", lastErr
			}
			wait = c.cfg.BackoffBase*time.Duration(1<<quotaAttempt) + time.Duration(rand.Float64()*float64(time.Second))
			logger.Warn("completion quota exhausted, backing off",
				zap.String("model", model),
				zap.Int("attempt", quotaAttempt+1),
				zap.Duration("wait", wait),
				zap.Error(err))
			quotaAttempt++
		} else {
			if genericAttempt >= c.cfg.GenericRetries {
				return "", lastErr
			}
			wait = c.cfg.BackoffBase * time.Duration(genericAttempt+1) / 2
			logger.Warn("completion call failed, retrying",
				zap.String("model", model),
				zap.Int("attempt", genericAttempt+1),
				zap.Duration("wait", wait),
				zap.Error(err))
			genericAttempt++
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return "", err
		}
	}
}

func completionCacheKey(fullPrompt string, complexity Complexity) string {
	sum := sha256.Sum256([]byte(fullPrompt + "\x1f" + string(complexity)))
	return hex.EncodeToString(sum[:])
}
