package embedcache

import (
	"context"

	"github.com/xxxsen/vecsearch/internal/ai"
	"github.com/xxxsen/vecsearch/internal/ratelimit"
)

// WrapRateLimitToEmbedder gates upstream embedding calls with a shared
// limiter. Placed innermost so cache hits in the outer tiers never consume a
// request slot.
func WrapRateLimitToEmbedder(e ai.IEmbedder, limiter *ratelimit.Limiter) ai.IEmbedder {
	if e == nil || limiter == nil {
		return e
	}
	return &rateLimitedEmbedder{next: e, limiter: limiter}
}

type rateLimitedEmbedder struct {
	next    ai.IEmbedder
	limiter *ratelimit.Limiter
}

func (r *rateLimitedEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if err := r.limiter.WaitIfNeeded(ctx); err != nil {
		return nil, err
	}
	return r.next.Embed(ctx, text, taskType)
}

func (r *rateLimitedEmbedder) ModelName() string {
	if r == nil || r.next == nil {
		return ""
	}
	return r.next.ModelName()
}
