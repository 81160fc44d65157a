package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Limiter bounds outbound calls to at most maxRequests per window. It keeps
// the timestamps of recent admissions and prunes them lazily on each check.
// State lives only in memory; nothing survives a restart.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	calls       []time.Time
	now         func() time.Time
}

func New(maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// WaitIfNeeded blocks until a new call is admitted under the configured
// window, or until ctx is cancelled. The prune/check/append sequence runs
// under a single lock; the sleep itself does not hold the lock so concurrent
// waiters stay cooperative.
func (l *Limiter) WaitIfNeeded(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.pruneLocked(now)
		if len(l.calls) < l.maxRequests {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}
		wait := l.calls[0].Add(l.window).Sub(now)
		l.mu.Unlock()
		if wait <= 0 {
			continue
		}
		logutil.GetLogger(ctx).Debug("rate limit reached, waiting",
			zap.Duration("wait", wait),
			zap.Int("max_requests", l.maxRequests),
			zap.Duration("window", l.window),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Pending returns the number of admissions still inside the window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.now())
	return len(l.calls)
}

func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	idx := 0
	for idx < len(l.calls) && !l.calls[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.calls = append(l.calls[:0], l.calls[idx:]...)
	}
}
