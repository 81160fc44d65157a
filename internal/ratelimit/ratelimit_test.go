package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitIfNeeded_AdmitsUpToMax(t *testing.T) {
	limiter := New(3, time.Minute)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.WaitIfNeeded(ctx))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
	require.Equal(t, 3, limiter.Pending())
}

func TestWaitIfNeeded_WindowInvariant(t *testing.T) {
	const maxRequests = 2
	window := 80 * time.Millisecond
	limiter := New(maxRequests, window)
	ctx := context.Background()

	var completions []time.Time
	for i := 0; i < 6; i++ {
		require.NoError(t, limiter.WaitIfNeeded(ctx))
		completions = append(completions, time.Now())
	}

	// No window of length `window` may contain more than maxRequests
	// completions: the (i+max)-th completion must land at least a full
	// window after the i-th.
	for i := 0; i+maxRequests < len(completions); i++ {
		gap := completions[i+maxRequests].Sub(completions[i])
		require.GreaterOrEqual(t, gap, window-5*time.Millisecond,
			"completions %d and %d violate the window", i, i+maxRequests)
	}
}

func TestWaitIfNeeded_PruneReleasesSlots(t *testing.T) {
	base := time.Now()
	limiter := New(2, 10*time.Second)
	limiter.now = func() time.Time { return base }

	ctx := context.Background()
	require.NoError(t, limiter.WaitIfNeeded(ctx))
	require.NoError(t, limiter.WaitIfNeeded(ctx))
	require.Equal(t, 2, limiter.Pending())

	// Move past the window: old timestamps must be pruned.
	limiter.now = func() time.Time { return base.Add(11 * time.Second) }
	require.Equal(t, 0, limiter.Pending())
	require.NoError(t, limiter.WaitIfNeeded(ctx))
	require.Equal(t, 1, limiter.Pending())
}

func TestWaitIfNeeded_CancelAbortsWait(t *testing.T) {
	limiter := New(1, time.Minute)
	require.NoError(t, limiter.WaitIfNeeded(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := limiter.WaitIfNeeded(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
