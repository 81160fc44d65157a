package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/vecsearch/internal/resultcache"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fn    func(text string) ([]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(text)
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestEmbedder(fake *fakeEmbedder, dim int) *Embedder {
	return NewEmbedder(fake, resultcache.New(), EmbedderConfig{
		Dim:         dim,
		BackoffBase: time.Millisecond,
		BatchDelay:  time.Millisecond,
	})
}

func TestEmbedBlankTextReturnsZeroVector(t *testing.T) {
	fake := &fakeEmbedder{fn: func(string) ([]float32, error) {
		t.Fatal("upstream should not be called for blank text")
		return nil, nil
	}}
	e := newTestEmbedder(fake, 8)
	for _, text := range []string{"", "   ", "\n\t"} {
		res, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		require.False(t, res.Degraded)
		require.Len(t, res.Vector, 8)
		for _, v := range res.Vector {
			require.Zero(t, v)
		}
	}
	require.Equal(t, 0, fake.callCount())
}

func TestEmbedNormalizesDimension(t *testing.T) {
	tests := []struct {
		name     string
		upstream []float32
	}{
		{name: "shorter is zero padded", upstream: []float32{1, 2}},
		{name: "longer is truncated", upstream: []float32{1, 2, 3, 4, 5, 6}},
		{name: "exact passes through", upstream: []float32{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeEmbedder{fn: func(string) ([]float32, error) {
				return tt.upstream, nil
			}}
			e := newTestEmbedder(fake, 4)
			res, err := e.Embed(context.Background(), "hello")
			require.NoError(t, err)
			require.Len(t, res.Vector, 4)
			for i := 0; i < len(tt.upstream) && i < 4; i++ {
				require.Equal(t, tt.upstream[i], res.Vector[i])
			}
		})
	}
}

func TestEmbedCachesResult(t *testing.T) {
	fake := &fakeEmbedder{fn: func(string) ([]float32, error) {
		return []float32{0.1, 0.2, 0.3, 0.4}, nil
	}}
	e := newTestEmbedder(fake, 4)
	first, err := e.Embed(context.Background(), "same text")
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), "same text")
	require.NoError(t, err)
	require.Equal(t, first.Vector, second.Vector)
	require.Equal(t, 1, fake.callCount())
}

func TestEmbedDegradedFallbackIsConsistent(t *testing.T) {
	fake := &fakeEmbedder{fn: func(string) ([]float32, error) {
		return nil, errors.New("429 resource has been exhausted")
	}}
	e := newTestEmbedder(fake, 16)
	first, err := e.Embed(context.Background(), "doomed text")
	require.NoError(t, err)
	require.True(t, first.Degraded)
	require.NotEmpty(t, first.Reason)
	require.Len(t, first.Vector, 16)
	callsAfterFirst := fake.callCount()

	// The degraded vector is cached under the same key, so a repeat lookup
	// returns the identical vector without touching the upstream again.
	second, err := e.Embed(context.Background(), "doomed text")
	require.NoError(t, err)
	require.True(t, second.Degraded)
	require.Equal(t, first.Vector, second.Vector)
	require.Equal(t, callsAfterFirst, fake.callCount())
}

func TestEmbedCancelDuringBackoff(t *testing.T) {
	fake := &fakeEmbedder{fn: func(string) ([]float32, error) {
		return nil, errors.New("quota exceeded")
	}}
	e := NewEmbedder(fake, resultcache.New(), EmbedderConfig{
		Dim:         4,
		BackoffBase: time.Hour,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.Embed(ctx, "text")
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("embed did not return after cancel")
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	fake := &fakeEmbedder{fn: func(text string) ([]float32, error) {
		return []float32{float32(len(text))}, nil
	}}
	e := newTestEmbedder(fake, 1)
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	results, err := e.EmbedBatch(context.Background(), texts, 2)
	require.NoError(t, err)
	require.Len(t, results, len(texts))
	for i, text := range texts {
		require.Equal(t, float32(len(text)), results[i].Vector[0])
	}
}
