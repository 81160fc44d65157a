package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	vec   []float32
}

func (c *countingEmbedder) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	c.calls++
	return c.vec, nil
}

func (c *countingEmbedder) ModelName() string {
	return "test-model"
}

func TestLruCacheHitSkipsUpstream(t *testing.T) {
	upstream := &countingEmbedder{vec: []float32{1, 2, 3}}
	e := WrapLruCacheToEmbedder(upstream, 16, time.Minute)

	for i := 0; i < 3; i++ {
		vec, err := e.Embed(context.Background(), "same text", "SEMANTIC_SIMILARITY")
		require.NoError(t, err)
		require.Equal(t, []float32{1, 2, 3}, vec)
	}
	require.Equal(t, 1, upstream.calls)

	_, err := e.Embed(context.Background(), "other text", "SEMANTIC_SIMILARITY")
	require.NoError(t, err)
	require.Equal(t, 2, upstream.calls)
}

func TestLruCacheKeyIncludesTaskType(t *testing.T) {
	upstream := &countingEmbedder{vec: []float32{1}}
	e := WrapLruCacheToEmbedder(upstream, 16, time.Minute)

	_, err := e.Embed(context.Background(), "text", "SEMANTIC_SIMILARITY")
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "text", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 2, upstream.calls)
}

func TestLruCacheReturnsCopies(t *testing.T) {
	upstream := &countingEmbedder{vec: []float32{1, 2}}
	e := WrapLruCacheToEmbedder(upstream, 16, time.Minute)

	first, err := e.Embed(context.Background(), "text", "SEMANTIC_SIMILARITY")
	require.NoError(t, err)
	first[0] = 99

	second, err := e.Embed(context.Background(), "text", "SEMANTIC_SIMILARITY")
	require.NoError(t, err)
	require.Equal(t, float32(1), second[0])
}

func TestWrapLruCacheDisabledPassesThrough(t *testing.T) {
	upstream := &countingEmbedder{vec: []float32{1}}
	require.Equal(t, upstream, WrapLruCacheToEmbedder(upstream, 0, time.Minute))
	require.Equal(t, upstream, WrapLruCacheToEmbedder(upstream, 16, 0))
}
