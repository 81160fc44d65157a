package resultcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCache(at time.Time) (*Cache, *time.Time) {
	now := at
	c := New()
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCache_SetGetExpiry(t *testing.T) {
	cache, now := newTestCache(time.Now())

	cache.Set("k", "v", time.Minute)
	got, ok := cache.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", got)

	*now = now.Add(2 * time.Minute)
	_, ok = cache.Get("k")
	require.False(t, ok)
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	cache, now := newTestCache(time.Now())

	cache.Set("forever", 42, 0)
	*now = now.Add(1000 * time.Hour)
	got, ok := cache.Get("forever")
	require.True(t, ok)
	require.Equal(t, 42, got)
}

func TestCache_DeleteAndClear(t *testing.T) {
	cache, _ := newTestCache(time.Now())
	cache.Set("a", 1, 0)
	cache.Set("b", 2, 0)

	require.True(t, cache.Delete("a"))
	require.False(t, cache.Delete("a"))
	require.Equal(t, 1, cache.Len())

	cache.Clear()
	require.Equal(t, 0, cache.Len())
}

func TestCache_SweepExpired(t *testing.T) {
	cache, now := newTestCache(time.Now())
	cache.Set("short", 1, time.Second)
	cache.Set("long", 2, time.Hour)
	cache.Set("forever", 3, 0)

	*now = now.Add(time.Minute)
	require.Equal(t, 1, cache.SweepExpired())
	require.Equal(t, 2, cache.Len())
}

func TestMemoize_ReusesResultWithinTTL(t *testing.T) {
	cache, _ := newTestCache(time.Now())
	key := NewKey("embed", "model-a", "some text")

	calls := 0
	fn := func(context.Context) ([]float32, error) {
		calls++
		return []float32{1, 2, 3}, nil
	}

	first, err := Memoize(context.Background(), cache, key, time.Minute, fn)
	require.NoError(t, err)
	second, err := Memoize(context.Background(), cache, key, time.Minute, fn)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
}

func TestMemoize_ErrorsAreNotCached(t *testing.T) {
	cache, _ := newTestCache(time.Now())
	key := NewKey("op", "arg")

	calls := 0
	fn := func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("boom")
		}
		return "ok", nil
	}

	_, err := Memoize(context.Background(), cache, key, time.Minute, fn)
	require.Error(t, err)
	got, err := Memoize(context.Background(), cache, key, time.Minute, fn)
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 2, calls)
}

func TestNewKey_DistinguishesOpsAndArgs(t *testing.T) {
	require.NotEqual(t, NewKey("a", "x").String(), NewKey("b", "x").String())
	require.NotEqual(t, NewKey("a", "x", "y").String(), NewKey("a", "xy").String())
}
