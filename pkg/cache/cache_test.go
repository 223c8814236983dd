package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

func TestMemoryRoundTripsStructsAndStrings(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "p", []point{{1, 1.5}, {2, 2.5}}, time.Minute))
	got, err := GetTyped[[]point](ctx, mc, "p")
	require.NoError(t, err)
	assert.Equal(t, []point{{1, 1.5}, {2, 2.5}}, got)

	require.NoError(t, mc.Set(ctx, "s", "plain", 0))
	var s string
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "plain", s)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	mc := NewMemoryCache(WithMemoryClock(func() time.Time { return now }))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Second))
	ok, _ := mc.Exists(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(func() time.Time { return now }))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	now = now.Add(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	now = now.Add(time.Millisecond)
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	now = now.Add(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestMemoryTryLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.False(t, ok)
	require.NoError(t, mc.Unlock(ctx, "lock"))
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.True(t, ok)
}

func TestLayeredPromotesFromRemote(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote)
	defer lc.Close()

	require.NoError(t, remote.Set(ctx, "k", point{X: 7}, time.Minute))
	got, err := GetTyped[point](ctx, lc, "k")
	require.NoError(t, err)
	assert.Equal(t, 7, got.X)

	require.NoError(t, remote.Delete(ctx, "k"))
	got, err = GetTyped[point](ctx, lc, "k")
	require.NoError(t, err, "served from L1 after promotion")
	assert.Equal(t, 7, got.X)

	require.NoError(t, lc.Delete(ctx, "k"))
	_, err = GetTyped[point](ctx, lc, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "candles:BTCUSD:5m:300", GenerateKeyWithParams("candles", "BTCUSD", "5m", 300))
	assert.Equal(t, "alerts:1", GenerateKey("alerts", "1"))
}
