package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CrossWatch/internal/domain/models"
	drepo "CrossWatch/internal/domain/repository"
	pkgcache "CrossWatch/pkg/cache"
)

type fakeFeed struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (f *fakeFeed) Tickers(context.Context) ([]models.Ticker, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return []models.Ticker{
		{Symbol: "BTCUSD", Close: decimal.NewFromInt(110), Open: decimal.NewFromInt(100)},
		{Symbol: "ETHUSD", Close: decimal.NewFromInt(5), Open: decimal.Zero},
	}, nil
}

func TestSnapshotDebouncesConcurrentCallers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	feed := &fakeFeed{delay: 5 * time.Millisecond}
	c := NewSnapshotCache(feed, time.Second, WithSnapshotClock(func() time.Time { return now }))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set := c.Get(context.Background())
			assert.Len(t, set.Tickers, 2)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, feed.calls.Load())
}

func TestSnapshotRefreshesAfterWindow(t *testing.T) {
	var mu sync.Mutex
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	feed := &fakeFeed{}
	c := NewSnapshotCache(feed, time.Second, WithSnapshotClock(clock))

	c.Get(context.Background())
	mu.Lock()
	now = now.Add(999 * time.Millisecond)
	mu.Unlock()
	c.Get(context.Background())
	assert.EqualValues(t, 1, feed.calls.Load())

	mu.Lock()
	now = now.Add(time.Millisecond)
	mu.Unlock()
	c.Get(context.Background())
	assert.EqualValues(t, 2, feed.calls.Load())
}

func TestSnapshotDerivesChange(t *testing.T) {
	c := NewSnapshotCache(&fakeFeed{}, time.Second)
	idx := c.Get(context.Background()).Index()
	assert.Equal(t, 10.0, idx["BTCUSD"].Change)
	assert.Equal(t, 0.0, idx["ETHUSD"].Change)
}

func TestSnapshotServesStaleOnFailure(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	feed := &fakeFeed{}
	c := NewSnapshotCache(feed, time.Second, WithSnapshotClock(func() time.Time { return now }))

	first := c.Get(context.Background())
	require.False(t, first.Stale)

	feed.err = errors.New("upstream down")
	now = now.Add(2 * time.Second)
	second := c.Get(context.Background())
	assert.True(t, second.Stale)
	assert.Equal(t, first.Tickers, second.Tickers)
	assert.Equal(t, first.FetchedAt, second.FetchedAt)
}

func TestSnapshotDebouncesAfterFailure(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	feed := &fakeFeed{err: errors.New("upstream down"), delay: 20 * time.Millisecond}
	c := NewSnapshotCache(feed, time.Second, WithSnapshotClock(func() time.Time { return now }))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, c.Get(context.Background()).Stale)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, feed.calls.Load())
}

func TestSnapshotRetriesFailureAfterWindow(t *testing.T) {
	var mu sync.Mutex
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	feed := &fakeFeed{err: errors.New("upstream down")}
	c := NewSnapshotCache(feed, time.Second, WithSnapshotClock(clock))

	assert.True(t, c.Get(context.Background()).Stale)
	assert.True(t, c.Get(context.Background()).Stale)
	assert.EqualValues(t, 1, feed.calls.Load())

	feed.err = nil
	mu.Lock()
	now = now.Add(time.Second)
	mu.Unlock()
	set := c.Get(context.Background())
	assert.False(t, set.Stale)
	assert.Len(t, set.Tickers, 2)
	assert.EqualValues(t, 2, feed.calls.Load())
}

func TestSnapshotEmptyWhenFirstFetchFails(t *testing.T) {
	c := NewSnapshotCache(&fakeFeed{err: errors.New("boom")}, time.Second)
	set := c.Get(context.Background())
	assert.True(t, set.Stale)
	assert.Empty(t, set.Tickers)
}

type countingSource struct {
	calls   atomic.Int32
	candles []models.Candle
	err     error
}

func (s *countingSource) Candles(context.Context, string, drepo.Timeframe, int) ([]models.Candle, error) {
	s.calls.Add(1)
	return s.candles, s.err
}

func TestCandleCacheSharesUpstreamCall(t *testing.T) {
	store := pkgcache.NewMemoryCache()
	defer store.Close()
	src := &countingSource{candles: []models.Candle{
		{Time: time.Unix(60, 0).UTC(), Close: 1},
		{Time: time.Unix(120, 0).UTC(), Close: 2},
	}}
	cc := NewCandleCache(src, store, time.Minute, nil)

	a, err := cc.Candles(context.Background(), "BTCUSD", drepo.TF1m, 300)
	require.NoError(t, err)
	b, err := cc.Candles(context.Background(), "BTCUSD", drepo.TF1m, 300)
	require.NoError(t, err)

	assert.EqualValues(t, 1, src.calls.Load())
	assert.Equal(t, a, b)

	_, err = cc.Candles(context.Background(), "BTCUSD", drepo.TF5m, 300)
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestCandleCacheSkipsEmptyAndErrors(t *testing.T) {
	store := pkgcache.NewMemoryCache()
	defer store.Close()
	src := &countingSource{}
	cc := NewCandleCache(src, store, time.Minute, nil)

	got, err := cc.Candles(context.Background(), "NEWUSD", drepo.TF1m, 300)
	require.NoError(t, err)
	assert.Empty(t, got)
	_, _ = cc.Candles(context.Background(), "NEWUSD", drepo.TF1m, 300)
	assert.EqualValues(t, 2, src.calls.Load())

	src.err = errors.New("timeout")
	_, err = cc.Candles(context.Background(), "BTCUSD", drepo.TF1m, 300)
	assert.ErrorContains(t, err, "timeout")
}
