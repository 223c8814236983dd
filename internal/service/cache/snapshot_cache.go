package cache

import (
	"context"
	"sync"
	"time"

	"CrossWatch/internal/domain/models"
	drepo "CrossWatch/internal/domain/repository"
	"CrossWatch/pkg/logger"
)

// SnapshotCache debounces the ticker feed: within one freshness window every
// caller gets the same set and at most one upstream request is made.
type SnapshotCache struct {
	feed      drepo.TickerFeed
	freshness time.Duration
	log       *logger.Logger
	metrics   drepo.Metrics
	now       func() time.Time

	mu          sync.Mutex
	set         models.SnapshotSet
	lastAttempt time.Time
	lastFailed  bool
}

type SnapshotOption func(*SnapshotCache)

func WithSnapshotLogger(l *logger.Logger) SnapshotOption {
	return func(c *SnapshotCache) { c.log = l }
}

func WithSnapshotMetrics(m drepo.Metrics) SnapshotOption {
	return func(c *SnapshotCache) { c.metrics = m }
}

func WithSnapshotClock(now func() time.Time) SnapshotOption {
	return func(c *SnapshotCache) { c.now = now }
}

// NewSnapshotCache wraps feed. freshness <= 0 falls back to one second.
func NewSnapshotCache(feed drepo.TickerFeed, freshness time.Duration, opts ...SnapshotOption) *SnapshotCache {
	if freshness <= 0 {
		freshness = time.Second
	}
	c := &SnapshotCache{
		feed:      feed,
		freshness: freshness,
		log:       logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the current snapshot set. A failed refresh never surfaces as an
// error: the previous set is returned with Stale set, or an empty stale set
// when nothing was fetched yet.
func (c *SnapshotCache) Get(ctx context.Context) models.SnapshotSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < c.freshness {
		c.record("hit")
		out := c.copySet()
		out.Stale = c.lastFailed
		return out
	}

	// Failed attempts count toward the window too.
	c.lastAttempt = now
	tickers, err := c.feed.Tickers(ctx)
	c.lastFailed = err != nil
	if err != nil {
		c.record("stale")
		c.log.Warn("ticker refresh failed, serving previous snapshot",
			logger.Error(err),
			logger.Int("tickers", len(c.set.Tickers)),
			logger.Time("fetched_at", c.set.FetchedAt))
		out := c.copySet()
		out.Stale = true
		return out
	}

	snaps := make([]models.TickerSnapshot, 0, len(tickers))
	for _, t := range tickers {
		snaps = append(snaps, models.NewTickerSnapshot(t))
	}
	c.set = models.SnapshotSet{Tickers: snaps, FetchedAt: now}
	c.record("refresh")
	return c.copySet()
}

func (c *SnapshotCache) copySet() models.SnapshotSet {
	out := c.set
	out.Tickers = append([]models.TickerSnapshot(nil), c.set.Tickers...)
	return out
}

func (c *SnapshotCache) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordCacheFetch(result)
	}
}
