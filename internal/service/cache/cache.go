package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CrossWatch/internal/domain/models"
	drepo "CrossWatch/internal/domain/repository"
	pkgcache "CrossWatch/pkg/cache"
	"CrossWatch/pkg/logger"
)

const candleKeyPrefix = "candles"

// CandleCache decorates a CandleSource with a short-lived shared cache so
// alerts on the same symbol and timeframe cost one upstream call per cycle.
// The store is any pkg/cache backend: memory, redis or layered.
type CandleCache struct {
	next  drepo.CandleSource
	store pkgcache.Service
	ttl   time.Duration
	log   *logger.Logger
}

func NewCandleCache(next drepo.CandleSource, store pkgcache.Service, ttl time.Duration, log *logger.Logger) *CandleCache {
	if log == nil {
		log = logger.Nop()
	}
	return &CandleCache{next: next, store: store, ttl: ttl, log: log}
}

// cachedCandle keeps the wire form small and independent of models.Candle tags.
type cachedCandle struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

func (c *CandleCache) Candles(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	if c.ttl <= 0 {
		return c.next.Candles(ctx, symbol, tf, limit)
	}
	key := pkgcache.GenerateKeyWithParams(candleKeyPrefix, symbol, tf, limit)

	cached, err := pkgcache.GetTyped[[]cachedCandle](ctx, c.store, key)
	switch {
	case err == nil:
		return fromCached(cached), nil
	case !errors.Is(err, pkgcache.ErrCacheMiss):
		c.log.Warn("candle cache read failed", logger.String("key", key), logger.Error(err))
	}

	candles, err := c.next.Candles(ctx, symbol, tf, limit)
	if err != nil {
		return nil, fmt.Errorf("candles %s %s: %w", symbol, tf, err)
	}
	// Empty results are not cached so a listing that just went live is picked up.
	if len(candles) > 0 {
		if err := c.store.Set(ctx, key, toCached(candles), c.ttl); err != nil {
			c.log.Warn("candle cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return candles, nil
}

func toCached(in []models.Candle) []cachedCandle {
	out := make([]cachedCandle, len(in))
	for i, c := range in {
		out[i] = cachedCandle{T: c.Time.Unix(), O: c.Open, H: c.High, L: c.Low, C: c.Close, V: c.Volume}
	}
	return out
}

func fromCached(in []cachedCandle) []models.Candle {
	out := make([]models.Candle, len(in))
	for i, c := range in {
		out[i] = models.Candle{Time: time.Unix(c.T, 0).UTC(), Open: c.O, High: c.H, Low: c.L, Close: c.C, Volume: c.V}
	}
	return out
}

var _ drepo.CandleSource = (*CandleCache)(nil)
