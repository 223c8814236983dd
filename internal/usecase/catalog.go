package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	drepo "CrossWatch/internal/domain/repository"
	applogger "CrossWatch/pkg/logger"
)

// ErrCatalogInit marks a catalog load failure. At startup it is fatal.
var ErrCatalogInit = errors.New("instrument catalog initialization failed")

const (
	contractPerpetual = "perpetual_futures"
	stateLive         = "live"
)

// InstrumentCatalog holds the tradable symbol universe: live perpetual
// futures in upstream order.
type InstrumentCatalog struct {
	src drepo.ProductSource
	log *applogger.Logger

	mu       sync.RWMutex
	symbols  []string
	index    map[string]struct{}
	loadedAt time.Time
}

func NewInstrumentCatalog(src drepo.ProductSource, log *applogger.Logger) *InstrumentCatalog {
	if log == nil {
		log = applogger.Nop()
	}
	return &InstrumentCatalog{src: src, log: log, index: map[string]struct{}{}}
}

// Load fetches products and replaces the universe.
func (c *InstrumentCatalog) Load(ctx context.Context) ([]string, error) {
	products, err := c.src.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogInit, err)
	}

	symbols := make([]string, 0, len(products))
	index := make(map[string]struct{}, len(products))
	for _, p := range products {
		if p.ContractType != contractPerpetual || p.State != stateLive || p.Symbol == "" {
			continue
		}
		if _, dup := index[p.Symbol]; dup {
			continue
		}
		index[p.Symbol] = struct{}{}
		symbols = append(symbols, p.Symbol)
	}

	c.mu.Lock()
	c.symbols = symbols
	c.index = index
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.log.Info("instrument catalog loaded",
		applogger.Int("products", len(products)),
		applogger.Int("symbols", len(symbols)))
	return append([]string(nil), symbols...), nil
}

// Reload refreshes the universe. On failure the previous one is kept.
func (c *InstrumentCatalog) Reload(ctx context.Context) {
	if _, err := c.Load(ctx); err != nil {
		c.log.Warn("instrument catalog reload failed, keeping previous universe",
			applogger.Int("symbols", c.Len()),
			applogger.Error(err))
	}
}

// Symbols returns a copy of the universe in upstream order.
func (c *InstrumentCatalog) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.symbols...)
}

func (c *InstrumentCatalog) Contains(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[symbol]
	return ok
}

func (c *InstrumentCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.symbols)
}

func (c *InstrumentCatalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}
