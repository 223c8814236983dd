package usecase

import (
	"context"

	"CrossWatch/internal/domain/models"
)

// SnapshotProvider is satisfied by the ticker snapshot cache.
type SnapshotProvider interface {
	Get(ctx context.Context) models.SnapshotSet
}

// SymbolUniverse is satisfied by InstrumentCatalog.
type SymbolUniverse interface {
	Symbols() []string
	Contains(symbol string) bool
}

// MarketData builds the dashboard price table.
type MarketData struct {
	snapshots SnapshotProvider
	universe  SymbolUniverse
}

func NewMarketData(snapshots SnapshotProvider, universe SymbolUniverse) *MarketData {
	return &MarketData{snapshots: snapshots, universe: universe}
}

// Rows joins the latest snapshot with the catalog, in catalog order. Stale
// reports that the snapshot refresh failed and older prices are shown.
func (m *MarketData) Rows(ctx context.Context) (rows []models.PriceRow, stale bool) {
	set := m.snapshots.Get(ctx)
	idx := set.Index()

	symbols := m.universe.Symbols()
	rows = make([]models.PriceRow, 0, len(symbols))
	for _, s := range symbols {
		t, ok := idx[s]
		if !ok {
			continue
		}
		rows = append(rows, models.PriceRow{Symbol: s, Price: t.Close, Change: t.Change})
	}
	return rows, set.Stale
}
