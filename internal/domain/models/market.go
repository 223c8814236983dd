package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one entry of the exchange product list.
type Product struct {
	Symbol       string `json:"symbol"`
	ContractType string `json:"contract_type"`
	State        string `json:"state"`
}

// Ticker is the raw upstream ticker. Prices arrive either as JSON numbers or
// as strings, decimal.Decimal accepts both.
type Ticker struct {
	Symbol string          `json:"symbol"`
	Close  decimal.Decimal `json:"close"`
	Open   decimal.Decimal `json:"open"`
}

// TickerSnapshot is a ticker with its derived percent change.
type TickerSnapshot struct {
	Symbol string  `json:"symbol"`
	Close  float64 `json:"close"`
	Open   float64 `json:"open"`
	Change float64 `json:"change"`
}

// NewTickerSnapshot derives the snapshot from a raw ticker. Change is 0 when
// the open price is 0, otherwise the percent move rounded to 2 decimals.
func NewTickerSnapshot(t Ticker) TickerSnapshot {
	change := decimal.Zero
	if !t.Open.IsZero() {
		change = t.Close.Sub(t.Open).Div(t.Open).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return TickerSnapshot{
		Symbol: t.Symbol,
		Close:  t.Close.InexactFloat64(),
		Open:   t.Open.InexactFloat64(),
		Change: change.InexactFloat64(),
	}
}

// SnapshotSet is the cached result of one ticker fetch. Stale is set when the
// last refresh failed and an older set is served instead.
type SnapshotSet struct {
	Tickers   []TickerSnapshot
	FetchedAt time.Time
	Stale     bool
}

// Index maps symbols to their snapshot.
func (s SnapshotSet) Index() map[string]TickerSnapshot {
	m := make(map[string]TickerSnapshot, len(s.Tickers))
	for _, t := range s.Tickers {
		m[t.Symbol] = t
	}
	return m
}

// PriceRow is one row of the dashboard price table.
type PriceRow struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
}

// Candle is one OHLC bucket. Only Close feeds the indicators.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Closes extracts the close series in order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
