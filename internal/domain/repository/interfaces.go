package repository

import (
	"context"

	"CrossWatch/internal/domain/models"
)

// ProductSource lists every product the exchange knows about.
type ProductSource interface {
	Products(ctx context.Context) ([]models.Product, error)
}

// TickerFeed returns the latest ticker for every product.
type TickerFeed interface {
	Tickers(ctx context.Context) ([]models.Ticker, error)
}

// CandleSource returns up to limit chronological candles for a symbol.
// An empty result with a nil error means no data is available.
type CandleSource interface {
	Candles(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
}

// Notifier delivers one message to one recipient.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SignalPublisher forwards detected crossover events downstream.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, ev models.SignalEvent) error
	Close() error
}

// SignalStore persists crossover events and serves their history.
type SignalStore interface {
	Insert(ctx context.Context, ev models.SignalEvent) error
	Recent(ctx context.Context, symbol string, limit int) ([]models.SignalEvent, error)
	Health(ctx context.Context) error
}

// Metrics is what the core components record.
type Metrics interface {
	RecordCycle(seconds float64, alerts int)
	RecordEvaluation(outcome string)
	RecordSignal(symbol string, signal models.Signal)
	RecordNotification(result string)
	RecordCacheFetch(result string)
	RecordUpstream(op string, seconds float64, err error)
}
