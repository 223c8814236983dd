package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CrossWatch/internal/domain/models"
	domrepo "CrossWatch/internal/domain/repository"
	pkgkafka "CrossWatch/pkg/kafka"
	applogger "CrossWatch/pkg/logger"
)

const DefaultSignalsTable = "signal_events"

// SignalSchema returns the idempotent DDL for the signal history table.
func SignalSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            detected_at DateTime64(3),
            alert_id String,
            symbol LowCardinality(String),
            timeframe LowCardinality(String),
            fast UInt16,
            slow UInt16,
            signal LowCardinality(String),
            fast_ema Float64,
            slow_ema Float64,
            close Float64,
            candle_time DateTime,
            notified UInt8
        ) ENGINE = MergeTree ORDER BY (symbol, detected_at)`, database, table),
	}
}

// ClickHouseSignalStore persists crossover events.
type ClickHouseSignalStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseSignalStore(db *sql.DB, table string, l *applogger.Logger) *ClickHouseSignalStore {
	if table == "" {
		table = DefaultSignalsTable
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseSignalStore{db: db, table: table, l: l}
}

func (s *ClickHouseSignalStore) Insert(ctx context.Context, ev models.SignalEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s (detected_at, alert_id, symbol, timeframe, fast, slow, signal, fast_ema, slow_ema, close, candle_time, notified)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	notified := uint8(0)
	if ev.Notified {
		notified = 1
	}
	_, err := s.db.ExecContext(ctx, q,
		ev.DetectedAt, ev.AlertID, ev.Symbol, ev.Timeframe,
		uint16(ev.Fast), uint16(ev.Slow), ev.Signal.String(),
		ev.FastEMA, ev.SlowEMA, ev.Close, ev.CandleTime, notified,
	)
	if err != nil {
		s.l.Error("clickhouse signal insert failed",
			applogger.String("table", s.table),
			applogger.String("symbol", ev.Symbol),
			applogger.Error(err))
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// Recent returns the newest events first. An empty symbol matches all.
func (s *ClickHouseSignalStore) Recent(ctx context.Context, symbol string, limit int) ([]models.SignalEvent, error) {
	q, args := recentQuery(s.table, symbol, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	out := make([]models.SignalEvent, 0, limit)
	for rows.Next() {
		var (
			ev         models.SignalEvent
			fast, slow uint16
			sig        string
			notified   uint8
		)
		if err := rows.Scan(&ev.DetectedAt, &ev.AlertID, &ev.Symbol, &ev.Timeframe, &fast, &slow, &sig,
			&ev.FastEMA, &ev.SlowEMA, &ev.Close, &ev.CandleTime, &notified); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		ev.Fast, ev.Slow = int(fast), int(slow)
		ev.Notified = notified == 1
		if ev.Signal, err = models.ParseSignal(sig); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *ClickHouseSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func recentQuery(table, symbol string, limit int) (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT detected_at, alert_id, symbol, timeframe, fast, slow, signal, fast_ema, slow_ema, close, candle_time, notified FROM %s", table)
	args := make([]interface{}, 0, 2)
	if symbol != "" {
		b.WriteString(" WHERE symbol = ?")
		args = append(args, symbol)
	}
	b.WriteString(" ORDER BY detected_at DESC LIMIT ?")
	args = append(args, limit)
	return b.String(), args
}

// KafkaSignalPublisher writes events to a topic keyed by symbol.
type KafkaSignalPublisher struct {
	producer pkgkafka.Writer
	topic    string
}

func NewKafkaSignalPublisher(producer pkgkafka.Writer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) PublishSignal(ctx context.Context, ev models.SignalEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

// Close is a no-op: the producer is shared with the log collector and closed
// by its owner.
func (p *KafkaSignalPublisher) Close() error { return nil }

// StoreSignalPublisher writes events straight to a SignalStore.
type StoreSignalPublisher struct {
	store   domrepo.SignalStore
	timeout time.Duration
}

func NewStoreSignalPublisher(store domrepo.SignalStore) *StoreSignalPublisher {
	return &StoreSignalPublisher{store: store, timeout: 5 * time.Second}
}

func (p *StoreSignalPublisher) PublishSignal(ctx context.Context, ev models.SignalEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.store.Insert(ctx, ev)
}

func (p *StoreSignalPublisher) Close() error { return nil }

// NoopSignalPublisher drops events.
type NoopSignalPublisher struct{}

func (NoopSignalPublisher) PublishSignal(context.Context, models.SignalEvent) error { return nil }
func (NoopSignalPublisher) Close() error                                           { return nil }

var (
	_ domrepo.SignalStore     = (*ClickHouseSignalStore)(nil)
	_ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)
	_ domrepo.SignalPublisher = (*StoreSignalPublisher)(nil)
	_ domrepo.SignalPublisher = NoopSignalPublisher{}
)
