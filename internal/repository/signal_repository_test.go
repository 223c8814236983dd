package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CrossWatch/internal/domain/models"
)

type captureWriter struct {
	topic string
	key   []byte
	value interface{}
}

func (w *captureWriter) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	w.topic, w.key, w.value = topic, key, value
	return nil
}

func (w *captureWriter) Close() error { return nil }

type memStore struct{ events []models.SignalEvent }

func (m *memStore) Insert(_ context.Context, ev models.SignalEvent) error {
	m.events = append(m.events, ev)
	return nil
}
func (m *memStore) Recent(context.Context, string, int) ([]models.SignalEvent, error) {
	return m.events, nil
}
func (m *memStore) Health(context.Context) error { return nil }

func TestKafkaSignalPublisherKeysBySymbol(t *testing.T) {
	w := &captureWriter{}
	p := NewKafkaSignalPublisher(w, "crosswatch.signals")
	ev := models.SignalEvent{Symbol: "ETHUSD", Signal: models.SignalBearish, Fast: 5, Slow: 20}

	require.NoError(t, p.PublishSignal(context.Background(), ev))
	assert.Equal(t, "crosswatch.signals", w.topic)
	assert.Equal(t, "ETHUSD", string(w.key))

	b, err := json.Marshal(w.value)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"signal":"BEARISH"`)
}

func TestStoreSignalPublisher(t *testing.T) {
	st := &memStore{}
	p := NewStoreSignalPublisher(st)
	require.NoError(t, p.PublishSignal(context.Background(), models.SignalEvent{Symbol: "BTCUSD", DetectedAt: time.Now()}))
	assert.Len(t, st.events, 1)
}

func TestRecentQuery(t *testing.T) {
	q, args := recentQuery("signal_events", "", 10)
	assert.NotContains(t, q, "WHERE")
	assert.Equal(t, []interface{}{10}, args)

	q, args = recentQuery("signal_events", "BTCUSD", 5)
	assert.Contains(t, q, "WHERE symbol = ?")
	assert.Contains(t, q, "ORDER BY detected_at DESC LIMIT ?")
	assert.Equal(t, []interface{}{"BTCUSD", 5}, args)
}

func TestSignalSchemaUsesDatabase(t *testing.T) {
	stmts := SignalSchema("crosswatch", DefaultSignalsTable)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "crosswatch")
	assert.Contains(t, stmts[1], "crosswatch.signal_events")
}
