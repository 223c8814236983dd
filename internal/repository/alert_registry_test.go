package repository

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CrossWatch/internal/domain/models"
)

func seed(r *AlertRegistry, symbols ...string) {
	for _, s := range symbols {
		r.Add(models.Alert{Symbol: s, Timeframe: "5m", Fast: 9, Slow: 21, Email: "a@b.io"})
	}
}

func TestAddResetsSignalAndAssignsID(t *testing.T) {
	r := NewAlertRegistry()
	a := r.Add(models.Alert{Symbol: "BTCUSD", LastSignal: models.SignalBullish, ID: "caller-id"})
	assert.Equal(t, models.SignalNone, a.LastSignal)
	assert.NotEqual(t, "caller-id", a.ID)
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestDeleteAtOutOfRangeIsNoop(t *testing.T) {
	r := NewAlertRegistry()
	seed(r, "A", "B", "C")
	before := r.List()

	for _, idx := range []int{-1, 3, 100} {
		assert.False(t, r.DeleteAt(idx))
		assert.Equal(t, before, r.List())
		assert.Equal(t, 3, r.Len())
	}

	assert.True(t, r.DeleteAt(1))
	got := r.List()
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Symbol)
	assert.Equal(t, "C", got[1].Symbol)
}

func TestBulkAddProducesIndependentAlerts(t *testing.T) {
	r := NewAlertRegistry()
	symbols := []string{"BTCUSD", "ETHUSD", "SOLUSD", "XRPUSD"}
	added := r.BulkAdd(symbols, "15m", 5, 20, "ops@x.io")

	require.Len(t, added, len(symbols))
	ids := map[string]bool{}
	for i, a := range r.List() {
		assert.Equal(t, symbols[i], a.Symbol)
		assert.Equal(t, "15m", a.Timeframe)
		assert.Equal(t, 5, a.Fast)
		assert.Equal(t, 20, a.Slow)
		assert.Equal(t, "ops@x.io", a.Email)
		assert.Equal(t, models.SignalNone, a.LastSignal)
		ids[a.ID] = true
	}
	assert.Len(t, ids, len(symbols))

	require.True(t, r.UpdateSignal(added[0].ID, models.SignalBearish))
	list := r.List()
	assert.Equal(t, models.SignalBearish, list[0].LastSignal)
	assert.Equal(t, models.SignalNone, list[1].LastSignal)
}

func TestListReturnsCopy(t *testing.T) {
	r := NewAlertRegistry()
	seed(r, "A")
	l := r.List()
	l[0].Symbol = "mutated"
	assert.Equal(t, "A", r.List()[0].Symbol)
}

func TestListEmptyIsNotNil(t *testing.T) {
	r := NewAlertRegistry()
	assert.NotNil(t, r.List())
	seed(r, "A")
	require.True(t, r.Delete(r.List()[0].ID))
	assert.NotNil(t, r.List())
	assert.Empty(t, r.List())
}

func TestUpdateSignalAfterDelete(t *testing.T) {
	r := NewAlertRegistry()
	seed(r, "A", "B")
	snap := r.List()

	require.True(t, r.DeleteAt(0))
	assert.False(t, r.UpdateSignal(snap[0].ID, models.SignalBullish))
	assert.True(t, r.UpdateSignal(snap[1].ID, models.SignalBullish))
	assert.Equal(t, models.SignalBullish, r.List()[0].LastSignal)

	assert.False(t, r.UpdateSignalAt(5, models.SignalBearish))
	assert.True(t, r.UpdateSignalAt(0, models.SignalBearish))
	assert.True(t, r.Delete(snap[1].ID))
	assert.False(t, r.Delete(snap[1].ID))
	assert.Equal(t, 0, r.Len())
}

func TestConcurrentMutation(t *testing.T) {
	r := NewAlertRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); seed(r, "X") }()
		go func() { defer wg.Done(); _ = r.List() }()
		go func() { defer wg.Done(); r.DeleteAt(0) }()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, r.Len(), 0)
	assert.LessOrEqual(t, r.Len(), 20)
}
