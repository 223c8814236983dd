package repository

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"CrossWatch/internal/domain/models"
)

// AlertRegistry is the in-memory, insertion-ordered alert store. Readers get
// copies; nothing holds the lock across I/O.
type AlertRegistry struct {
	mu     sync.RWMutex
	alerts []models.Alert
	now    func() time.Time
}

func NewAlertRegistry() *AlertRegistry {
	return &AlertRegistry{now: time.Now}
}

// Add appends a copy of a with a fresh ID and LastSignal reset.
func (r *AlertRegistry) Add(a models.Alert) models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	a = r.prepare(a)
	r.alerts = append(r.alerts, a)
	return a
}

// BulkAdd appends one alert per symbol with identical parameters.
func (r *AlertRegistry) BulkAdd(symbols []string, timeframe string, fast, slow int, email string) []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Alert, 0, len(symbols))
	for _, s := range symbols {
		a := r.prepare(models.Alert{Symbol: s, Timeframe: timeframe, Fast: fast, Slow: slow, Email: email})
		r.alerts = append(r.alerts, a)
		out = append(out, a)
	}
	return out
}

func (r *AlertRegistry) prepare(a models.Alert) models.Alert {
	a.ID = uuid.NewString()
	a.LastSignal = models.SignalNone
	a.CreatedAt = r.now().UTC()
	return a
}

// List returns a point-in-time copy in insertion order.
func (r *AlertRegistry) List() []models.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

func (r *AlertRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.alerts)
}

// DeleteAt removes the alert at index. Out of range is a no-op.
func (r *AlertRegistry) DeleteAt(index int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.alerts) {
		return false
	}
	r.alerts = append(r.alerts[:index], r.alerts[index+1:]...)
	return true
}

// Delete removes the alert with the given ID.
func (r *AlertRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(id); i >= 0 {
		r.alerts = append(r.alerts[:i], r.alerts[i+1:]...)
		return true
	}
	return false
}

// UpdateSignalAt sets LastSignal on the alert currently at index, if any.
func (r *AlertRegistry) UpdateSignalAt(index int, s models.Signal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.alerts) {
		return false
	}
	r.alerts[index].LastSignal = s
	return true
}

// UpdateSignal sets LastSignal by ID. It reports false when the alert was
// deleted since the caller listed it.
func (r *AlertRegistry) UpdateSignal(id string, s models.Signal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(id); i >= 0 {
		r.alerts[i].LastSignal = s
		return true
	}
	return false
}

func (r *AlertRegistry) indexOf(id string) int {
	for i := range r.alerts {
		if r.alerts[i].ID == id {
			return i
		}
	}
	return -1
}
