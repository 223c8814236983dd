package usecase

import (
	"context"
	"strings"

	"CrossWatch/internal/domain/models"
	"CrossWatch/internal/service/notify"
	applogger "CrossWatch/pkg/logger"
)

// AlertStore is the registry surface used by the API.
type AlertStore interface {
	Add(a models.Alert) models.Alert
	BulkAdd(symbols []string, timeframe string, fast, slow int, email string) []models.Alert
	List() []models.Alert
	DeleteAt(index int) bool
	Delete(id string) bool
	Len() int
}

// AlertService implements alert registration and the test notification.
type AlertService struct {
	store    AlertStore
	universe SymbolUniverse
	delivery notify.Retrier
	log      *applogger.Logger
}

func NewAlertService(store AlertStore, universe SymbolUniverse, delivery notify.Retrier, log *applogger.Logger) *AlertService {
	if log == nil {
		log = applogger.Nop()
	}
	return &AlertService{store: store, universe: universe, delivery: delivery, log: log}
}

// Add registers one alert, or one per catalog symbol when ApplyAll is set.
// The request is expected to be validated already.
func (s *AlertService) Add(req models.AddAlertRequest) []models.Alert {
	tf := strings.TrimSpace(req.Timeframe)
	email := strings.TrimSpace(req.Email)
	if req.ApplyAll {
		added := s.store.BulkAdd(s.universe.Symbols(), tf, int(req.Fast), int(req.Slow), email)
		s.log.Info("alerts added for every symbol",
			applogger.Int("count", len(added)),
			applogger.String("timeframe", tf))
		return added
	}
	a := s.store.Add(models.Alert{
		Symbol:    strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Timeframe: tf,
		Fast:      int(req.Fast),
		Slow:      int(req.Slow),
		Email:     email,
	})
	s.log.Info("alert added",
		applogger.String("alert_id", a.ID),
		applogger.String("symbol", a.Symbol),
		applogger.String("timeframe", a.Timeframe))
	return []models.Alert{a}
}

func (s *AlertService) List() []models.Alert { return s.store.List() }

func (s *AlertService) Count() int { return s.store.Len() }

// DeleteAt removes by position. Invalid positions are ignored.
func (s *AlertService) DeleteAt(index int) bool {
	ok := s.store.DeleteAt(index)
	if ok {
		s.log.Info("alert deleted", applogger.Int("index", index))
	}
	return ok
}

// Delete removes by stable ID.
func (s *AlertService) Delete(id string) bool {
	ok := s.store.Delete(strings.TrimSpace(id))
	if ok {
		s.log.Info("alert deleted", applogger.String("alert_id", id))
	}
	return ok
}

// SendTest delivers the fixed test message to email.
func (s *AlertService) SendTest(ctx context.Context, email string) notify.Result {
	res := s.delivery.Deliver(ctx, strings.TrimSpace(email), notify.TestSubject, notify.TestBody)
	if !res.OK() {
		s.log.Warn("test notification failed", applogger.String("to", email), applogger.Error(res.Err))
	}
	return res
}
