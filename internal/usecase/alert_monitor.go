package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"CrossWatch/internal/domain/models"
	drepo "CrossWatch/internal/domain/repository"
	"CrossWatch/internal/service/notify"
	"CrossWatch/internal/services/indicators"
	applogger "CrossWatch/pkg/logger"
)

// MonitorState is Idle between cycles and Evaluating during one.
type MonitorState int32

const (
	StateIdle MonitorState = iota
	StateEvaluating
)

func (s MonitorState) String() string {
	if s == StateEvaluating {
		return "evaluating"
	}
	return "idle"
}

// Evaluation outcomes, also used as metric labels.
const (
	OutcomeSignal   = "signal"
	OutcomeNoSignal = "no_signal"
	OutcomeSkipped  = "skipped"
	OutcomeError    = "error"
)

// AlertSource is the part of the registry the monitor needs.
type AlertSource interface {
	List() []models.Alert
	UpdateSignal(id string, s models.Signal) bool
}

type MonitorConfig struct {
	Interval       time.Duration
	CandleLimit    int
	MinExtra       int // history required beyond the slow span
	FetchTimeout   time.Duration
	NotifyTimeout  time.Duration
	RetryAttempts  int
	RetryBackoff   time.Duration
	MarkOnFailure  bool // mark LastSignal even when delivery failed
	CatalogReload  time.Duration
	PublishTimeout time.Duration
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:       60 * time.Second,
		CandleLimit:    300,
		MinExtra:       5,
		FetchTimeout:   15 * time.Second,
		NotifyTimeout:  20 * time.Second,
		RetryAttempts:  1,
		RetryBackoff:   2 * time.Second,
		MarkOnFailure:  true,
		PublishTimeout: 5 * time.Second,
	}
}

// CycleReport summarises one evaluation pass.
type CycleReport struct {
	Alerts   int
	Signals  int
	Notified int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// AlertMonitor periodically evaluates every alert and notifies once per
// crossover edge.
type AlertMonitor struct {
	cfg       MonitorConfig
	alerts    AlertSource
	candles   drepo.CandleSource
	delivery  notify.Retrier
	publisher drepo.SignalPublisher
	catalog   *InstrumentCatalog
	metrics   drepo.Metrics
	log       *applogger.Logger
	now       func() time.Time

	state atomic.Int32

	mu     sync.Mutex
	sched  *gocron.Scheduler
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type MonitorOption func(*AlertMonitor)

func WithMonitorLogger(l *applogger.Logger) MonitorOption {
	return func(m *AlertMonitor) { m.log = l }
}

func WithMonitorMetrics(mt drepo.Metrics) MonitorOption {
	return func(m *AlertMonitor) { m.metrics = mt }
}

func WithSignalPublisher(p drepo.SignalPublisher) MonitorOption {
	return func(m *AlertMonitor) { m.publisher = p }
}

// WithCatalogReload schedules catalog reloads every cfg.CatalogReload.
func WithCatalogReload(c *InstrumentCatalog) MonitorOption {
	return func(m *AlertMonitor) { m.catalog = c }
}

func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *AlertMonitor) { m.now = now }
}

func NewAlertMonitor(cfg MonitorConfig, alerts AlertSource, candles drepo.CandleSource, notifier drepo.Notifier, opts ...MonitorOption) *AlertMonitor {
	def := DefaultMonitorConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = def.CandleLimit
	}
	if cfg.MinExtra < 0 {
		cfg.MinExtra = 0
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	m := &AlertMonitor{
		cfg:     cfg,
		alerts:  alerts,
		candles: candles,
		delivery: notify.Retrier{
			Notifier: notifier,
			Attempts: cfg.RetryAttempts,
			Backoff:  cfg.RetryBackoff,
			Timeout:  cfg.NotifyTimeout,
		},
		log: applogger.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *AlertMonitor) State() MonitorState { return MonitorState(m.state.Load()) }

// Start schedules the evaluation cycle, first run immediately. A cycle that
// overruns the interval delays the next one instead of overlapping it.
func (m *AlertMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sched != nil {
		return errors.New("alert monitor already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	if _, err := s.Every(m.cfg.Interval).Do(func() { m.tick(runCtx, func(ctx context.Context) { m.RunCycle(ctx) }) }); err != nil {
		cancel()
		return fmt.Errorf("schedule monitor cycle: %w", err)
	}
	if m.catalog != nil && m.cfg.CatalogReload > 0 {
		if _, err := s.Every(m.cfg.CatalogReload).WaitForSchedule().Do(func() { m.tick(runCtx, m.catalog.Reload) }); err != nil {
			cancel()
			return fmt.Errorf("schedule catalog reload: %w", err)
		}
	}

	s.StartAsync()
	m.sched, m.cancel = s, cancel
	m.log.Info("alert monitor started",
		applogger.Duration("interval", m.cfg.Interval),
		applogger.Int("candle_limit", m.cfg.CandleLimit),
		applogger.Bool("mark_on_failure", m.cfg.MarkOnFailure))
	return nil
}

// tick runs fn unless the monitor is stopping. Cycle-level panics are logged
// and the schedule continues.
func (m *AlertMonitor) tick(ctx context.Context, fn func(context.Context)) {
	// Stop cancels under mu, so no Add can follow its Wait.
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("monitor job panicked", applogger.Any("panic", r))
		}
	}()
	fn(ctx)
}

// Stop cancels the running cycle and waits for it to return.
func (m *AlertMonitor) Stop() {
	m.mu.Lock()
	s, cancel := m.sched, m.cancel
	m.sched, m.cancel = nil, nil
	if s == nil {
		m.mu.Unlock()
		return
	}
	cancel()
	m.mu.Unlock()
	s.Stop()
	m.wg.Wait()
	m.log.Info("alert monitor stopped")
}

// RunCycle evaluates every alert once. Cancellation is observed between alerts.
func (m *AlertMonitor) RunCycle(ctx context.Context) CycleReport {
	m.state.Store(int32(StateEvaluating))
	defer m.state.Store(int32(StateIdle))

	start := m.now()
	alerts := m.alerts.List()
	rep := CycleReport{Alerts: len(alerts)}

	for i, a := range alerts {
		if ctx.Err() != nil {
			m.log.Info("monitor cycle interrupted", applogger.Int("remaining", len(alerts)-i))
			break
		}
		outcome, notified := m.evaluate(ctx, a)
		switch outcome {
		case OutcomeSignal:
			rep.Signals++
			if notified {
				rep.Notified++
			}
		case OutcomeSkipped:
			rep.Skipped++
		case OutcomeError:
			rep.Failed++
		}
		if m.metrics != nil {
			m.metrics.RecordEvaluation(outcome)
		}
	}

	rep.Duration = m.now().Sub(start)
	if m.metrics != nil {
		m.metrics.RecordCycle(rep.Duration.Seconds(), rep.Alerts)
	}
	m.log.Debug("monitor cycle done",
		applogger.Int("alerts", rep.Alerts),
		applogger.Int("signals", rep.Signals),
		applogger.Int("notified", rep.Notified),
		applogger.Int("skipped", rep.Skipped),
		applogger.Int("failed", rep.Failed),
		applogger.Duration("took", rep.Duration))
	return rep
}

// evaluate handles one alert in isolation. A panic is contained and reported
// as an error outcome.
func (m *AlertMonitor) evaluate(ctx context.Context, a models.Alert) (outcome string, notified bool) {
	log := m.log.With(
		applogger.String("alert_id", a.ID),
		applogger.String("symbol", a.Symbol),
		applogger.String("timeframe", a.Timeframe))
	defer func() {
		if r := recover(); r != nil {
			log.Error("alert evaluation panicked", applogger.Any("panic", r))
			outcome, notified = OutcomeError, false
		}
	}()

	candles, err := m.fetch(ctx, a)
	if err != nil {
		log.Warn("candle fetch failed", applogger.Error(err))
		return OutcomeError, false
	}
	if len(candles) == 0 || len(candles) < a.Slow+m.cfg.MinExtra {
		log.Debug("insufficient candle history",
			applogger.Int("candles", len(candles)),
			applogger.Int("required", a.Slow+m.cfg.MinExtra))
		return OutcomeSkipped, false
	}

	cross := indicators.Evaluate(models.Closes(candles), a.Fast, a.Slow)
	if cross.Signal == models.SignalNone || cross.Signal == a.LastSignal {
		return OutcomeNoSignal, false
	}

	if m.metrics != nil {
		m.metrics.RecordSignal(a.Symbol, cross.Signal)
	}
	res := m.delivery.Deliver(ctx, a.Email,
		notify.CrossoverSubject(a.Symbol),
		notify.CrossoverBody(cross.Signal, a.Symbol, a.Timeframe, a.Fast, a.Slow))
	m.recordNotification(res)

	if res.OK() {
		log.Info("crossover notified",
			applogger.String("signal", cross.Signal.String()),
			applogger.Float64("fast_ema", cross.FastEMA),
			applogger.Float64("slow_ema", cross.SlowEMA),
			applogger.Int("attempts", res.Attempts))
	} else {
		log.Error("crossover notification failed",
			applogger.String("signal", cross.Signal.String()),
			applogger.Int("attempts", res.Attempts),
			applogger.Bool("marked", m.cfg.MarkOnFailure),
			applogger.Error(res.Err))
	}

	if res.OK() || m.cfg.MarkOnFailure {
		if !m.alerts.UpdateSignal(a.ID, cross.Signal) {
			log.Debug("alert removed during evaluation")
		}
	}

	last := candles[len(candles)-1]
	m.publish(ctx, log, models.SignalEvent{
		AlertID:    a.ID,
		Symbol:     a.Symbol,
		Timeframe:  a.Timeframe,
		Fast:       a.Fast,
		Slow:       a.Slow,
		Signal:     cross.Signal,
		FastEMA:    cross.FastEMA,
		SlowEMA:    cross.SlowEMA,
		Close:      last.Close,
		CandleTime: last.Time,
		Notified:   res.OK(),
		DetectedAt: m.now().UTC(),
	})
	return OutcomeSignal, res.OK()
}

func (m *AlertMonitor) fetch(ctx context.Context, a models.Alert) ([]models.Candle, error) {
	if m.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.FetchTimeout)
		defer cancel()
	}
	return m.candles.Candles(ctx, a.Symbol, drepo.Timeframe(a.Timeframe), m.cfg.CandleLimit)
}

// publish is best-effort.
func (m *AlertMonitor) publish(ctx context.Context, log *applogger.Logger, ev models.SignalEvent) {
	if m.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.PublishTimeout)
	defer cancel()
	if err := m.publisher.PublishSignal(ctx, ev); err != nil {
		log.Warn("signal event publish failed", applogger.Error(err))
	}
}

func (m *AlertMonitor) recordNotification(res notify.Result) {
	if m.metrics == nil {
		return
	}
	if res.OK() {
		m.metrics.RecordNotification("sent")
	} else {
		m.metrics.RecordNotification("failed")
	}
}
