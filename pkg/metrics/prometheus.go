package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"CrossWatch/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycleDuration prometheus.Histogram
	cycleAlerts   prometheus.Gauge
	evaluations   *prometheus.CounterVec
	signals       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	cacheFetches  *prometheus.CounterVec
	upstream      *prometheus.HistogramVec
	upstreamErrs  *prometheus.CounterVec
}

// New registers the recorder on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the recorder on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "crosswatch_monitor_cycle_seconds",
			Help:    "Duration of one alert evaluation cycle",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		cycleAlerts: f.NewGauge(prometheus.GaugeOpts{
			Name: "crosswatch_monitor_alerts",
			Help: "Number of alerts evaluated in the last cycle",
		}),
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crosswatch_alert_evaluations_total",
			Help: "Alert evaluations by outcome",
		}, []string{"outcome"}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crosswatch_signals_total",
			Help: "Crossover edges detected",
		}, []string{"symbol", "signal"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crosswatch_notifications_total",
			Help: "Notifications by result",
		}, []string{"result"}),
		cacheFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crosswatch_snapshot_fetches_total",
			Help: "Ticker snapshot cache lookups by result (hit, refresh, stale)",
		}, []string{"result"}),
		upstream: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crosswatch_upstream_request_seconds",
			Help:    "Latency of market data requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		upstreamErrs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crosswatch_upstream_errors_total",
			Help: "Failed market data requests",
		}, []string{"operation"}),
	}
}

// RecordCycle records one finished monitor cycle.
func (r *Recorder) RecordCycle(seconds float64, alerts int) {
	r.cycleDuration.Observe(seconds)
	r.cycleAlerts.Set(float64(alerts))
}

// RecordEvaluation counts an alert evaluation outcome (signal, no_signal, skipped, error).
func (r *Recorder) RecordEvaluation(outcome string) {
	r.evaluations.WithLabelValues(outcome).Inc()
}

// RecordSignal counts a detected crossover edge.
func (r *Recorder) RecordSignal(symbol string, signal models.Signal) {
	r.signals.WithLabelValues(symbol, signal.String()).Inc()
}

// RecordNotification counts notifier results (sent, failed).
func (r *Recorder) RecordNotification(result string) {
	r.notifications.WithLabelValues(result).Inc()
}

// RecordCacheFetch counts snapshot cache results.
func (r *Recorder) RecordCacheFetch(result string) {
	r.cacheFetches.WithLabelValues(result).Inc()
}

// RecordUpstream records latency of one upstream call and counts failures.
func (r *Recorder) RecordUpstream(op string, seconds float64, err error) {
	r.upstream.WithLabelValues(op).Observe(seconds)
	if err != nil {
		r.upstreamErrs.WithLabelValues(op).Inc()
	}
}
