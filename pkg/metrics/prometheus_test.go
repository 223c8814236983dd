package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"CrossWatch/internal/domain/models"
)

func TestRecorderCounts(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordEvaluation("skipped")
	r.RecordEvaluation("skipped")
	r.RecordSignal("BTCUSD", models.SignalBullish)
	r.RecordNotification("failed")
	r.RecordCacheFetch("stale")
	r.RecordUpstream("candles", 0.2, errors.New("boom"))
	r.RecordUpstream("candles", 0.1, nil)
	r.RecordCycle(1.5, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.evaluations.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.signals.WithLabelValues("BTCUSD", "BULLISH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notifications.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheFetches.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.upstreamErrs.WithLabelValues("candles")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.cycleAlerts))
}
