// Package indicators holds the moving-average math behind crossover alerts.
package indicators

import "CrossWatch/internal/domain/models"

// Alpha returns the EMA weight factor 2/(span+1).
func Alpha(span int) float64 {
	return 2.0 / (float64(span) + 1.0)
}

// ComputeEMA returns the adjusted exponential moving average of closes, one
// value per input point:
//
//	EMA[t] = Σ (1-α)^i * close[t-i] / Σ (1-α)^i,  i = 0..t
//
// Every prior point keeps a decaying weight, so the first values differ from
// the recursive ema = α*close + (1-α)*ema form. Returns nil when span <= 0.
func ComputeEMA(closes []float64, span int) []float64 {
	if span <= 0 {
		return nil
	}
	out := make([]float64, len(closes))
	decay := 1 - Alpha(span)
	num, den := 0.0, 0.0
	for t, c := range closes {
		num = c + decay*num
		den = 1 + decay*den
		out[t] = num / den
	}
	return out
}

// DetectCrossover compares the fast/slow relation at two consecutive points.
// Only a strict flip counts; touching or equal values on either side is None.
func DetectCrossover(prevFast, prevSlow, currFast, currSlow float64) models.Signal {
	switch {
	case prevFast < prevSlow && currFast > currSlow:
		return models.SignalBullish
	case prevFast > prevSlow && currFast < currSlow:
		return models.SignalBearish
	default:
		return models.SignalNone
	}
}

// Crossover is the result of evaluating one close series.
type Crossover struct {
	Signal  models.Signal
	FastEMA float64 // latest fast value
	SlowEMA float64 // latest slow value
}

// Evaluate computes both EMAs over closes and checks the last two points.
// Fewer than two points, or an invalid span, yields SignalNone.
func Evaluate(closes []float64, fast, slow int) Crossover {
	if len(closes) < 2 || fast <= 0 || slow <= 0 {
		return Crossover{}
	}
	f := ComputeEMA(closes, fast)
	s := ComputeEMA(closes, slow)
	n := len(closes)
	return Crossover{
		Signal:  DetectCrossover(f[n-2], s[n-2], f[n-1], s[n-1]),
		FastEMA: f[n-1],
		SlowEMA: s[n-1],
	}
}
