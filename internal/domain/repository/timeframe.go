package repository

import "time"

// Timeframe is a candle resolution as the exchange spells it.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF3m  Timeframe = "3m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF2h  Timeframe = "2h"
	TF4h  Timeframe = "4h"
	TF6h  Timeframe = "6h"
	TF12h Timeframe = "12h"
	TF1d  Timeframe = "1d"
	TF1w  Timeframe = "1w"
)

var timeframeDurations = map[Timeframe]time.Duration{
	TF1m:  time.Minute,
	TF3m:  3 * time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
	TF30m: 30 * time.Minute,
	TF1h:  time.Hour,
	TF2h:  2 * time.Hour,
	TF4h:  4 * time.Hour,
	TF6h:  6 * time.Hour,
	TF12h: 12 * time.Hour,
	TF1d:  24 * time.Hour,
	TF1w:  7 * 24 * time.Hour,
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	_, ok := timeframeDurations[tf]
	return ok
}

// Duration returns the bucket width, or 0 for unknown timeframes.
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF5m }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}
