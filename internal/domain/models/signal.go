package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Signal is the outcome of a crossover check.
type Signal int

const (
	SignalNone Signal = iota
	SignalBullish
	SignalBearish
)

func (s Signal) String() string {
	switch s {
	case SignalBullish:
		return "BULLISH"
	case SignalBearish:
		return "BEARISH"
	default:
		return "NONE"
	}
}

// MarshalJSON encodes SignalNone as null, matching the alert listing format.
func (s Signal) MarshalJSON() ([]byte, error) {
	if s == SignalNone {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

func (s *Signal) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = SignalNone
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseSignal(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSignal accepts the String() form; empty and "NONE" map to SignalNone.
func ParseSignal(s string) (Signal, error) {
	switch s {
	case "", "NONE":
		return SignalNone, nil
	case "BULLISH":
		return SignalBullish, nil
	case "BEARISH":
		return SignalBearish, nil
	default:
		return SignalNone, fmt.Errorf("unknown signal %q", s)
	}
}

// SignalEvent records one detected crossover edge and the outcome of its
// notification.
type SignalEvent struct {
	AlertID    string    `json:"alert_id"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Fast       int       `json:"fast"`
	Slow       int       `json:"slow"`
	Signal     Signal    `json:"signal"`
	FastEMA    float64   `json:"fast_ema"`
	SlowEMA    float64   `json:"slow_ema"`
	Close      float64   `json:"close"`
	CandleTime time.Time `json:"candle_time"`
	Notified   bool      `json:"notified"`
	DetectedAt time.Time `json:"detected_at"`
}
