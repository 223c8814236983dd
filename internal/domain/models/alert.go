package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Alert is one registered EMA crossover watch. LastSignal is the only field
// mutated after creation.
type Alert struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Fast       int       `json:"fast"`
	Slow       int       `json:"slow"`
	Email      string    `json:"email"`
	LastSignal Signal    `json:"last_signal"`
	CreatedAt  time.Time `json:"created_at"`
}

// AddAlertRequest is the body of POST /add-alert. Symbol is required unless
// ApplyAll is set.
type AddAlertRequest struct {
	Symbol    string  `json:"symbol" validate:"required_without=ApplyAll,max=64"`
	ApplyAll  bool    `json:"apply_all"`
	Timeframe string  `json:"timeframe" validate:"required,oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 12h 1d 1w"`
	Fast      FlexInt `json:"fast" validate:"required,gt=0"`
	Slow      FlexInt `json:"slow" validate:"required,gt=0"`
	Email     string  `json:"email" validate:"required,email"`
}

// FlexInt decodes from a JSON number or a numeric string ("12"). Dashboard
// forms post either.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// TestAlertRequest is the body of POST /test-alert.
type TestAlertRequest struct {
	Email string `json:"email"`
}

// SignalsRequest queries recorded crossover events.
type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// ChartRequest queries candles with both EMA overlays.
type ChartRequest struct {
	Symbol    string `query:"symbol" json:"symbol" validate:"required,max=64"`
	Timeframe string `query:"timeframe" json:"timeframe" default:"5m" validate:"oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 12h 1d 1w"`
	Limit     int    `query:"limit" json:"limit" default:"300" validate:"gte=2,lte=1000"`
	Fast      int    `query:"fast" json:"fast" default:"9" validate:"gt=0"`
	Slow      int    `query:"slow" json:"slow" default:"21" validate:"gt=0"`
}
