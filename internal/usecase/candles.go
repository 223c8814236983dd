package usecase

import (
	"context"
	"fmt"
	"time"

	"CrossWatch/internal/domain/models"
	domrepo "CrossWatch/internal/domain/repository"
	"CrossWatch/internal/services/indicators"
	xutil "CrossWatch/pkg/util"
)

// ChartUseCase serves candles with both EMA overlays for the terminal chart.
type ChartUseCase struct {
	candles domrepo.CandleSource
}

func NewChartUseCase(candles domrepo.CandleSource) *ChartUseCase {
	return &ChartUseCase{candles: candles}
}

type GetChartParams struct {
	Symbol    string
	Timeframe domrepo.Timeframe
	Limit     int
	Fast      int
	Slow      int
}

type ChartPoint struct {
	Time    time.Time `json:"time"`
	Close   float64   `json:"close"`
	FastEMA float64   `json:"fast_ema"`
	SlowEMA float64   `json:"slow_ema"`
}

type GetChartResult struct {
	Symbol    string        `json:"symbol"`
	Timeframe string        `json:"timeframe"`
	Fast      int           `json:"fast"`
	Slow      int           `json:"slow"`
	Count     int           `json:"count"`
	Signal    models.Signal `json:"signal"`
	Points    []ChartPoint  `json:"points"`
}

func (uc *ChartUseCase) GetChart(ctx context.Context, p GetChartParams) (*GetChartResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.Fast <= 0 || p.Slow <= 0 {
		return nil, fmt.Errorf("spans must be positive")
	}
	if p.Limit <= 0 {
		p.Limit = 300
	}
	p.Limit = xutil.Clamp(p.Limit, 2, 1000)

	candles, err := uc.candles.Candles(ctx, p.Symbol, p.Timeframe, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}

	closes := models.Closes(candles)
	fast := indicators.ComputeEMA(closes, p.Fast)
	slow := indicators.ComputeEMA(closes, p.Slow)
	points := make([]ChartPoint, len(candles))
	for i, c := range candles {
		points[i] = ChartPoint{Time: c.Time, Close: c.Close, FastEMA: fast[i], SlowEMA: slow[i]}
	}

	return &GetChartResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		Fast:      p.Fast,
		Slow:      p.Slow,
		Count:     len(points),
		Signal:    indicators.Evaluate(closes, p.Fast, p.Slow).Signal,
		Points:    points,
	}, nil
}
