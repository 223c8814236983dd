package api

import (
	"context"
	"strings"

	"CrossWatch/internal/domain/models"
	domrepo "CrossWatch/internal/domain/repository"
	"CrossWatch/internal/usecase"
	xhttp "CrossWatch/pkg/http"
	xlogger "CrossWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ChartReader builds EMA chart series.
type ChartReader interface {
	GetChart(ctx context.Context, p usecase.GetChartParams) (*usecase.GetChartResult, error)
}

// HistoryEchoHandler serves recorded crossover events and the EMA chart.
type HistoryEchoHandler struct {
	logger *xlogger.Logger
	charts ChartReader
	store  domrepo.SignalStore // nil when no event store is configured
}

func NewHistoryEchoHandler(logger *xlogger.Logger, charts ChartReader, store domrepo.SignalStore) *HistoryEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &HistoryEchoHandler{logger: logger, charts: charts, store: store}
}

func (h *HistoryEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/signals", h.Signals)
	e.GET("/candles", h.Candles)
}

func (h *HistoryEchoHandler) Signals(c echo.Context) error {
	if h.store == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("signal history is not enabled"))
	}
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	events, err := h.store.Recent(c.Request().Context(), strings.ToUpper(strings.TrimSpace(req.Symbol)), req.Limit)
	if err != nil {
		h.logger.Error("signals history error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UpstreamError("signal history unavailable").WithError(err))
	}
	if events == nil {
		events = []models.SignalEvent{}
	}
	return xhttp.SuccessResponse(c, events)
}

func (h *HistoryEchoHandler) Candles(c echo.Context) error {
	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.charts.GetChart(c.Request().Context(), usecase.GetChartParams{
		Symbol:    strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Timeframe: domrepo.NormalizeTimeframe(req.Timeframe),
		Limit:     req.Limit,
		Fast:      req.Fast,
		Slow:      req.Slow,
	})
	if err != nil {
		h.logger.Warn("chart usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UpstreamError("candles unavailable").WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}
