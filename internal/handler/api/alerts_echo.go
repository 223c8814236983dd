package api

import (
	"context"
	"net/http"
	"strings"

	"CrossWatch/internal/domain/models"
	"CrossWatch/internal/service/notify"
	"CrossWatch/internal/service/ratelimit"
	xhttp "CrossWatch/pkg/http"
	xlogger "CrossWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HeaderDataStale is set on /data responses served from an outdated snapshot.
const HeaderDataStale = "X-Data-Stale"

// PriceTable serves the dashboard price rows.
type PriceTable interface {
	Rows(ctx context.Context) ([]models.PriceRow, bool)
}

// AlertAPI is the alert registration surface.
type AlertAPI interface {
	Add(req models.AddAlertRequest) []models.Alert
	List() []models.Alert
	DeleteAt(index int) bool
	Delete(id string) bool
	SendTest(ctx context.Context, email string) notify.Result
}

// AlertsEchoHandler serves the dashboard endpoints.
type AlertsEchoHandler struct {
	logger *xlogger.Logger
	prices PriceTable
	alerts AlertAPI
	rl     *ratelimit.Limiter
}

func NewAlertsEchoHandler(logger *xlogger.Logger, prices PriceTable, alerts AlertAPI, rl *ratelimit.Limiter) *AlertsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if rl == nil {
		rl = ratelimit.New()
	}
	return &AlertsEchoHandler{logger: logger, prices: prices, alerts: alerts, rl: rl}
}

func (h *AlertsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/data", h.Data)
	e.POST("/add-alert", h.AddAlert)
	e.GET("/get-alerts", h.GetAlerts)
	e.DELETE("/delete-alert/:index", h.DeleteAlert)
	e.DELETE("/alerts/:id", h.DeleteAlertByID)
	e.POST("/test-alert", h.TestAlert)
}

func (h *AlertsEchoHandler) Data(c echo.Context) error {
	rows, stale := h.prices.Rows(c.Request().Context())
	if stale {
		c.Response().Header().Set(HeaderDataStale, "true")
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *AlertsEchoHandler) AddAlert(c echo.Context) error {
	req := &models.AddAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.logger.Debug("add-alert rejected", xlogger.Any("errors", verr))
		return xhttp.BadRequestResponse(c, verr)
	}
	h.alerts.Add(*req)
	return xhttp.StatusResponse(c, http.StatusOK, "Alert Added")
}

func (h *AlertsEchoHandler) GetAlerts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.alerts.List())
}

// DeleteAlert always acknowledges; unknown or malformed positions are no-ops.
func (h *AlertsEchoHandler) DeleteAlert(c echo.Context) error {
	if idx := xhttp.ParseIntDefault(c.Param("index"), -1); idx >= 0 {
		h.alerts.DeleteAt(idx)
	}
	return xhttp.StatusResponse(c, http.StatusOK, "Deleted")
}

// DeleteAlertByID removes an alert by the id listed in /get-alerts.
func (h *AlertsEchoHandler) DeleteAlertByID(c echo.Context) error {
	if !h.alerts.Delete(c.Param("id")) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("alert not found"))
	}
	return xhttp.StatusResponse(c, http.StatusOK, "Deleted")
}

func (h *AlertsEchoHandler) TestAlert(c echo.Context) error {
	req := &models.TestAlertRequest{}
	if err := c.Bind(req); err != nil || strings.TrimSpace(req.Email) == "" {
		return xhttp.ErrorResponse(c, http.StatusBadRequest, "Email required")
	}
	if !h.rl.Allow(c.RealIP()+":test-alert", 3, 0.05) {
		h.logger.Warn("test-alert rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.ErrorResponse(c, http.StatusTooManyRequests, "Too many test emails, try again later")
	}

	res := h.alerts.SendTest(c.Request().Context(), req.Email)
	if !res.OK() {
		return xhttp.ErrorResponse(c, http.StatusBadGateway, "Test email failed")
	}
	return xhttp.StatusResponse(c, http.StatusOK, "Test email sent")
}
