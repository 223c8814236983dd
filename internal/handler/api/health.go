package api

import (
	"context"
	"net/http"
	"time"

	"CrossWatch/internal/usecase"

	"github.com/labstack/echo/v4"
)

// CatalogInfo reports the loaded symbol universe.
type CatalogInfo interface {
	Len() int
	LoadedAt() time.Time
}

// AlertCounter reports how many alerts are registered.
type AlertCounter interface {
	Count() int
}

// MonitorInfo reports the scheduler state.
type MonitorInfo interface {
	State() usecase.MonitorState
}

// Pinger is an optional dependency health check (ClickHouse).
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler serves /healthz.
type HealthHandler struct {
	catalog CatalogInfo
	alerts  AlertCounter
	monitor MonitorInfo
	deps    map[string]Pinger
}

func NewHealthHandler(catalog CatalogInfo, alerts AlertCounter, monitor MonitorInfo, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{catalog: catalog, alerts: alerts, monitor: monitor, deps: deps}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

type healthBody struct {
	Status          string            `json:"status"`
	Symbols         int               `json:"symbols"`
	CatalogLoadedAt time.Time         `json:"catalog_loaded_at"`
	Alerts          int               `json:"alerts"`
	Monitor         string            `json:"monitor"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
}

// Health always answers 200 while the process serves requests; failing
// optional dependencies only flip status to "degraded".
func (h *HealthHandler) Health(c echo.Context) error {
	body := healthBody{
		Status:          "ok",
		Symbols:         h.catalog.Len(),
		CatalogLoadedAt: h.catalog.LoadedAt(),
		Alerts:          h.alerts.Count(),
		Monitor:         h.monitor.State().String(),
	}
	if len(h.deps) > 0 {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		body.Dependencies = make(map[string]string, len(h.deps))
		for name, p := range h.deps {
			if err := p.Health(ctx); err != nil {
				body.Dependencies[name] = err.Error()
				body.Status = "degraded"
				continue
			}
			body.Dependencies[name] = "ok"
		}
	}
	return c.JSON(http.StatusOK, body)
}
