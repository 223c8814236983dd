package api

import (
	"net/http"
	"sync"
	"time"

	xlogger "CrossWatch/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	streamWriteWait  = 5 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
	streamReadLimit  = 512
)

// PriceStreamHandler pushes the /data rows over a websocket on every tick.
type PriceStreamHandler struct {
	logger   *xlogger.Logger
	prices   PriceTable
	interval time.Duration
	upgrader websocket.Upgrader

	quit     chan struct{}
	quitOnce sync.Once
}

func NewPriceStreamHandler(logger *xlogger.Logger, prices PriceTable, interval time.Duration) *PriceStreamHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &PriceStreamHandler{
		logger:   logger,
		prices:   prices,
		interval: interval,
		quit:     make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// dashboard may be served from another origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *PriceStreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/data", h.Stream)
}

// OnShutdown sends a going-away close frame to every open stream.
func (h *PriceStreamHandler) OnShutdown() {
	h.quitOnce.Do(func() { close(h.quit) })
}

type streamFrame struct {
	Stale bool        `json:"stale"`
	Rows  interface{} `json:"rows"`
	At    time.Time   `json:"at"`
}

func (h *PriceStreamHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("ws upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	remote := c.RealIP()
	h.logger.Debug("ws client connected", xlogger.String("remote", remote))

	// Reads only serve close and pong frames; the first read error ends the stream.
	done := make(chan struct{})
	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request().Context()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	push := func() error {
		rows, stale := h.prices.Rows(ctx)
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteJSON(streamFrame{Stale: stale, Rows: rows, At: time.Now().UTC()})
	}

	if err := push(); err != nil {
		return nil
	}
	for {
		select {
		case <-done:
			h.logger.Debug("ws client gone", xlogger.String("remote", remote))
			return nil
		case <-h.quit:
			h.goingAway(conn)
			return nil
		case <-ctx.Done():
			h.goingAway(conn)
			return nil
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := push(); err != nil {
				h.logger.Debug("ws write failed", xlogger.String("remote", remote), xlogger.Error(err))
				return nil
			}
		}
	}
}

func (h *PriceStreamHandler) goingAway(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(streamWriteWait))
}
