package http

import "github.com/labstack/echo/v4"

// Handler registers its routes on the Echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// ShutdownHook is implemented by handlers that own hijacked connections,
// such as websocket streams. Graceful shutdown does not wait for those, so
// OnShutdown is called as soon as the server starts shutting down.
type ShutdownHook interface {
	OnShutdown()
}
