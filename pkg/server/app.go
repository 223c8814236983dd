package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CrossWatch/internal/usecase"
	"CrossWatch/pkg/config"
	xhttp "CrossWatch/pkg/http"
	pkgkafka "CrossWatch/pkg/kafka"
	applogger "CrossWatch/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	monitor    *usecase.AlertMonitor
	consumer   *pkgkafka.Consumer // nil unless events are consumed back from Kafka
	closers    []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	monitor *usecase.AlertMonitor,
	consumer *pkgkafka.Consumer,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		monitor:    monitor,
		consumer:   consumer,
	}
}

// OnShutdown registers a resource closed after the server and the monitor
// stopped, in reverse registration order.
func (a *App) OnShutdown(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// Run starts the monitor, the optional consumer and the HTTP server, then
// blocks until SIGINT/SIGTERM or a listener failure.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.monitor.Start(ctx); err != nil {
		return err
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.monitor.Stop()
			return err
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
	}
	return errors.Join(runErr, a.shutdown())
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	a.monitor.Stop()

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	a.log.RemoveCollector()
	return errors.Join(errs...)
}
