package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CrossWatch/internal/domain/models"
	domrepo "CrossWatch/internal/domain/repository"
	pkgkafka "CrossWatch/pkg/kafka"
	applogger "CrossWatch/pkg/logger"
)

// SignalEventsHandler consumes crossover events from Kafka and stores them.
type SignalEventsHandler struct {
	topic string
	store domrepo.SignalStore
	log   *applogger.Logger
}

func NewSignalEventsHandler(topic string, store domrepo.SignalStore, log *applogger.Logger) *SignalEventsHandler {
	if log == nil {
		log = applogger.Nop()
	}
	return &SignalEventsHandler{topic: topic, store: store, log: log}
}

func (h *SignalEventsHandler) Topic() string { return h.topic }

func (h *SignalEventsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.SignalEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return fmt.Errorf("decode signal event: %w", err)
	}
	if ev.Symbol == "" || ev.Signal == models.SignalNone {
		return fmt.Errorf("signal event missing symbol or signal")
	}
	if ev.DetectedAt.IsZero() {
		ev.DetectedAt = time.Now().UTC()
	}
	if err := h.store.Insert(ctx, ev); err != nil {
		return err
	}
	h.log.Debug("signal event stored",
		applogger.String("symbol", ev.Symbol),
		applogger.String("signal", ev.Signal.String()),
		applogger.Duration("lag", time.Since(ev.DetectedAt)))
	return nil
}

var _ pkgkafka.MessageHandler = (*SignalEventsHandler)(nil)
