package notify

import (
	"context"

	applogger "CrossWatch/pkg/logger"
)

// LogNotifier writes notifications to the log instead of sending them.
// Used in development and when no mail relay is configured.
type LogNotifier struct {
	log *applogger.Logger
}

func NewLogNotifier(log *applogger.Logger) *LogNotifier {
	if log == nil {
		log = applogger.Nop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	if to == "" {
		return ErrInvalidRecipient
	}
	n.log.Info("notification",
		applogger.String("to", to),
		applogger.String("subject", subject),
		applogger.String("body", body))
	return nil
}
