package notify

import (
	"context"
	"log/slog"
)

// LogSink writes events to the structured log. Always wired; it is the
// minimum observable trace of ledger activity.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "ledger event",
		"event_type", string(event.Type),
		"account", event.Account.String(),
		"actor", event.Actor.String(),
		"amount", event.Amount,
		"at", event.At,
	)
	return nil
}
