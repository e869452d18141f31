// Package notify fans ledger lifecycle events out to interested sinks.
// Delivery is best-effort: the ledger operation has already committed by the
// time an event is published, so a failing sink is logged and skipped rather
// than failing the request.
package notify

import (
	"context"
	"log/slog"
	"time"

	"escrowd/pkg/domain"
)

type EventType string

const (
	EventAdminTransferred      EventType = "admin_transferred"
	EventControllerTransferred EventType = "controller_transferred"
	EventAccountWhitelisted    EventType = "account_whitelisted"
	EventAccountBlacklisted    EventType = "account_blacklisted"
	EventFundsAllocated        EventType = "funds_allocated"
	EventFundsWithdrawn        EventType = "funds_withdrawn"
	EventFundsRecovered        EventType = "funds_recovered"
	EventFundsDeposited        EventType = "funds_deposited"
)

// Event captures one committed state change. Account is the subject of the
// change; Actor is who caused it. Amount is zero for membership and role
// changes.
type Event struct {
	Type    EventType         `json:"type"`
	Account domain.AccountID  `json:"account"`
	Actor   domain.AccountID  `json:"actor"`
	Amount  uint64            `json:"amount,omitempty"`
	At      time.Time         `json:"at"`
	Meta    map[string]string `json:"meta,omitempty"`
}

type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Fanout delivers each event to every registered sink. A sink error never
// stops delivery to the remaining sinks.
type Fanout struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{sinks: sinks, logger: logger}
}

func (f *Fanout) Publish(ctx context.Context, event Event) error {
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			f.logger.WarnContext(ctx, "event sink failed",
				"event_type", string(event.Type),
				"account", event.Account.String(),
				"error", err,
			)
		}
	}
	return nil
}
