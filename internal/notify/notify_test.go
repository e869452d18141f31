package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrowd/pkg/domain"
)

type failingSink struct {
	calls int
}

func (s *failingSink) Publish(context.Context, Event) error {
	s.calls++
	return errors.New("sink unavailable")
}

func newTestEvent(eventType EventType) Event {
	return Event{
		Type:    eventType,
		Account: domain.NewAccountID(),
		Actor:   domain.NewAccountID(),
		Amount:  100,
		At:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFanout_DeliversToAllSinks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	first := NewMemorySink()
	second := NewMemorySink()
	fanout := NewFanout(logger, first, second)

	event := newTestEvent(EventFundsDeposited)
	require.NoError(t, fanout.Publish(context.Background(), event))

	require.Len(t, first.Events(), 1)
	require.Len(t, second.Events(), 1)
	assert.Equal(t, event, first.Events()[0])
}

func TestFanout_FailingSinkDoesNotBlockOthers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broken := &failingSink{}
	healthy := NewMemorySink()
	fanout := NewFanout(logger, broken, healthy)

	err := fanout.Publish(context.Background(), newTestEvent(EventFundsWithdrawn))
	require.NoError(t, err, "fanout is best-effort")

	assert.Equal(t, 1, broken.calls)
	assert.Len(t, healthy.Events(), 1, "later sinks still receive the event")
}

func TestMemorySink_OrderAndReset(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	require.NoError(t, sink.Publish(ctx, newTestEvent(EventAccountWhitelisted)))
	require.NoError(t, sink.Publish(ctx, newTestEvent(EventAccountBlacklisted)))

	events := sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventAccountWhitelisted, events[0].Type)
	assert.Equal(t, EventAccountBlacklisted, events[1].Type)

	sink.Reset()
	assert.Empty(t, sink.Events())
}

func TestLogSink_Publish(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := NewLogSink(logger)

	err := sink.Publish(context.Background(), newTestEvent(EventAdminTransferred))
	assert.NoError(t, err)
}

func TestNewRedisSink_NilClient(t *testing.T) {
	_, err := NewRedisSink(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis client is required")
}
