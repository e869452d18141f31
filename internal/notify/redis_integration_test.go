//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"escrowd/internal/notify"
	"escrowd/pkg/domain"
	"escrowd/pkg/testutil/containers"
)

// TestRedisSink_PublishAppendsToStream verifies events land on the capped
// stream with type and payload fields.
func TestRedisSink_PublishAppendsToStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	redisContainer := containers.GetManager().GetRedis(t)
	require.NoError(t, redisContainer.FlushAll(ctx))

	sink, err := notify.NewRedisSink(redisContainer.Client)
	require.NoError(t, err)

	event := notify.Event{
		Type:    notify.EventFundsRecovered,
		Account: domain.NewAccountID(),
		Actor:   domain.NewAccountID(),
		Amount:  500,
		At:      time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, sink.Publish(ctx, event))

	entries, err := redisContainer.Client.XRange(ctx, "escrowd:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.Equal(t, string(notify.EventFundsRecovered), entries[0].Values["type"])

	payload, ok := entries[0].Values["payload"].(string)
	require.True(t, ok, "payload should be a string field")

	var decoded notify.Event
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	require.Equal(t, event.Type, decoded.Type)
	require.Equal(t, event.Account, decoded.Account)
	require.Equal(t, event.Amount, decoded.Amount)
}
