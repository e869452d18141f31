package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis stream carrying ledger events for external consumers.
	eventStreamKey = "escrowd:events"

	// Approximate cap so the stream cannot grow without bound.
	eventStreamMaxLen = 10_000
)

// RedisSink appends events to a capped Redis stream. This is the production
// fan-out for dashboards and downstream consumers; the client lifecycle is
// managed externally.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) (*RedisSink, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisSink{client: client}, nil
}

func (s *RedisSink) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStreamKey,
		MaxLen: eventStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":    string(event.Type),
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("append event to stream: %w", err)
	}
	return nil
}
