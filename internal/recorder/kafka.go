package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink mirrors transaction records to a Kafka topic for downstream
// consumers (reporting, reconciliation, archival). Records are keyed by
// account so per-account ordering is preserved across partitions.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

func NewKafkaSink(ctx context.Context, brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &KafkaSink{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)

	responses, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, response := range responses.Sorted() {
		if response.Err != nil && !errors.Is(response.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", response.Topic, response.Err)
		}
	}
	return nil
}

func (s *KafkaSink) Append(ctx context.Context, record Record) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	msg := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(record.Account.String()),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, msg).FirstErr(); err != nil {
		return fmt.Errorf("produce record: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}
