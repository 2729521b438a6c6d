package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// DeliveryTimeout bounds how long a record may wait for a broker ack.
const DeliveryTimeout = 10 * time.Second

// RedpandaPublisher produces events to a Kafka-compatible topic using franz-go.
type RedpandaPublisher struct {
	client *kgo.Client
	topic  string
	mu     sync.RWMutex
	closed bool
}

// NewRedpandaPublisher creates a producer for topic.
// brokers is a slice of broker addresses (e.g., ["localhost:19092"]).
func NewRedpandaPublisher(brokers []string, topic string) (*RedpandaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RecordDeliveryTimeout(DeliveryTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	return &RedpandaPublisher{client: client, topic: topic}, nil
}

// Publish produces the event synchronously, keyed by build id.
func (p *RedpandaPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	value, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Key()),
		Value: value,
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce event: %w", err)
	}
	return nil
}

// Close flushes and shuts down the producer.
func (p *RedpandaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.client.Close()
	return nil
}
