// internal/pkg/events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quickcommerce/storefront/internal/config"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes JSON events to a single Kafka topic
type Publisher struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewPublisher creates a publisher for the order events topic. With no
// brokers configured it returns a publisher that drops events.
func NewPublisher(cfg *config.Config) *Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return &Publisher{}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Kafka.Brokers...),
		Topic:                  cfg.Kafka.OrderEventsTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: cfg.IsDevelopment(),
	}
	return NewPublisherWithWriter(writer, cfg.Kafka.WriteTimeout)
}

// NewPublisherWithWriter wraps an existing writer
func NewPublisherWithWriter(writer MessageWriter, timeout time.Duration) *Publisher {
	return &Publisher{writer: writer, timeout: timeout}
}

// Enabled reports whether events actually leave the process
func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

// PublishJSON marshals payload and writes it under key. Messages with the same
// key land on the same partition.
func (p *Publisher) PublishJSON(ctx context.Context, key string, payload any) error {
	if !p.Enabled() {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg := kafka.Message{Key: []byte(key), Value: data, Time: time.Now().UTC()}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.writer.Close()
}
