package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/simaogato/fxledger-backend/internal/adapter/dto"
	"github.com/simaogato/fxledger-backend/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher publishes BucketRebuilt events. Messages are keyed by bucket so
// that the events of one bucket stay ordered within a partition.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher creates a Publisher writing to topic on brokers
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafkago.RequireAll,
		},
		topic: topic,
	}
}

// PublishBucketRebuilt implements domain.EventPublisher
func (p *Publisher) PublishBucketRebuilt(ctx context.Context, evt domain.BucketRebuilt) error {
	value, err := json.Marshal(dto.FromBucketRebuilt(evt))
	if err != nil {
		return fmt.Errorf("failed to encode bucket rebuilt event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(evt.Bucket.String()),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte("bucket.rebuilt")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("closing kafka writer: %w", err)
	}
	return nil
}
