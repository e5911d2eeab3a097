package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/simaogato/fxledger-backend/internal/adapter/dto"
	"github.com/simaogato/fxledger-backend/internal/domain"
	"github.com/simaogato/fxledger-backend/internal/usecase/reconcile"
)

// DefaultMaxRetries bounds the retries of one message before the consumer gives up
const DefaultMaxRetries = 5

// messageReader is the subset of *kafkago.Reader the consumer needs
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// EventHandler applies a transaction change
type EventHandler interface {
	Handle(ctx context.Context, evt reconcile.TransactionEvent) (*reconcile.RebuildResult, error)
}

// Consumer reads transaction change events and triggers bucket rebuilds.
//
// Messages that can never succeed (undecodable payloads, invalid transactions)
// are logged and committed. Other failures are retried with exponential
// backoff; when retries run out Start returns an error and the offset stays
// uncommitted, so the message is redelivered after a restart.
type Consumer struct {
	reader     messageReader
	handler    EventHandler
	logger     zerolog.Logger
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// NewConsumer creates a Consumer for topic in the given consumer group
func NewConsumer(brokers []string, topic, groupID string, handler EventHandler, logger zerolog.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10 * 1024 * 1024,
	})
	return newConsumer(reader, handler, logger)
}

func newConsumer(reader messageReader, handler EventHandler, logger zerolog.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		handler:    handler,
		logger:     logger.With().Str("component", "kafka_consumer").Logger(),
		maxRetries: DefaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

// Start consumes messages until ctx is canceled
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().Msg("consumer starting")

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info().Msg("consumer stopping due to context cancellation")
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}

		if err := c.process(ctx, m); err != nil {
			if ctx.Err() != nil {
				c.logger.Info().Msg("consumer stopping due to context cancellation")
				return nil
			}
			return fmt.Errorf("processing message at %s/%d/%d: %w", m.Topic, m.Partition, m.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error().Err(err).
				Str("topic", m.Topic).
				Int("partition", m.Partition).
				Int64("offset", m.Offset).
				Msg("commit error")
		}
	}
}

// process handles one message. A nil return means the offset may be committed.
func (c *Consumer) process(ctx context.Context, m kafkago.Message) error {
	log := c.logger.With().
		Str("topic", m.Topic).
		Int("partition", m.Partition).
		Int64("offset", m.Offset).
		Str("key", string(m.Key)).
		Logger()

	evt, err := decode(m.Value)
	if err != nil {
		log.Warn().Err(err).Msg("skipping undecodable message")
		return nil
	}

	attempt := 0
	operation := func() error {
		attempt++
		result, err := c.handler.Handle(ctx, evt)
		if err == nil {
			log.Debug().
				Str("bucket", result.Bucket.String()).
				Int("matches", len(result.Matches)).
				Msg("transaction event applied")
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("transaction event failed, retrying")
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	err = backoff.Retry(operation, b)
	if err == nil {
		return nil
	}
	if isPermanent(err) {
		log.Warn().Err(err).Int64("transaction_id", evt.Transaction.ID).Msg("skipping invalid transaction event")
		return nil
	}

	log.Error().Err(err).Int("attempts", attempt).Msg("transaction event failed")
	return err
}

// Close closes the reader
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("closing kafka reader: %w", err)
	}
	return nil
}

func decode(value []byte) (reconcile.TransactionEvent, error) {
	var msg dto.TransactionEvent
	if err := json.Unmarshal(value, &msg); err != nil {
		return reconcile.TransactionEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return msg.ToDomain()
}

// isPermanent reports whether retrying err can never succeed
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrInvalidBucket)
}
