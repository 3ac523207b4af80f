// Package kafka wraps segmentio/kafka-go readers and writers for JSON
// events. A message is committed once its handler succeeds, reports it as
// unprocessable, or it has been copied to the dead-letter topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// Headers added to dead-lettered messages.
const (
	HeaderError       = "dlq-error"
	HeaderSourceTopic = "dlq-source-topic"
	HeaderSourceOff   = "dlq-source-offset"
)

var fetchBackoff = resilience.RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second}

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ErrSkip marks a message that can never be processed. It is committed
// without retrying or dead-lettering.
var ErrSkip = errors.New("kafka: skip message")

func Skip(err error) error {
	return fmt.Errorf("%w: %w", ErrSkip, err)
}

// MessageReader is the subset of *kafka.Reader the consumer drives.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader     MessageReader
	topic      string
	handler    MessageHandler
	retry      resilience.RetryConfig
	deadLetter MessageWriter
	logger     *slog.Logger
}

type ConsumerOption func(*Consumer)

// WithRetry sets how often a failing handler is retried before the message
// is dead-lettered.
func WithRetry(cfg resilience.RetryConfig) ConsumerOption {
	return func(c *Consumer) { c.retry = cfg }
}

// WithDeadLetter routes messages that exhaust their retries to w. Without
// it, such a message stops the consumer uncommitted.
func WithDeadLetter(w MessageWriter) ConsumerOption {
	return func(c *Consumer) { c.deadLetter = w }
}

// NewConsumer joins cfg.ConsumerGroup on topic. A non-empty
// cfg.Topics.DeadLetter enables dead-lettering.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	base := []ConsumerOption{WithRetry(resilience.RetryConfig{MaxAttempts: cfg.HandlerRetries})}
	if cfg.Topics.DeadLetter != "" {
		base = append(base, WithDeadLetter(NewWriter(cfg, cfg.Topics.DeadLetter)))
	}
	return NewConsumerWithReader(r, topic, handler, append(base, opts...)...)
}

func NewConsumerWithReader(r MessageReader, topic string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader:  r,
		topic:   topic,
		handler: handler,
		logger:  logger.WithComponent("kafka-consumer").With("topic", topic),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start consumes until ctx is cancelled, returning nil, or until a message
// fails with no dead-letter topic to take it.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started", "dead_letter", c.deadLetter != nil)
	fetchFailures := 0
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			fetchFailures++
			backoff := fetchBackoff.Delay(fetchFailures)
			c.logger.Error("fetch failed", "error", err, "backoff", backoff)
			if resilience.Sleep(ctx, backoff) != nil {
				return nil
			}
			continue
		}
		fetchFailures = 0

		if err := c.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

// process returns nil when msg may be committed.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
	if id, ok := Header(msg, HeaderRequestID); ok {
		ctx = logger.WithRequestID(ctx, id)
		log = log.With("request_id", id)
	}
	log.Debug("message received", "key", string(msg.Key), "value_size", len(msg.Value))

	op := fmt.Sprintf("%s@%d/%d", c.topic, msg.Partition, msg.Offset)
	err := resilience.Retry(ctx, op, c.retry, func(int) error {
		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			if errors.Is(err, ErrSkip) {
				return resilience.Permanent(err)
			}
			return err
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSkip):
		log.Warn("skipping message", "error", err)
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case c.deadLetter == nil:
		log.Error("message failed", "error", err)
		return fmt.Errorf("partition %d offset %d: %w", msg.Partition, msg.Offset, err)
	}

	if dlqErr := c.deadLetter.WriteMessages(ctx, c.deadLetterCopy(msg, err)); dlqErr != nil {
		log.Error("dead-letter write failed", "error", dlqErr, "cause", err)
		return fmt.Errorf("dead-lettering partition %d offset %d: %w", msg.Partition, msg.Offset, dlqErr)
	}
	log.Warn("message dead-lettered", "error", err)
	return nil
}

func (c *Consumer) deadLetterCopy(msg kafka.Message, cause error) kafka.Message {
	headers := append([]kafka.Header(nil), msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderError, Value: []byte(cause.Error())},
		kafka.Header{Key: HeaderSourceTopic, Value: []byte(c.topic)},
		kafka.Header{Key: HeaderSourceOff, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
	)
	return kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}
}

// Close closes the reader and the dead-letter writer.
func (c *Consumer) Close() error {
	err := c.reader.Close()
	if c.deadLetter != nil {
		err = errors.Join(err, c.deadLetter.Close())
	}
	return err
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
