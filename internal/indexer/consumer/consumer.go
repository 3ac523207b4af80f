// Package consumer indexes documents published to the write topic.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// WriteEvent is the message body on the write topic. When ID is absent the
// message key is used if it parses as an ID, otherwise one is generated.
type WriteEvent struct {
	ID   *ident.ID         `json:"id,omitempty"`
	Item document.Document `json:"item"`
}

// Writer is implemented by *service.Service.
type Writer interface {
	Write(ctx context.Context, id *ident.ID, doc document.Document) (ident.ID, error)
}

// IndexConsumer wraps a Kafka consumer to drive document writes.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

func (ic *IndexConsumer) Close() error {
	return ic.consumer.Close()
}

// HandleMessage returns a handler that writes each event through w.
// Undecodable events and invalid documents are skipped; any other write
// failure is returned so the consumer retries and then dead-letters it.
func HandleMessage(w Writer) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[WriteEvent](value)
		if err != nil {
			return kafka.Skip(err)
		}
		if event.ID == nil && len(key) > 0 {
			if id, err := ident.Parse(string(key)); err == nil {
				event.ID = &id
			}
		}

		id, err := w.Write(ctx, event.ID, event.Item)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidDocument) {
				return kafka.Skip(err)
			}
			return fmt.Errorf("writing document from key %q: %w", key, err)
		}
		logger.Info("document indexed", "doc_id", id)
		return nil
	}
}
