package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/meddiag/platform/pkg/common/logger"
	"github.com/meddiag/platform/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

const (
	defaultBackoff        = time.Second
	defaultHandleAttempts = 3
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader   messageReader
	backoff  time.Duration
	attempts int
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(brokers []string, topic string, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader, backoff: defaultBackoff, attempts: defaultHandleAttempts}
}

// Consume hands every event to handler until ctx is cancelled. Fetch errors
// are retried after a pause. A handler error is retried up to the attempt
// limit; after that the event is logged as dropped and committed, since a
// group commit of any later offset would skip it anyway. Undecodable
// messages are committed without calling handler.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			if err := c.wait(ctx); err != nil {
				return err
			}
			continue
		}

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal event")
			c.commit(ctx, message)
			continue
		}

		if err := c.handle(ctx, handler, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"event_id":   event.ID,
				"event_type": event.Type,
				"offset":     message.Offset,
			}).Error("Dropping event after failed attempts")
		}
		c.commit(ctx, message)
	}
}

func (c *Consumer) handle(ctx context.Context, handler EventHandler, event models.Event) error {
	attempts := c.attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = handler(ctx, event); err == nil {
			return nil
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id": event.ID,
			"attempt":  i + 1,
		}).Warn("Failed to process event")
		if i < attempts-1 {
			if werr := c.wait(ctx); werr != nil {
				return werr
			}
		}
	}
	return err
}

func (c *Consumer) wait(ctx context.Context) error {
	select {
	case <-time.After(c.backoff):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).Error("Failed to commit message")
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
