package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads lookup events back from the topic, e.g. for the CLI's
// event tail.
type Consumer struct {
	reader  KafkaReader
	logger  *zap.Logger
	handler func(context.Context, LookupEvent) error

	// fetchBackOff paces retries after failed fetches; nil means exponential
	// up to maxFetchBackOff.
	fetchBackOff backoff.BackOff
}

const maxFetchBackOff = 30 * time.Second

func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
			Dialer:  kafka.DefaultDialer,
		}),
		logger: logger.Named("kafka_consumer"),
	}
}

func (c *Consumer) RegisterHandler(fn func(context.Context, LookupEvent) error) {
	c.handler = fn
}

// Run blocks until ctx is done. Messages that fail to parse are skipped and
// committed; messages whose handler fails are left uncommitted. Fetch errors
// are retried with backoff.
func (c *Consumer) Run(ctx context.Context) {
	retry := c.fetchBackOff
	if retry == nil {
		b := backoff.NewExponentialBackOff()
		b.MaxInterval = maxFetchBackOff
		b.MaxElapsedTime = 0
		retry = b
	}
	retry.Reset()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := retry.NextBackOff()
			c.logger.Error("Failed to fetch message", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
			continue
		}
		retry.Reset()

		var ev LookupEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.logger.Error("Failed to parse event",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
			)
			c.commit(ctx, msg, "")
			continue
		}

		if c.handler != nil {
			if err := c.handler(ctx, ev); err != nil {
				c.logger.Error("Failed to handle event",
					zap.Error(err),
					zap.String("event_type", string(ev.Type)),
				)
				continue
			}
		}

		c.commit(ctx, msg, ev.Type)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message, eventType EventType) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
		)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}
