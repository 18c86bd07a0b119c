package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler processes one consumed event. A returned error leaves the message
// uncommitted.
type Handler func(context.Context, Event) error

// KafkaReader is the part of kafka.Reader the consumer needs.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads payroll events from the notification topic as part of a
// consumer group.
type Consumer struct {
	reader  KafkaReader
	logger  *zap.Logger
	handler Handler
	wg      sync.WaitGroup
}

func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no Kafka brokers configured")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
		Dialer:  kafka.DefaultDialer,
	})
	return newConsumer(reader, logger), nil
}

func newConsumer(reader KafkaReader, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: reader,
		logger: logger.Named("kafka_consumer"),
	}
}

func (c *Consumer) RegisterHandler(fn Handler) {
	c.handler = fn
}

// Start consumes until ctx is cancelled. RegisterHandler must be called
// first.
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if !c.consume(ctx) {
				return
			}
		}
	}()
}

// consume handles one message and reports whether the loop should go on.
func (c *Consumer) consume(ctx context.Context) bool {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return false
		}
		c.logger.Error("Failed to fetch message", zap.Error(err))
		return true
	}

	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// Unparseable messages are committed so they cannot block the partition.
		c.logger.Error("Failed to parse event",
			zap.Error(err),
			zap.ByteString("value", msg.Value),
		)
		c.commit(ctx, msg, "")
		return true
	}

	if err := c.handler(ctx, event); err != nil {
		c.logger.Error("Failed to handle event",
			zap.Error(err),
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		)
		return true
	}
	c.commit(ctx, msg, event.Type)
	return true
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message, eventType EventType) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
			zap.Int64("offset", msg.Offset),
		)
	}
}

// Close waits for the consume loop to stop and closes the reader. Cancel the
// context given to Start before calling it.
func (c *Consumer) Close() {
	c.wg.Wait()
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}
