package events

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

// ErrQueueFull is returned by Produce when the send buffer is saturated.
var ErrQueueFull = errors.New("event queue full")

type EventType string

const (
	HoursSubmitted   EventType = "hours_submitted"
	PaymentConfirmed EventType = "payment_confirmed"
)

// AdminChannel is the summary channel every event is also sent to.
const AdminChannel = "admin-summary"

// Recipient addresses an event to an account or to a channel.
type Recipient struct {
	AccountID int64  `json:"account_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Channel   string `json:"channel,omitempty"`
}

type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	Recipient  Recipient       `json:"recipient"`
	EmployeeID int64           `json:"employee_id"`
	WeekLabel  string          `json:"week_label"`
	Hours      decimal.Decimal `json:"hours"`
	Gross      decimal.Decimal `json:"gross"`
	Net        decimal.Decimal `json:"net"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, recipient Recipient, employeeID int64, weekLabel string, occurredAt time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Recipient:  recipient,
		EmployeeID: employeeID,
		WeekLabel:  weekLabel,
		OccurredAt: occurredAt,
	}
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// flushTimeout bounds how long Close spends sending events still queued.
const flushTimeout = 5 * time.Second

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	loop      sync.WaitGroup
}

// NewProducer makes sure the topic exists and starts the send loop. Brokers
// that are still starting up are retried with exponential backoff.
func NewProducer(ctx context.Context, brokers []string, topic string, logger *zap.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}

	var conn *kafka.Conn
	dial := func() error {
		var err error
		conn, err = kafka.DialContext(ctx, "tcp", brokers[0])
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(dial, policy); err != nil {
		return nil, err
	}
	defer conn.Close()

	err := conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	p := newProducer(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}, logger, 1000)
	p.start()
	return p, nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, buffer int) *Producer {
	return &Producer{
		writer:    writer,
		events:    make(chan Event, buffer),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}
}

// Produce queues the event without blocking.
func (p *Producer) Produce(event Event) error {
	select {
	case p.events <- event:
		return nil
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.Int64("employee_id", event.EmployeeID),
		)
		return ErrQueueFull
	}
}

func (p *Producer) start() {
	p.loop.Add(1)
	go func() {
		defer p.loop.Done()
		p.eventLoop()
	}()
}

func (p *Producer) eventLoop() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("event_id", event.ID),
		)
		return
	}
	// Keyed by employee so one employee's events stay ordered on a partition.
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.EmployeeID, 10)),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
		)
	}
}

// Close stops the send loop, then sends whatever is still queued before
// closing the writer.
func (p *Producer) Close() {
	close(p.closeChan)
	p.loop.Wait()
	p.flush()
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

func (p *Producer) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	flushed := 0
	for {
		select {
		case event := <-p.events:
			if ctx.Err() != nil {
				p.logger.Warn("Dropping queued event on shutdown",
					zap.String("event_id", event.ID),
					zap.String("event_type", string(event.Type)),
				)
				continue
			}
			p.sendEvent(ctx, event)
			flushed++
		default:
			if flushed > 0 {
				p.logger.Info("Flushed queued events", zap.Int("count", flushed))
			}
			return
		}
	}
}
