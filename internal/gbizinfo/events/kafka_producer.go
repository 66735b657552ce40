package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	CompanySearched EventType = "company_searched"
	CompanyLookedUp EventType = "company_looked_up"
	UpdatesListed   EventType = "updates_listed"
)

const (
	defaultQueueSize  = 1000
	defaultPartitions = 3
)

// LookupEvent records one upstream lookup. It never carries the API token or
// the search filters.
type LookupEvent struct {
	ID              string    `json:"id"`
	Type            EventType `json:"type"`
	Category        string    `json:"category,omitempty"`
	CorporateNumber string    `json:"corporate_number,omitempty"`
	Count           int       `json:"count"`
	StatusCode      int       `json:"status_code,omitempty"`
	Failed          bool      `json:"failed"`
	At              time.Time `json:"at"`
}

// NewLookupEvent stamps a fresh id and the current time.
func NewLookupEvent(eventType EventType) LookupEvent {
	return LookupEvent{
		ID:   uuid.NewString(),
		Type: eventType,
		At:   time.Now().UTC(),
	}
}

// Key partitions events by company when one is known.
func (ev LookupEvent) Key() string {
	if ev.CorporateNumber != "" {
		return ev.CorporateNumber
	}
	return ev.ID
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan LookupEvent
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
}

// NewProducer starts a producer writing to topic. Connections are opened
// lazily by the writer.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	p := &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			Topic:                  topic,
			AllowAutoTopicCreation: true,
		},
		events:    make(chan LookupEvent, defaultQueueSize),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}

	go p.eventLoop()
	return p
}

// EnsureTopic creates topic on the first broker. Failure is only logged since
// the topic usually exists already.
func EnsureTopic(brokers []string, topic string, logger *zap.Logger) {
	if len(brokers) == 0 {
		return
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		logger.Warn("failed to dial kafka broker", zap.String("broker", brokers[0]), zap.Error(err))
		return
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     defaultPartitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.String("topic", topic), zap.Error(err))
	}
}

// Produce enqueues ev without blocking; the event is dropped when the queue
// is full.
func (p *Producer) Produce(ev LookupEvent) {
	select {
	case p.events <- ev:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(ev.Type)),
			zap.String("event_id", ev.ID),
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case ev := <-p.events:
			p.sendEvent(context.Background(), ev)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, ev LookupEvent) {
	value, err := jsonMarshal(ev)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("event_id", ev.ID),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Key()),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(ev.Type)),
			zap.String("event_id", ev.ID),
		)
	}
}

// Close stops the event loop and closes the writer. Events still queued are
// discarded.
func (p *Producer) Close() {
	close(p.closeChan)
	if p.done != nil {
		<-p.done
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

// NopProducer discards every event. It stands in when no brokers are
// configured.
type NopProducer struct{}

func (NopProducer) Produce(LookupEvent) {}

func (NopProducer) Close() {}
