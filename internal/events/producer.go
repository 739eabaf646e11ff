package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CryptoSentinel/internal/model"

	"github.com/segmentio/kafka-go"
)

// Event types published on the signals topic.
const (
	EventSignalOpened = "SIGNAL_OPENED"
	EventSignalClosed = "SIGNAL_CLOSED"
)

// SignalEvent is the JSON payload of every message.
type SignalEvent struct {
	EventType string                 `json:"event_type"`
	Pair      string                 `json:"pair"`
	Signal    *model.MonitoredSignal `json:"signal,omitempty"`
	Closure   *model.ClosureEvent    `json:"closure,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Publisher emits signal lifecycle events.
type Publisher interface {
	PublishOpened(ctx context.Context, s model.MonitoredSignal) error
	PublishClosed(ctx context.Context, ev model.ClosureEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka.
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer, topic: topic, now: time.Now}
}

// PublishOpened publishes a signal activation.
func (p *Producer) PublishOpened(ctx context.Context, s model.MonitoredSignal) error {
	return p.publish(ctx, s.Pair, SignalEvent{
		EventType: EventSignalOpened,
		Pair:      s.Pair,
		Signal:    &s,
		Timestamp: p.now().UTC(),
	})
}

// PublishClosed publishes a signal closure.
func (p *Producer) PublishClosed(ctx context.Context, ev model.ClosureEvent) error {
	return p.publish(ctx, ev.Pair, SignalEvent{
		EventType: EventSignalClosed,
		Pair:      ev.Pair,
		Closure:   &ev,
		Timestamp: p.now().UTC(),
	})
}

func (p *Producer) publish(ctx context.Context, key string, event SignalEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close closes the Kafka producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Noop discards events when no brokers are configured.
type Noop struct{}

func (Noop) PublishOpened(context.Context, model.MonitoredSignal) error { return nil }
func (Noop) PublishClosed(context.Context, model.ClosureEvent) error    { return nil }
func (Noop) Close() error                                               { return nil }
