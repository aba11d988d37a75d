// Package events publishes booking status changes to the message broker.
// Publishing is best effort: failures are logged and returned, and callers
// never roll back a committed transition because of them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StatusChangedQueue is the durable queue status events are routed to.
const StatusChangedQueue = "booking.status_changed"

// StatusChanged is emitted once per applied booking transition.
type StatusChanged struct {
	BookingID     string    `json:"bookingId"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	PaymentStatus string    `json:"paymentStatus"`
	ActorID       string    `json:"actorId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Publisher delivers status events.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChanged) error
}

// NoopPublisher drops events; used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishStatusChanged(ctx context.Context, event StatusChanged) error { return nil }

// RecordingPublisher keeps events in memory. It is the shared fake for the
// booking, payment and route tests, which live in different packages; no
// production wiring uses it.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []StatusChanged
}

func (p *RecordingPublisher) PublishStatusChanged(ctx context.Context, event StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *RecordingPublisher) Events() []StatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StatusChanged(nil), p.events...)
}

// AMQPPublisher publishes persistent JSON messages to RabbitMQ over a single
// long-lived connection.
type AMQPPublisher struct {
	logger *zap.Logger
	conn   *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the status queue.
func NewAMQPPublisher(url string, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	if _, err := ch.QueueDeclare(
		StatusChangedQueue, // name
		true,               // durable
		false,              // autoDelete
		false,              // exclusive
		false,              // noWait
		nil,                // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: queue declare failed: %w", err)
	}
	return &AMQPPublisher{logger: logger, conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) PublishStatusChanged(ctx context.Context, event StatusChanged) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event failed: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt.UTC(),
		MessageId:    event.BookingID + ":" + event.To,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, "", StatusChangedQueue, false, false, pub); err != nil {
		p.logger.Warn("rabbitmq: publish failed",
			zap.String("bookingId", event.BookingID),
			zap.String("to", event.To),
			zap.Error(err))
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}
	return nil
}

// Close releases the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
