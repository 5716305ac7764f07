package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/lang-learner-backend/internal/queue"
)

// EventPublisher announces domain events. Failures are returned so the
// caller can log them; they never change the outcome of the operation that
// produced the event.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event q.AccountRegisteredEvent) error
}

// NopPublisher drops every event. Used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) PublishAccountRegistered(context.Context, q.AccountRegisteredEvent) error {
	return nil
}

// defaultDialTimeout bounds the TCP connect and AMQP handshake of one
// publish. Publishing runs on the request path after the insert committed.
const defaultDialTimeout = 2 * time.Second

// AMQPPublisher publishes events to RabbitMQ, dialing per message.
// Registration volume is low enough that a pooled channel is not needed.
type AMQPPublisher struct {
	url         string
	log         *slog.Logger
	dialTimeout time.Duration
}

func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log, dialTimeout: defaultDialTimeout}
}

// dial connects with a timeout no longer than the time left on ctx.
func (p *AMQPPublisher) dial(ctx context.Context) (*amqp.Connection, error) {
	timeout := p.dialTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	return amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
}

// PublishAccountRegistered publishes event to the account.registered queue
// as a persistent JSON message.
func (p *AMQPPublisher) PublishAccountRegistered(ctx context.Context, event q.AccountRegisteredEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.publish(ctx, q.AccountRegisteredQueue, body)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, body []byte) error {
	conn, err := p.dial(ctx)
	if err != nil {
		p.log.WarnContext(ctx, "rabbitmq: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WarnContext(ctx, "rabbitmq: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Declaring is idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.log.WarnContext(ctx, "rabbitmq: queue declare failed", "queue", queue, "error", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.log.WarnContext(ctx, "rabbitmq: publish failed", "queue", queue, "error", err)
		return err
	}
	return nil
}
