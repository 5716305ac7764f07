package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"
)

// StartAccountConsumer connects to RabbitMQ, declares the account.registered
// queue (durable) and appends one audit line per event to logPath. Dial and
// consume failures are retried with capped exponential backoff until ctx is
// cancelled, then ctx.Err() is returned. Malformed messages are rejected
// without requeue so the loop keeps going.
func StartAccountConsumer(ctx context.Context, url, logPath string, logger *slog.Logger) error {
	backoff := retry.WithCappedDuration(30*time.Second, retry.NewExponential(time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.WarnContext(ctx, "account-consumer: dial failed", "error", err)
			return retry.RetryableError(err)
		}
		defer func() { _ = conn.Close() }()

		err = consumeLoop(ctx, conn, logPath, logger)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.WarnContext(ctx, "account-consumer: consume loop ended, reconnecting", "error", err)
		return retry.RetryableError(err)
	})
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string, logger *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.WarnContext(ctx, "account-consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(AccountRegisteredQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, AccountRegisteredQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(d.Body, logPath); err != nil {
				logger.ErrorContext(ctx, "account-consumer: handle message failed", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handleMessage decodes one event and appends its audit line to logPath.
func handleMessage(body []byte, logPath string) error {
	var ev AccountRegisteredEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Login == "" {
		return errors.New("event without login")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Account registered | login=%q | name=%q | language=%s\n",
		ev.RegisteredAt, ev.Login, ev.DisplayName, ev.Language)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
