package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/analytics"
	"github.com/iliyamo/expo-appointments/internal/config"
)

const (
	prefetch   = 50
	maxBackoff = 30 * time.Second
	sinkWrite  = 5 * time.Second
)

// StartAnalyticsConsumer connects to RabbitMQ, declares the analytics queue
// and writes each message to sink.  It reconnects with exponential backoff
// and only returns when ctx is cancelled.  Malformed messages are rejected
// without requeue; sink failures are requeued once.
func StartAnalyticsConsumer(ctx context.Context, cfg config.AMQPConfig, sink analytics.Recorder, log *zap.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Warn("analytics consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg.Queue, sink, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("analytics consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, sink analytics.Recorder, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		log.Warn("analytics consumer: set QoS failed", zap.Error(err))
	}
	if _, err := declare(ch, queue); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info("analytics consumer started", zap.String("queue", queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			err := handleMessage(ctx, sink, d.Body)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, errMalformed):
				log.Warn("analytics consumer: rejecting malformed message", zap.Error(err))
				_ = d.Nack(false, false)
			default:
				log.Error("analytics consumer: sink write failed", zap.Error(err), zap.Bool("redelivered", d.Redelivered))
				// requeue once, then drop to avoid a hot loop
				_ = d.Nack(false, !d.Redelivered)
			}
		}
	}
}

var errMalformed = errors.New("malformed analytics message")

func handleMessage(ctx context.Context, sink analytics.Recorder, body []byte) error {
	var msg AnalyticsMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}
	ev, err := msg.Event()
	if err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}
	wctx, cancel := context.WithTimeout(ctx, sinkWrite)
	defer cancel()
	return sink.Record(wctx, ev)
}
