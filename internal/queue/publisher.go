package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/analytics"
	"github.com/iliyamo/expo-appointments/internal/config"
	"github.com/iliyamo/expo-appointments/internal/model"
)

// Publisher is an analytics.Recorder that publishes each event to the
// analytics queue.  Every call dials its own connection, so a broker
// outage only costs the events sent while it lasts.
type Publisher struct {
	cfg config.AMQPConfig
	log *zap.Logger
}

var _ analytics.Recorder = (*Publisher)(nil)

func NewPublisher(cfg config.AMQPConfig, log *zap.Logger) *Publisher {
	return &Publisher{cfg: cfg, log: log}
}

func (p *Publisher) Name() string { return config.SinkAMQP }

// Record publishes ev as a persistent message on the default exchange.
// Errors are logged and returned; the caller decides whether to ignore them.
func (p *Publisher) Record(ctx context.Context, ev model.AnalyticsEvent) error {
	if ev.ID == "" {
		ev = analytics.NewEvent(ev.ExhibitorID, ev.UserID, ev.ActionType, ev.PageVisited)
	}
	body, err := json.Marshal(messageOf(ev))
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		p.log.Warn("rabbitmq dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := declare(ch, p.cfg.Queue); err != nil {
		p.log.Warn("rabbitmq queue declare failed", zap.String("queue", p.cfg.Queue), zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.cfg.Queue, false, false, pub); err != nil {
		p.log.Warn("rabbitmq publish failed", zap.String("queue", p.cfg.Queue), zap.Error(err))
		return err
	}
	return nil
}

// declare makes sure the durable queue exists.  Both sides call it, so
// either can start first.
func declare(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(name, true, false, false, false, nil)
}
