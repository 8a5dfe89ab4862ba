// Package broker publishes loan events to RabbitMQ.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"loanflow/internal/domain/loan"
)

const publisherAppID = "loanflow"

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher sends each loan event to a durable topic exchange with
// the event type as routing key.
type RabbitMQPublisher struct {
	open     func() (channel, error)
	exchange string
	log      *zap.Logger
}

var _ loan.Publisher = (*RabbitMQPublisher)(nil)

func NewRabbitMQPublisher(conn *amqp.Connection, exchange string, log *zap.Logger) (*RabbitMQPublisher, error) {
	if conn == nil {
		return nil, errors.New("rabbitmq connection cannot be nil")
	}
	return newPublisher(func() (channel, error) { return conn.Channel() }, exchange, log)
}

func newPublisher(open func() (channel, error), exchange string, log *zap.Logger) (*RabbitMQPublisher, error) {
	if exchange == "" {
		return nil, errors.New("rabbitmq exchange name cannot be empty")
	}
	ch, err := open()
	if err != nil {
		return nil, fmt.Errorf("open channel for exchange declaration: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	log.Info("rabbitmq exchange ready", zap.String("exchange", exchange), zap.String("type", amqp.ExchangeTopic))

	return &RabbitMQPublisher{
		open:     open,
		exchange: exchange,
		log:      log.With(zap.String("component", "rabbitmq_publisher"), zap.String("exchange", exchange)),
	}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, ev loan.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		AppId:        publisherAppID,
		MessageId:    ev.LoanID + ":" + string(ev.Status),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	p.log.Debug("loan event published", zap.String("routing_key", string(ev.Type)), zap.String("loan_id", ev.LoanID))
	return nil
}
