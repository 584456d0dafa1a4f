package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"diary-sync/internal/entry"

	amqp "github.com/rabbitmq/amqp091-go"
)

const EntryPublishedEvent = "entry.published"

type EntryPublishedMessage struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Entry     entry.Entry `json:"entry"`
}

type PublishingChannel interface {
	PublishWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
	Close() error
}

// RabbitPublisher announces published entries on a topic exchange.
type RabbitPublisher struct {
	conn       *amqp.Connection
	ch         PublishingChannel
	exchange   string
	routingKey string
	logger     *log.Logger
	now        func() time.Time
}

func NewRabbitPublisher(uri, exchange, routingKey string, logger *log.Logger) (*RabbitPublisher, error) {
	if logger == nil {
		logger = log.Default()
	}

	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connection failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel creation failed: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("exchange declare failed: %w", err)
	}

	logger.Printf("events: publishing to exchange %q with key %q", exchange, routingKey)

	return &RabbitPublisher{
		conn:       conn,
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (p *RabbitPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// EntryPublished sends one persistent JSON message carrying the whole entry.
func (p *RabbitPublisher) EntryPublished(ctx context.Context, e *entry.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(EntryPublishedMessage{
		Event:     EntryPublishedEvent,
		Timestamp: p.now().UTC(),
		Entry:     *e,
	})
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(
		ctx,
		p.exchange,
		p.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    e.ID,
			Timestamp:    p.now().UTC(),
			Body:         body,
		},
	)
}
