package notify

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitSink publishes to a topic exchange with routing key
// restaurant.<restaurant_id>.<kind>, so consumers can bind per restaurant.
type RabbitSink struct {
	ch       amqpChannel
	conn     *amqp.Connection
	exchange string
}

func DialRabbit(url, exchange string) (*RabbitSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq declare %s: %w", exchange, err)
	}
	return &RabbitSink{ch: ch, conn: conn, exchange: exchange}, nil
}

func (r *RabbitSink) Name() string { return "rabbitmq" }

func RoutingKey(m Message) string {
	return fmt.Sprintf("restaurant.%s.%s", m.RestaurantID, m.Kind)
}

func (r *RabbitSink) Publish(ctx context.Context, m Message) error {
	body, err := m.Encode()
	if err != nil {
		return err
	}
	return r.ch.PublishWithContext(ctx,
		r.exchange,    // exchange
		RoutingKey(m), // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    m.EventID,
			Type:         m.Kind,
			Timestamp:    m.OccurredAt,
			Body:         body,
		})
}

func (r *RabbitSink) Close() error {
	err := r.ch.Close()
	if r.conn != nil {
		err = errors.Join(err, r.conn.Close())
	}
	return err
}
