package notification

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPTransport publishes emails to a topic exchange, routed by type.
type AMQPTransport struct {
	conn     *amqp.Connection
	ch       publisher
	exchange string
}

func NewAMQPTransport(url, exchange string) (*AMQPTransport, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPTransport{conn: conn, ch: ch, exchange: exchange}, nil
}

func (t *AMQPTransport) Deliver(ctx context.Context, e Email) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	err = t.ch.PublishWithContext(ctx, t.exchange, "notification."+string(e.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.NotificationID.String(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (t *AMQPTransport) Close() error {
	if c, ok := t.ch.(*amqp.Channel); ok && c != nil {
		_ = c.Close()
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}
