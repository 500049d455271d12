package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTransport hands emails to a mail relay consuming the topic.
type KafkaTransport struct {
	writer messageWriter
}

func NewKafkaTransport(topic string, brokers ...string) *KafkaTransport {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaTransport{writer: w}
}

func (t *KafkaTransport) Deliver(ctx context.Context, e Email) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(e.UserID, 10)), // per-user ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "notification_type", Value: []byte(e.Type)},
			{Key: "notification_id", Value: []byte(e.NotificationID.String())},
		},
	}
	if err := t.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (t *KafkaTransport) Close() error {
	return t.writer.Close()
}
