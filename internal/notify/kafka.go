package notify

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes one message per event, keyed by order id so every event of
// an order lands on the same partition.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(brokers, topic string) *KafkaSink {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &KafkaSink{writer: &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Publish(ctx context.Context, m Message) error {
	body, err := m.Encode()
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.OrderID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(m.Kind)},
			{Key: "restaurant_id", Value: []byte(m.RestaurantID)},
		},
	})
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
