package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/iamhemantkumawat/ifsseeds/internal/infra"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	_ infra.EventPublisher = (*Publisher)(nil)
	_ messageWriter        = (*kafka.Writer)(nil)
)

// Publisher writes events to one topic. The routing key becomes the message key and a header,
// so consumers can filter without decoding the body.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, data any) error {
	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(messageKey(routingKey, data)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "pattern", Value: []byte(routingKey)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// messageKey keeps all events of one order on one partition when the payload names an order.
func messageKey(routingKey string, data any) string {
	type keyed interface{ PartitionKey() string }

	if k, ok := data.(keyed); ok {
		return k.PartitionKey()
	}
	return routingKey
}
