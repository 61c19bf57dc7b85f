package rabbitmq

import (
	"github.com/streadway/amqp"

	"github.com/iamhemantkumawat/ifsseeds/internal/infra"
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

var (
	_ infra.EventPublisher = (*Publisher)(nil)
	_ amqpChannel          = (*amqp.Channel)(nil)
)
