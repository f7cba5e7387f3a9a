// SPDX-License-Identifier: GPL-3.0-only

package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQConfig struct {
	AMQPURL      string
	Exchange     string
	ExchangeType string
	// Prefetch is the consumer QoS prefetch count; zero leaves the broker default.
	Prefetch int
}

type Client struct {
	Config      RabbitMQConfig
	AMQPConn    *amqp.Connection
	AMQPChannel *amqp.Channel
}

// Channel is the subset of *amqp.Channel used by publishers and consumers.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Cancel(consumer string, noWait bool) error
	Close() error
}

var _ Channel = (*amqp.Channel)(nil)
