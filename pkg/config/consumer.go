package config

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type Consumer struct {
	channel *amqp.Channel
	queue   string
}

func NewConsumer(conn *amqp.Connection, queueName string) (*Consumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection not initialized")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		return nil, err
	}

	return &Consumer{channel: ch, queue: q.Name}, nil
}

// Consume delivers messages to handler until ctx is done. A handler error
// nacks the message back onto the queue.
func (c *Consumer) Consume(ctx context.Context, handler func([]byte) error) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return err
	}

	logrus.Infof("Consumer is running on queue %s", c.queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", c.queue)
			}
			if err := handler(msg.Body); err != nil {
				logrus.Errorf("Handle msg failed: %v", err)
				msg.Nack(false, true)
			} else {
				msg.Ack(false)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
