package config

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

var RabbitMQ *amqp.Connection

// InitRabbitMQ dials RabbitMQ with retry logic
func InitRabbitMQ(url string) error {
	maxRetries := 10
	retryDelay := 3 * time.Second

	var conn *amqp.Connection
	var err error

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			RabbitMQ = conn
			logrus.Info("Successfully connected to RabbitMQ")
			return nil
		}

		if i < maxRetries-1 {
			logrus.Warnf("Failed to connect to RabbitMQ (attempt %d/%d): %v. Retrying in %v...", i+1, maxRetries, err, retryDelay)
			time.Sleep(retryDelay)
		}
	}

	return fmt.Errorf("connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}
