// Package queue carries booking expiry timers and domain events over RabbitMQ.
package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Dial opens the broker connection shared by publishers and consumers.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	return conn, nil
}
