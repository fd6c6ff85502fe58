package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"rental/internal/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExpireRoutingKey routes due expiry messages to the worker queue.
const ExpireRoutingKey = "booking.expire"

// ExpiryMessage asks the worker to expire a booking that is still pending.
type ExpiryMessage struct {
	BookingID string    `json:"bookingId"`
	DueAt     time.Time `json:"dueAt"`
}

// ExpiryQueue delays expiry messages with a per-message TTL on a holding queue
// that has no consumers. Expired messages dead-letter into the expiry exchange.
type ExpiryQueue struct {
	mu         sync.Mutex
	ch         *amqp.Channel
	exchange   string
	queue      string
	delayQueue string
	clock      utils.Clock
}

// NewExpiryQueue declares the expiry exchange, the worker queue and the delay
// queue. It is safe to call from every process.
func NewExpiryQueue(conn *amqp.Connection, exchange, queue string, clock utils.Clock) (*ExpiryQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareExpiryTopology(ch, exchange, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &ExpiryQueue{
		ch:         ch,
		exchange:   exchange,
		queue:      queue,
		delayQueue: delayQueueName(queue),
		clock:      clock,
	}, nil
}

func delayQueueName(queue string) string { return queue + ".delay" }

func declareExpiryTopology(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, ExpireRoutingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	_, err := ch.QueueDeclare(delayQueueName(queue), true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    exchange,
		"x-dead-letter-routing-key": ExpireRoutingKey,
	})
	if err != nil {
		return fmt.Errorf("declare delay queue: %w", err)
	}
	return nil
}

// Arm schedules an expiry check for bookingID at the given time.
func (q *ExpiryQueue) Arm(ctx context.Context, bookingID string, at time.Time) error {
	body, err := json.Marshal(ExpiryMessage{BookingID: bookingID, DueAt: at.UTC()})
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    bookingID,
		Body:         body,
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	delay := at.Sub(q.clock.Now())
	if delay <= 0 {
		return q.ch.PublishWithContext(ctx, q.exchange, ExpireRoutingKey, false, false, msg)
	}
	msg.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	return q.ch.PublishWithContext(ctx, "", q.delayQueue, false, false, msg)
}

// Deliveries starts consuming due expiry messages with manual acks.
func (q *ExpiryQueue) Deliveries(ctx context.Context, prefetch int) (<-chan amqp.Delivery, error) {
	if prefetch > 0 {
		if err := q.ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("set qos: %w", err)
		}
	}
	return q.ch.ConsumeWithContext(ctx, q.queue, "", false, false, false, false, nil)
}

func (q *ExpiryQueue) Close() error {
	if q.ch != nil {
		return q.ch.Close()
	}
	return nil
}
