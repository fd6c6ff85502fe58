package queue

import (
	"context"
	"encoding/json"
	"strings"

	"rental/internal/services"
	"rental/internal/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Expirer is the idempotent expiry operation shared with the sweep.
type Expirer interface {
	ExpireIfPending(ctx context.Context, bookingID string) (services.ExpiryOutcome, error)
}

// ExpiryWorker applies due expiry messages. Delivery is at-least-once;
// duplicates resolve to ExpiryNotPending.
type ExpiryWorker struct {
	Expiry Expirer
}

// Run handles deliveries until ctx is done or the channel closes.
func (w ExpiryWorker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.Handle(ctx, d)
		}
	}
}

// Handle processes one delivery and acknowledges it. A failed expiry is
// requeued once.
func (w ExpiryWorker) Handle(ctx context.Context, d amqp.Delivery) {
	log := utils.Entry(d.MessageId, "queue", "expire")

	var msg ExpiryMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || strings.TrimSpace(msg.BookingID) == "" {
		log.WithError(err).Warn("dropping malformed expiry message")
		_ = d.Reject(false)
		return
	}

	outcome, err := w.Expiry.ExpireIfPending(ctx, msg.BookingID)
	if err != nil {
		// one requeue; after that the periodic sweep owns the booking
		if d.Redelivered {
			log.WithError(err).Error("expiry failed again, dropping to sweep booking_id=" + msg.BookingID)
			_ = d.Reject(false)
			return
		}
		log.WithError(err).Warn("expiry failed, requeue booking_id=" + msg.BookingID)
		_ = d.Nack(false, true)
		return
	}
	log.WithField("outcome", string(outcome)).Info("booking_id=" + msg.BookingID)
	_ = d.Ack(false)
}
