package services

import (
	"context"
	"time"

	"rental/internal/domain/models"
	"rental/internal/utils"
)

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

type BookingEvent struct {
	Event        string    `json:"event"`
	BookingID    string    `json:"bookingId"`
	VehicleID    string    `json:"vehicleId,omitempty"`
	RenterID     string    `json:"renterId,omitempty"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	RefundAmount *int64    `json:"refundAmount,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

type PaymentEvent struct {
	Event         string    `json:"event"`
	PaymentID     string    `json:"paymentId"`
	BookingID     string    `json:"bookingId"`
	Reference     string    `json:"reference"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	FailureReason string    `json:"failureReason,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func paymentEvent(key string, p models.Payment, at time.Time) PaymentEvent {
	return PaymentEvent{
		Event:         key,
		PaymentID:     p.ID,
		BookingID:     p.BookingID,
		Reference:     p.ProcessorReference,
		Amount:        p.Amount,
		Currency:      p.Currency,
		FailureReason: p.FailureReason,
		OccurredAt:    at,
	}
}

// publish never fails the caller: the state change it reports is already committed.
func publish(ctx context.Context, pub EventPublisher, requestID, key string, v any) {
	if pub == nil {
		return
	}
	if err := pub.PublishJSON(ctx, key, v); err != nil {
		utils.Entry(requestID, "events", "publish").WithError(err).Warnf("publish %s failed", key)
	}
}

func clockOrSystem(c utils.Clock) utils.Clock {
	if c == nil {
		return utils.SystemClock{}
	}
	return c
}
