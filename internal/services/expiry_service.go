package services

import (
	"context"
	"time"

	"rental/internal/domain"
	"rental/internal/domain/models"
	"rental/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultSweepBatch = 500

// ExpiryOutcome is the result of one expiry attempt. Every outcome is final
// for the caller; only a returned error warrants a retry.
type ExpiryOutcome string

const (
	ExpiryCancelled  ExpiryOutcome = "cancelled"
	ExpiryNotPending ExpiryOutcome = "not_pending"
	ExpiryNotFound   ExpiryOutcome = "not_found"
)

// ExpiryService cancels unpaid bookings. The delayed queue and the periodic
// sweep both go through ExpireIfPending.
type ExpiryService struct {
	Bookings  BookingStore
	Events    EventPublisher
	Clock     utils.Clock
	Timeout   time.Duration
	BatchSize int

	RequestID string
}

// ExpireIfPending cancels the booking with reason "payment timeout" if it is
// still pending. Repeated or late calls are no-ops.
func (s ExpiryService) ExpireIfPending(ctx context.Context, bookingID string) (outcome ExpiryOutcome, err error) {
	ctx, span := tracer.Start(ctx, "expiry.expire_if_pending", trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer func() {
		span.SetAttributes(attribute.String("expiry.outcome", string(outcome)))
		endSpan(span, err)
	}()

	now := clockOrSystem(s.Clock).Now()
	reason := models.ReasonPaymentTimeout
	var refund int64
	err = s.Bookings.UpdateStatus(ctx, bookingID, models.StatusChange{
		From:   models.BookingPending,
		To:     models.BookingCancelled,
		Reason: &reason,
		Refund: &refund,
		At:     now,
	})
	switch {
	case err == nil:
	case domain.IsNotFound(err):
		return ExpiryNotFound, nil
	case domain.IsInvalidTransition(err):
		return ExpiryNotPending, nil
	default:
		return "", err
	}

	utils.LogEvent(s.RequestID, "expiry", "cancel", "booking_id="+bookingID+" reason="+reason)
	publish(ctx, s.Events, s.RequestID, EventBookingCancelled, BookingEvent{
		Event:        EventBookingCancelled,
		BookingID:    bookingID,
		Status:       string(models.BookingCancelled),
		Reason:       reason,
		RefundAmount: &refund,
		OccurredAt:   now,
	})
	return ExpiryCancelled, nil
}

type SweepResult struct {
	Scanned   int `json:"scanned"`
	Cancelled int `json:"cancelled"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Sweep expires every pending booking older than the timeout. Per-booking
// failures are logged and left for the next sweep.
func (s ExpiryService) Sweep(ctx context.Context) (res SweepResult, err error) {
	ctx, span := tracer.Start(ctx, "expiry.sweep")
	defer func() {
		span.SetAttributes(
			attribute.Int("sweep.scanned", res.Scanned),
			attribute.Int("sweep.cancelled", res.Cancelled),
			attribute.Int("sweep.failed", res.Failed),
		)
		endSpan(span, err)
	}()

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultBookingTimeout
	}
	limit := s.BatchSize
	if limit <= 0 {
		limit = defaultSweepBatch
	}

	cutoff := clockOrSystem(s.Clock).Now().Add(-timeout)
	ids, err := s.Bookings.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return res, err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Scanned++
		outcome, err := s.ExpireIfPending(ctx, id)
		if err != nil {
			res.Failed++
			utils.Entry(s.RequestID, "sweep", "expire").WithError(err).Warn("booking_id=" + id)
			continue
		}
		if outcome == ExpiryCancelled {
			res.Cancelled++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}
