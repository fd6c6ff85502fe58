package services

import (
	"context"
	"strings"
	"time"

	"rental/internal/domain"
	"rental/internal/domain/models"
	"rental/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CancellationService cancels bookings and decides the refund.
type CancellationService struct {
	Bookings BookingStore
	Events   EventPublisher
	Clock    utils.Clock

	RequestID string
}

// ComputeRefund applies the refund schedule to a booking cancelled at now.
// Only confirmed bookings hold funds.
func ComputeRefund(b models.Booking, now time.Time) int64 {
	if b.Status != models.BookingConfirmed {
		return 0
	}
	days := b.StartDate.Sub(now).Hours() / 24
	switch {
	case days > 3:
		return b.TotalAmount
	case days >= 1:
		return b.TotalAmount / 2
	default:
		return 0
	}
}

// Cancel moves a non-terminal booking to cancelled and records the refund.
func (s CancellationService) Cancel(ctx context.Context, bookingID string, p domain.Principal, reason string) (b models.Booking, err error) {
	ctx, span := tracer.Start(ctx, "booking.cancel", trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer func() { endSpan(span, err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.Booking{}, domain.ValidationError{Field: "reason", Msg: "required"}
	}

	b, err = s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if !p.CanActFor(b.RenterID) {
		return models.Booking{}, domain.ForbiddenError{Msg: "not allowed to cancel this booking"}
	}
	if b.Status == models.BookingCancelled {
		return models.Booking{}, domain.AlreadyCancelledError{BookingID: b.ID}
	}
	if !models.CanTransition(b.Status, models.BookingCancelled) {
		return models.Booking{}, domain.InvalidTransitionError{
			Resource: "booking",
			From:     string(b.Status),
			To:       string(models.BookingCancelled),
			Current:  string(b.Status),
		}
	}

	now := clockOrSystem(s.Clock).Now()
	refund := ComputeRefund(b, now)
	err = s.Bookings.UpdateStatus(ctx, b.ID, models.StatusChange{
		From:   b.Status,
		To:     models.BookingCancelled,
		Reason: &reason,
		Refund: &refund,
		At:     now,
	})
	if domain.IsInvalidTransition(err) {
		// Lost a race; report what won.
		cur, gerr := s.Bookings.GetByID(ctx, b.ID)
		if gerr == nil && cur.Status == models.BookingCancelled {
			return models.Booking{}, domain.AlreadyCancelledError{BookingID: b.ID}
		}
		return models.Booking{}, err
	}
	if err != nil {
		return models.Booking{}, err
	}

	b.Status = models.BookingCancelled
	b.CancellationReason = &reason
	b.RefundAmount = &refund
	b.UpdatedAt = now
	span.SetAttributes(attribute.Int64("booking.refund", refund))
	utils.LogEvent(s.RequestID, "cancellation", "cancel", "booking_id="+b.ID+" refund="+utils.FormatMoney(refund))

	publish(ctx, s.Events, s.RequestID, EventBookingCancelled, BookingEvent{
		Event:        EventBookingCancelled,
		BookingID:    b.ID,
		VehicleID:    b.VehicleID,
		RenterID:     b.RenterID,
		Status:       string(models.BookingCancelled),
		Reason:       reason,
		RefundAmount: &refund,
		OccurredAt:   now,
	})
	return b, nil
}
