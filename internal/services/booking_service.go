package services

import (
	"context"
	"strings"
	"time"

	"rental/internal/domain"
	"rental/internal/domain/models"
	"rental/internal/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBookingTimeout is how long a pending booking waits for payment.
const DefaultBookingTimeout = 15 * time.Minute

// BookingService owns the reservation ledger.
type BookingService struct {
	Bookings BookingStore
	Expiry   ExpiryArmer
	Clock    utils.Clock
	Timeout  time.Duration
	NewID    func() string

	RequestID string
}

type CreateBookingInput struct {
	VehicleID      string
	RenterID       string
	Start          time.Time
	End            time.Time
	Amount         int64
	RenterVerified bool
}

// CreateBooking inserts a pending booking when no blocking booking for the
// vehicle overlaps [Start, End), then arms its payment timeout.
func (s BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (b models.Booking, err error) {
	ctx, span := tracer.Start(ctx, "booking.create", trace.WithAttributes(
		attribute.String("vehicle.id", in.VehicleID),
		attribute.String("renter.id", in.RenterID),
	))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(in.VehicleID) == "" {
		return models.Booking{}, domain.ValidationError{Field: "vehicleId", Msg: "required"}
	}
	if strings.TrimSpace(in.RenterID) == "" {
		return models.Booking{}, domain.ValidationError{Field: "renterId", Msg: "required"}
	}
	if in.Start.IsZero() || in.End.IsZero() || !in.Start.Before(in.End) {
		return models.Booking{}, domain.ValidationError{Field: "endDate", Msg: "must be after startDate"}
	}
	if in.Amount <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "totalAmount", Msg: "must be positive"}
	}
	if !in.RenterVerified {
		return models.Booking{}, domain.ForbiddenError{Msg: "identity verification required before booking"}
	}

	now := clockOrSystem(s.Clock).Now()
	b = models.Booking{
		ID:          s.newID(),
		VehicleID:   in.VehicleID,
		RenterID:    in.RenterID,
		StartDate:   in.Start.UTC(),
		EndDate:     in.End.UTC(),
		TotalAmount: in.Amount,
		Status:      models.BookingPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Bookings.CreateIfNoOverlap(ctx, b); err != nil {
		return models.Booking{}, err
	}
	span.SetAttributes(attribute.String("booking.id", b.ID))
	utils.LogEvent(s.RequestID, "booking", "create", "booking_id="+b.ID+" vehicle_id="+b.VehicleID)

	if s.Expiry != nil {
		if err := s.Expiry.Arm(ctx, b.ID, now.Add(s.timeout())); err != nil {
			utils.Entry(s.RequestID, "booking", "arm_expiry").WithError(err).
				Warn("delayed expiry not armed, sweep will cancel booking_id=" + b.ID)
		}
	}
	return b, nil
}

// GetBooking returns the booking when p owns it or is elevated.
func (s BookingService) GetBooking(ctx context.Context, id string, p domain.Principal) (models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if !p.CanActFor(b.RenterID) {
		return models.Booking{}, domain.ForbiddenError{Msg: "not allowed to view this booking"}
	}
	return b, nil
}

func (s BookingService) ListBookingsForRenter(ctx context.Context, renterID string) ([]models.Booking, error) {
	if strings.TrimSpace(renterID) == "" {
		return nil, domain.ValidationError{Field: "renterId", Msg: "required"}
	}
	return s.Bookings.ListByRenter(ctx, renterID)
}

// TransitionStatus moves a booking from one status to another only if it is
// still in from and to is a legal successor.
func (s BookingService) TransitionStatus(ctx context.Context, id string, from, to models.BookingStatus) (err error) {
	ctx, span := tracer.Start(ctx, "booking.transition", trace.WithAttributes(
		attribute.String("booking.id", id),
		attribute.String("booking.from", string(from)),
		attribute.String("booking.to", string(to)),
	))
	defer func() { endSpan(span, err) }()

	if !models.CanTransition(from, to) {
		return domain.InvalidTransitionError{Resource: "booking", From: string(from), To: string(to)}
	}
	return s.Bookings.UpdateStatus(ctx, id, models.StatusChange{
		From: from,
		To:   to,
		At:   clockOrSystem(s.Clock).Now(),
	})
}

func (s BookingService) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultBookingTimeout
}

func (s BookingService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
