package services

import (
	"context"
	"time"

	"rental/internal/domain/models"
)

// BookingStore is the reservation ledger's persistence. CreateIfNoOverlap and
// UpdateStatus must be atomic with respect to concurrent callers.
type BookingStore interface {
	CreateIfNoOverlap(ctx context.Context, b models.Booking) error
	GetByID(ctx context.Context, id string) (models.Booking, error)
	ListByRenter(ctx context.Context, renterID string) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, id string, change models.StatusChange) error
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

type PaymentStore interface {
	Insert(ctx context.Context, p models.Payment) error
	AttachHandle(ctx context.Context, id, reference, clientSecret string, at time.Time) error
	ReleaseClaim(ctx context.Context, id string) error
	GetPendingByBooking(ctx context.Context, bookingID string) (models.Payment, bool, error)
	GetLatestByBooking(ctx context.Context, bookingID string) (models.Payment, error)
	GetByID(ctx context.Context, id string) (models.Payment, error)
	GetByReference(ctx context.Context, reference string) (models.Payment, error)
	MarkFailed(ctx context.Context, reference, reason string, at time.Time) (bool, error)
	FinalizeSuccess(ctx context.Context, reference string, at time.Time) (models.FinalizeOutcome, models.Payment, error)
}

type VehicleStore interface {
	List(ctx context.Context, filter models.VehicleFilter, window *models.Window, now time.Time) ([]models.Vehicle, error)
	GetByID(ctx context.Context, id string, now time.Time) (models.Vehicle, error)
}

// ExpiryArmer schedules a one-shot expiry check for a booking.
type ExpiryArmer interface {
	Arm(ctx context.Context, bookingID string, at time.Time) error
}

// EventPublisher emits domain events after state has been committed.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}
