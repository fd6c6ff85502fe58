// Package memstore is an in-memory implementation of the booking, payment and
// vehicle stores. One mutex guards all tables so multi-table writes are atomic.
package memstore

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"rental/internal/domain"
	"rental/internal/domain/models"
)

type Store struct {
	mu       sync.Mutex
	vehicles map[string]models.Vehicle
	bookings map[string]models.Booking
	payments map[string]models.Payment
	users    map[string]models.User
}

func New() *Store {
	return &Store{
		vehicles: map[string]models.Vehicle{},
		bookings: map[string]models.Booking{},
		payments: map[string]models.Payment{},
		users:    map[string]models.User{},
	}
}

func (s *Store) AddVehicle(v models.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
}

// PutBooking stores b as-is, bypassing the overlap check.
func (s *Store) PutBooking(b models.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
}

// Bookings returns every stored booking, in creation order.
func (s *Store) Bookings() []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Payments returns every stored payment for a booking.
func (s *Store) Payments(bookingID string) []models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) CreateIfNoOverlap(_ context.Context, b models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[b.VehicleID]; !ok {
		return domain.NotFoundError{Resource: "vehicle", Err: sql.ErrNoRows}
	}
	for _, other := range s.bookings {
		if other.VehicleID == b.VehicleID && other.Status.IsBlocking() && other.Overlaps(b.StartDate, b.EndDate) {
			return domain.ConflictError{Resource: "booking", Msg: "vehicle is already booked for these dates"}
		}
	}
	s.bookings[b.ID] = b
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: sql.ErrNoRows}
	}
	return b, nil
}

func (s *Store) ListByRenter(_ context.Context, renterID string) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Booking{}
	for _, b := range s.bookings {
		if b.RenterID == renterID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, change models.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateStatusLocked(id, change)
}

func (s *Store) updateStatusLocked(id string, change models.StatusChange) error {
	b, ok := s.bookings[id]
	if !ok {
		return domain.NotFoundError{Resource: "booking", Err: sql.ErrNoRows}
	}
	if b.Status != change.From {
		return domain.InvalidTransitionError{From: string(change.From), To: string(change.To), Current: string(b.Status)}
	}
	b.Status = change.To
	if change.Reason != nil {
		r := *change.Reason
		b.CancellationReason = &r
	}
	if change.Refund != nil {
		v := *change.Refund
		b.RefundAmount = &v
	}
	b.UpdatedAt = change.At
	s.bookings[id] = b
	return nil
}

func (s *Store) ListStalePending(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stale []models.Booking
	for _, b := range s.bookings {
		if b.Status == models.BookingPending && b.CreatedAt.Before(cutoff) {
			stale = append(stale, b)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
	ids := []string{}
	for _, b := range stale {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, b.ID)
	}
	return ids, nil
}
