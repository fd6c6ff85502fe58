package memstore

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"rental/internal/domain"
	"rental/internal/domain/models"
)

// VehicleStore adapts Store to the vehicle store contract.
type VehicleStore struct{ *Store }

func (s *Store) VehicleStore() VehicleStore { return VehicleStore{s} }

func (v VehicleStore) List(_ context.Context, filter models.VehicleFilter, window *models.Window, now time.Time) ([]models.Vehicle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := []models.Vehicle{}
	for _, veh := range v.vehicles {
		if filter.Type != "" && veh.Type != filter.Type {
			continue
		}
		if filter.Status != "" && veh.Status != filter.Status {
			continue
		}
		if window != nil && v.blockedLocked(veh.ID, *window) {
			continue
		}
		veh.IsCurrentlyRented = v.rentedLocked(veh.ID, now)
		out = append(out, veh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (v VehicleStore) GetByID(_ context.Context, id string, now time.Time) (models.Vehicle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	veh, ok := v.vehicles[id]
	if !ok {
		return models.Vehicle{}, domain.NotFoundError{Resource: "vehicle", Err: sql.ErrNoRows}
	}
	veh.IsCurrentlyRented = v.rentedLocked(id, now)
	return veh, nil
}

func (v VehicleStore) blockedLocked(vehicleID string, w models.Window) bool {
	for _, b := range v.bookings {
		if b.VehicleID == vehicleID && b.Status.IsBlocking() && b.Overlaps(w.Start, w.End) {
			return true
		}
	}
	return false
}

func (v VehicleStore) rentedLocked(vehicleID string, now time.Time) bool {
	for _, b := range v.bookings {
		if b.VehicleID != vehicleID {
			continue
		}
		if b.Status.IsRented() && b.Contains(now) {
			return true
		}
	}
	return false
}
