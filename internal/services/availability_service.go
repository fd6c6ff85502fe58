package services

import (
	"context"
	"strings"
	"time"

	"rental/internal/domain"
	"rental/internal/domain/models"
	"rental/internal/utils"
)

// AvailabilityService answers fleet listing queries.
type AvailabilityService struct {
	Vehicles VehicleStore
	Clock    utils.Clock
}

// ListVehicles lists vehicles matching filter. With a window, vehicles holding
// an overlapping pending, confirmed or active booking are left out.
func (s AvailabilityService) ListVehicles(ctx context.Context, filter models.VehicleFilter, start, end *time.Time) ([]models.Vehicle, error) {
	var window *models.Window
	switch {
	case start == nil && end == nil:
	case start == nil || end == nil:
		return nil, domain.ValidationError{Field: "endDate", Msg: "startDate and endDate must be given together"}
	case !start.Before(*end):
		return nil, domain.ValidationError{Field: "endDate", Msg: "must be after startDate"}
	default:
		window = &models.Window{Start: start.UTC(), End: end.UTC()}
	}
	filter.Type = strings.TrimSpace(filter.Type)
	filter.Status = strings.TrimSpace(filter.Status)
	return s.Vehicles.List(ctx, filter, window, clockOrSystem(s.Clock).Now())
}

func (s AvailabilityService) GetVehicle(ctx context.Context, id string) (models.Vehicle, error) {
	if strings.TrimSpace(id) == "" {
		return models.Vehicle{}, domain.ValidationError{Field: "id", Msg: "required"}
	}
	return s.Vehicles.GetByID(ctx, id, clockOrSystem(s.Clock).Now())
}
