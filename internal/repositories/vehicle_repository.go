package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rental/internal/domain"
	"rental/internal/domain/models"
)

// VehicleRepository reads the fleet with availability derived from bookings.
type VehicleRepository struct {
	DB *sql.DB
}

var rentedIn, rentedArgs = statusIn(models.RentedStatuses)

var vehicleSelect = `
	SELECT
		v.id, v.brand, v.model, v.year, v.plate_number, v.type, v.status,
		v.price_per_day, v.image, v.created_at,
		EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.vehicle_id = v.id AND b.status IN (` + rentedIn + `)
			  AND b.start_date <= ? AND b.end_date > ?
		) AS is_currently_rented
	FROM vehicles v`

// List returns vehicles matching filter. When window is set, vehicles with a
// blocking booking overlapping it are excluded.
func (r VehicleRepository) List(ctx context.Context, filter models.VehicleFilter, window *models.Window, now time.Time) ([]models.Vehicle, error) {
	args := append(append([]any{}, rentedArgs...), now, now)
	where := []string{}

	if t := strings.TrimSpace(filter.Type); t != "" {
		where = append(where, "v.type = ?")
		args = append(args, t)
	}
	if s := strings.TrimSpace(filter.Status); s != "" {
		where = append(where, "v.status = ?")
		args = append(args, s)
	}
	if window != nil {
		in, statuses := statusIn(models.BlockingStatuses)
		where = append(where, `NOT EXISTS (
			SELECT 1 FROM bookings w
			WHERE w.vehicle_id = v.id AND w.status IN (`+in+`)
			  AND w.start_date < ? AND w.end_date > ?
		)`)
		args = append(args, statuses...)
		args = append(args, window.End, window.Start)
	}

	query := vehicleSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY v.created_at DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	list := []models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

func (r VehicleRepository) GetByID(ctx context.Context, id string, now time.Time) (models.Vehicle, error) {
	args := append(append([]any{}, rentedArgs...), now, now, id)
	row := r.DB.QueryRowContext(ctx, vehicleSelect+` WHERE v.id = ? LIMIT 1`, args...)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vehicle{}, domain.NotFoundError{Resource: "vehicle", Err: err}
	}
	if err != nil {
		return models.Vehicle{}, fmt.Errorf("get vehicle: %w", err)
	}
	return v, nil
}

func scanVehicle(s rowScanner) (models.Vehicle, error) {
	var v models.Vehicle
	if err := s.Scan(
		&v.ID,
		&v.Brand,
		&v.Model,
		&v.Year,
		&v.PlateNumber,
		&v.Type,
		&v.Status,
		&v.PricePerDay,
		&v.Image,
		&v.CreatedAt,
		&v.IsCurrentlyRented,
	); err != nil {
		return models.Vehicle{}, err
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

// statusIn returns the placeholder list and arguments for a status IN clause.
func statusIn(statuses []models.BookingStatus) (string, []any) {
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = st
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ","), args
}
