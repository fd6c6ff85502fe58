package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	intdb "rental/internal/db"
	"rental/internal/domain"
	"rental/internal/domain/models"
)

const bookingColumns = `id, vehicle_id, renter_id, start_date, end_date, total_amount, status,
	cancellation_reason, refund_amount, created_at, updated_at`

// BookingRepository is the MySQL-backed reservation ledger.
type BookingRepository struct {
	DB *sql.DB
}

// CreateIfNoOverlap inserts b unless a blocking booking for the same vehicle
// overlaps [b.StartDate, b.EndDate). The vehicle row lock serialises creation
// per vehicle across every process sharing the database.
func (r BookingRepository) CreateIfNoOverlap(ctx context.Context, b models.Booking) error {
	return intdb.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var vehicleID string
		err := tx.QueryRowContext(ctx, `SELECT id FROM vehicles WHERE id=? FOR UPDATE`, b.VehicleID).Scan(&vehicleID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundError{Resource: "vehicle", Err: err}
		}
		if err != nil {
			return fmt.Errorf("lock vehicle: %w", err)
		}

		in, statuses := statusIn(models.BlockingStatuses)
		args := append([]any{b.VehicleID}, statuses...)
		args = append(args, b.EndDate, b.StartDate)
		var existing string
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM bookings
			WHERE vehicle_id=? AND status IN (`+in+`)
			  AND start_date < ? AND end_date > ?
			LIMIT 1`, args...,
		).Scan(&existing)
		switch {
		case err == nil:
			return domain.ConflictError{Resource: "booking", Msg: "vehicle is already booked for these dates"}
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("overlap check: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO bookings (id, vehicle_id, renter_id, start_date, end_date, total_amount, status, created_at, updated_at)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			b.ID, b.VehicleID, b.RenterID, b.StartDate, b.EndDate, b.TotalAmount, b.Status, b.CreatedAt, b.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
}

func (r BookingRepository) GetByID(ctx context.Context, id string) (models.Booking, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=? LIMIT 1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (r BookingRepository) ListByRenter(ctx context.Context, renterID string) ([]models.Booking, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE renter_id=? ORDER BY created_at DESC`, renterID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateStatus applies change as a compare-and-swap on the current status.
func (r BookingRepository) UpdateStatus(ctx context.Context, id string, change models.StatusChange) error {
	return updateBookingStatus(ctx, r.DB, id, change)
}

// ListStalePending returns ids of pending bookings created before cutoff.
func (r BookingRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id FROM bookings
		WHERE status=? AND created_at < ?
		ORDER BY created_at ASC
		LIMIT ?`, models.BookingPending, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale bookings: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func updateBookingStatus(ctx context.Context, q intdb.Execer, id string, change models.StatusChange) error {
	res, err := q.ExecContext(ctx, `
		UPDATE bookings
		SET status=?,
		    cancellation_reason=COALESCE(?, cancellation_reason),
		    refund_amount=COALESCE(?, refund_amount),
		    updated_at=?
		WHERE id=? AND status=?`,
		change.To, nullString(change.Reason), nullInt64(change.Refund), change.At, id, change.From,
	)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if n == 1 {
		return nil
	}

	var current string
	err = q.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id=?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return fmt.Errorf("read booking status: %w", err)
	}
	return domain.InvalidTransitionError{
		From:    string(change.From),
		To:      string(change.To),
		Current: current,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (models.Booking, error) {
	var (
		b      models.Booking
		status string
		reason sql.NullString
		refund sql.NullInt64
	)
	if err := s.Scan(
		&b.ID,
		&b.VehicleID,
		&b.RenterID,
		&b.StartDate,
		&b.EndDate,
		&b.TotalAmount,
		&status,
		&reason,
		&refund,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return models.Booking{}, err
	}
	b.Status = models.BookingStatus(status)
	if reason.Valid {
		b.CancellationReason = &reason.String
	}
	if refund.Valid {
		v := refund.Int64
		b.RefundAmount = &v
	}
	b.StartDate = b.StartDate.UTC()
	b.EndDate = b.EndDate.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
