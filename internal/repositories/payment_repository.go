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

const paymentColumns = `id, booking_id, renter_id, amount, currency, method, status,
	processor_reference, client_secret, failure_reason, created_at, updated_at`

type PaymentRepository struct {
	DB *sql.DB
}

// Insert claims the booking's single pending-payment slot. The unique key on
// active_booking_id rejects a second pending payment for the same booking.
func (r PaymentRepository) Insert(ctx context.Context, p models.Payment) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO payments (id, booking_id, renter_id, amount, currency, method, status, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.BookingID, p.RenterID, p.Amount, p.Currency, p.Method, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if intdb.IsDuplicateKey(err) {
		return domain.AlreadyInitiatedError{BookingID: p.BookingID}
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// AttachHandle records the processor reference for a freshly claimed payment.
func (r PaymentRepository) AttachHandle(ctx context.Context, id, reference, clientSecret string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE payments SET processor_reference=?, client_secret=?, updated_at=?
		WHERE id=? AND status=? AND processor_reference IS NULL`,
		reference, intdb.NullIfEmpty(clientSecret), at, id, models.PaymentPending,
	)
	if err != nil {
		return fmt.Errorf("attach processor handle: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return domain.InvalidTransitionError{Resource: "payment", From: string(models.PaymentPending), To: string(models.PaymentPending)}
	}
	return nil
}

// ReleaseClaim removes a pending payment that never reached the processor.
func (r PaymentRepository) ReleaseClaim(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM payments WHERE id=? AND status=? AND processor_reference IS NULL`, id, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("release payment claim: %w", err)
	}
	return nil
}

// GetPendingByBooking returns the booking's pending payment, if any.
func (r PaymentRepository) GetPendingByBooking(ctx context.Context, bookingID string) (models.Payment, bool, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id=? AND status=? LIMIT 1`, bookingID, models.PaymentPending)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, false, nil
	}
	if err != nil {
		return models.Payment{}, false, fmt.Errorf("get pending payment: %w", err)
	}
	return p, true, nil
}

// GetLatestByBooking returns the most recent payment attempt for a booking.
func (r PaymentRepository) GetLatestByBooking(ctx context.Context, bookingID string) (models.Payment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id=? ORDER BY created_at DESC LIMIT 1`, bookingID)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, domain.NotFoundError{Resource: "payment", Err: err}
	}
	if err != nil {
		return models.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r PaymentRepository) GetByID(ctx context.Context, id string) (models.Payment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=? LIMIT 1`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, domain.NotFoundError{Resource: "payment", Err: err}
	}
	if err != nil {
		return models.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r PaymentRepository) GetByReference(ctx context.Context, reference string) (models.Payment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE processor_reference=? LIMIT 1`, reference)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, domain.NotFoundError{Resource: "payment", Err: err}
	}
	if err != nil {
		return models.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// MarkFailed moves a pending payment to failed. It reports false when the
// payment had already left pending.
func (r PaymentRepository) MarkFailed(ctx context.Context, reference, reason string, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE payments SET status=?, failure_reason=?, updated_at=?
		WHERE processor_reference=? AND status=?`,
		models.PaymentFailed, intdb.NullIfEmpty(reason), at, reference, models.PaymentPending,
	)
	if err != nil {
		return false, fmt.Errorf("mark payment failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark payment failed: %w", err)
	}
	return n == 1, nil
}

// FinalizeSuccess marks the payment identified by reference as success and
// confirms its booking in one transaction. Both writes are conditional on
// pending, so replays and late notifications change nothing.
func (r PaymentRepository) FinalizeSuccess(ctx context.Context, reference string, at time.Time) (models.FinalizeOutcome, models.Payment, error) {
	var (
		outcome models.FinalizeOutcome
		payment models.Payment
	)
	err := intdb.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE processor_reference=? FOR UPDATE`, reference)
		p, err := scanPayment(row)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundError{Resource: "payment", Err: err}
		}
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		payment = p
		if p.Status != models.PaymentPending {
			outcome = models.FinalizeAlreadyApplied
			return nil
		}

		if _, err := tx.ExecContext(ctx, `UPDATE payments SET status=?, updated_at=? WHERE id=? AND status=?`,
			models.PaymentSuccess, at, p.ID, models.PaymentPending); err != nil {
			return fmt.Errorf("mark payment success: %w", err)
		}

		err = updateBookingStatus(ctx, tx, p.BookingID, models.StatusChange{
			From: models.BookingPending,
			To:   models.BookingConfirmed,
			At:   at,
		})
		if err != nil {
			return err
		}
		payment.Status = models.PaymentSuccess
		payment.UpdatedAt = at
		outcome = models.FinalizeConfirmed
		return nil
	})
	if domain.IsInvalidTransition(err) {
		return models.FinalizeBookingNotPayable, payment, nil
	}
	if err != nil {
		return "", models.Payment{}, err
	}
	return outcome, payment, nil
}

func scanPayment(s rowScanner) (models.Payment, error) {
	var (
		p         models.Payment
		status    string
		reference sql.NullString
		secret    sql.NullString
		failure   sql.NullString
	)
	if err := s.Scan(
		&p.ID,
		&p.BookingID,
		&p.RenterID,
		&p.Amount,
		&p.Currency,
		&p.Method,
		&status,
		&reference,
		&secret,
		&failure,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return models.Payment{}, err
	}
	p.Status = models.PaymentStatus(status)
	p.ProcessorReference = reference.String
	p.ClientSecret = secret.String
	p.FailureReason = failure.String
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
