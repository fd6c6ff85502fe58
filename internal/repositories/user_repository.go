package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rental/internal/domain"
	"rental/internal/domain/models"
)

// UserRepository reads renter attributes owned by the identity collaborator.
type UserRepository struct {
	DB *sql.DB
}

// IsVerified reports whether the renter passed identity verification.
func (r UserRepository) IsVerified(ctx context.Context, userID string) (bool, error) {
	var status string
	err := r.DB.QueryRowContext(ctx, `SELECT kyc_status FROM users WHERE id=? LIMIT 1`, userID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.NotFoundError{Resource: "user", Err: err}
	}
	if err != nil {
		return false, fmt.Errorf("get user: %w", err)
	}
	return models.KYCStatus(status) == models.KYCVerified, nil
}

func (r UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, email, role, kyc_status, created_at FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		var status string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &status, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.KYCStatus = models.KYCStatus(status)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// UpdateKYCStatus records an administrator's verification decision.
func (r UserRepository) UpdateKYCStatus(ctx context.Context, userID string, status models.KYCStatus) error {
	if !status.Valid() {
		return domain.ValidationError{Field: "status", Msg: "must be one of none, pending, verified, rejected"}
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET kyc_status=? WHERE id=?`, string(status), userID)
	if err != nil {
		return fmt.Errorf("update kyc status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update kyc status: %w", err)
	}
	if n == 0 {
		// MySQL reports 0 for an unchanged row too
		var exists int
		err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=? LIMIT 1`, userID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundError{Resource: "user", Err: err}
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
	}
	return nil
}
