package repositories

import (
	"context"
	"database/sql"
	"testing"

	"rental/internal/domain"
	"rental/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestUserIsVerified(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := UserRepository{DB: db}

	mock.ExpectQuery(`SELECT kyc_status FROM users`).WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"kyc_status"}).AddRow("verified"))
	mock.ExpectQuery(`SELECT kyc_status FROM users`).WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"kyc_status"}).AddRow("pending"))

	if ok, err := repo.IsVerified(context.Background(), "user-1"); err != nil || !ok {
		t.Fatalf("user-1 verified = %v, %v", ok, err)
	}
	if ok, err := repo.IsVerified(context.Background(), "user-2"); err != nil || ok {
		t.Fatalf("user-2 verified = %v, %v", ok, err)
	}

	mock.ExpectQuery(`SELECT kyc_status FROM users`).WithArgs("user-9").WillReturnError(sql.ErrNoRows)
	if _, err := repo.IsVerified(context.Background(), "user-9"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, email, role, kyc_status, created_at FROM users ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "kyc_status", "created_at"}).
			AddRow("user-2", "Somchai", "somchai@example.com", "user", "pending", created).
			AddRow("user-1", "Ada", "ada@example.com", "admin", "verified", created))

	users, err := (UserRepository{DB: db}).List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(users) != 2 || users[0].KYCStatus != models.KYCPending || users[1].Role != "admin" {
		t.Fatalf("unexpected users %+v", users)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateKYCStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := UserRepository{DB: db}
	ctx := context.Background()

	mock.ExpectExec(`UPDATE users SET kyc_status=\? WHERE id=\?`).WithArgs("verified", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.UpdateKYCStatus(ctx, "user-2", models.KYCVerified); err != nil {
		t.Fatalf("UpdateKYCStatus returned error: %v", err)
	}

	// unchanged row
	mock.ExpectExec(`UPDATE users SET kyc_status=\?`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM users WHERE id=\?`).WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	if err := repo.UpdateKYCStatus(ctx, "user-2", models.KYCVerified); err != nil {
		t.Fatalf("unchanged status returned error: %v", err)
	}

	mock.ExpectExec(`UPDATE users SET kyc_status=\?`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM users WHERE id=\?`).WithArgs("user-9").WillReturnError(sql.ErrNoRows)
	if err := repo.UpdateKYCStatus(ctx, "user-9", models.KYCVerified); !domain.IsNotFound(err) {
		t.Fatalf("missing user: expected not found, got %v", err)
	}

	if err := repo.UpdateKYCStatus(ctx, "user-2", "approved"); !domain.IsValidation(err) {
		t.Fatalf("bad status: expected validation, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
