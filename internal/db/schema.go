package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id CHAR(36) NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	role VARCHAR(20) NOT NULL DEFAULT 'user',
	kyc_status VARCHAR(20) NOT NULL DEFAULT 'none',
	created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	UNIQUE KEY uniq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS vehicles (
	id CHAR(36) NOT NULL PRIMARY KEY,
	owner_id CHAR(36) NOT NULL,
	brand VARCHAR(100) NOT NULL,
	model VARCHAR(100) NOT NULL,
	year INT NOT NULL,
	plate_number VARCHAR(50) NOT NULL,
	type VARCHAR(20) NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'available',
	price_per_day BIGINT NOT NULL,
	image VARCHAR(255) NOT NULL DEFAULT '',
	created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	UNIQUE KEY uniq_vehicles_plate (plate_number),
	KEY idx_vehicles_type_status (type, status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS bookings (
	id CHAR(36) NOT NULL PRIMARY KEY,
	vehicle_id CHAR(36) NOT NULL,
	renter_id CHAR(36) NOT NULL,
	start_date DATETIME(3) NOT NULL,
	end_date DATETIME(3) NOT NULL,
	total_amount BIGINT NOT NULL,
	status VARCHAR(20) NOT NULL,
	cancellation_reason VARCHAR(255) NULL,
	refund_amount BIGINT NULL,
	created_at DATETIME(3) NOT NULL,
	updated_at DATETIME(3) NOT NULL,
	KEY idx_bookings_vehicle_window (vehicle_id, status, start_date, end_date),
	KEY idx_bookings_renter (renter_id),
	KEY idx_bookings_status_created (status, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS payments (
	id CHAR(36) NOT NULL PRIMARY KEY,
	booking_id CHAR(36) NOT NULL,
	renter_id CHAR(36) NOT NULL,
	amount BIGINT NOT NULL,
	currency VARCHAR(3) NOT NULL,
	method VARCHAR(50) NOT NULL,
	status VARCHAR(20) NOT NULL,
	processor_reference VARCHAR(100) NULL,
	client_secret VARCHAR(512) NULL,
	failure_reason VARCHAR(255) NULL,
	active_booking_id CHAR(36) AS (IF(status = 'pending', booking_id, NULL)) STORED,
	created_at DATETIME(3) NOT NULL,
	updated_at DATETIME(3) NOT NULL,
	UNIQUE KEY uniq_payments_reference (processor_reference),
	UNIQUE KEY uniq_payments_active_booking (active_booking_id),
	KEY idx_payments_booking (booking_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

// Migrate creates the tables this service reads and writes.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, ddl := range schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
