package repositories

import (
	"context"
	"testing"

	"rental/internal/domain"
	"rental/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func vehicleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "brand", "model", "year", "plate_number", "type", "status",
		"price_per_day", "image", "created_at", "is_currently_rented"})
}

func TestVehicleListWithWindow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM vehicles v WHERE v.type = \? AND NOT EXISTS`).
		WithArgs("confirmed", "active", created, created, "suv", "pending", "confirmed", "active", juneThird, juneFirst).
		WillReturnRows(vehicleRows().
			AddRow("veh-1", "Toyota", "Fortuner", 2022, "B 1234 XY", "suv", "available", int64(10000), "", created, true))

	list, err := (VehicleRepository{DB: db}).List(context.Background(),
		models.VehicleFilter{Type: "suv"}, &models.Window{Start: juneFirst, End: juneThird}, created)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 1 || !list[0].IsCurrentlyRented || list[0].PricePerDay != 10000 {
		t.Fatalf("unexpected vehicles %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVehicleGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ WHERE v.id = \?`).WillReturnRows(vehicleRows())
	if _, err := (VehicleRepository{DB: db}).GetByID(context.Background(), "missing", created); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
