package models

import "time"

// Vehicle is read from the fleet record store. IsCurrentlyRented is derived
// per query and never persisted.
type Vehicle struct {
	ID                string    `json:"id"`
	Brand             string    `json:"brand"`
	Model             string    `json:"model"`
	Year              int       `json:"year"`
	PlateNumber       string    `json:"plateNumber"`
	Type              string    `json:"type"`
	Status            string    `json:"status"`
	PricePerDay       int64     `json:"pricePerDay"`
	Image             string    `json:"image,omitempty"`
	IsCurrentlyRented bool      `json:"isCurrentlyRented"`
	CreatedAt         time.Time `json:"createdAt"`
}

// VehicleFilter narrows the fleet listing. Empty fields match everything.
type VehicleFilter struct {
	Type   string
	Status string
}

// Window is an optional half-open availability window.
type Window struct {
	Start time.Time
	End   time.Time
}
