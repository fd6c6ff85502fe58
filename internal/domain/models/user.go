package models

import "time"

// KYCStatus is the renter's identity verification state.
type KYCStatus string

const (
	KYCNone     KYCStatus = "none"
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

func (s KYCStatus) Valid() bool {
	switch s {
	case KYCNone, KYCPending, KYCVerified, KYCRejected:
		return true
	}
	return false
}

// User is the part of an account the booking core reads and administers.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	KYCStatus KYCStatus `json:"kycStatus"`
	CreatedAt time.Time `json:"createdAt"`
}
