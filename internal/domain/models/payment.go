package models

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSuccess || s == PaymentFailed
}

// Payment is one charge attempt for a booking. At most one pending payment
// exists per booking at any time.
type Payment struct {
	ID                 string        `json:"id"`
	BookingID          string        `json:"bookingId"`
	RenterID           string        `json:"renterId"`
	Amount             int64         `json:"amount"`
	Currency           string        `json:"currency"`
	Method             string        `json:"paymentMethod"`
	Status             PaymentStatus `json:"status"`
	ProcessorReference string        `json:"processorReference,omitempty"`
	ClientSecret       string        `json:"clientSecret,omitempty"`
	FailureReason      string        `json:"failureReason,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// HasHandle reports whether the processor already issued a charge for this payment.
func (p Payment) HasHandle() bool {
	return p.ProcessorReference != ""
}

// FinalizeOutcome is the result of applying a processor success to a payment
// and its booking.
type FinalizeOutcome string

const (
	// FinalizeConfirmed: payment marked success and booking confirmed.
	FinalizeConfirmed FinalizeOutcome = "confirmed"
	// FinalizeAlreadyApplied: the payment already left pending; replay no-op.
	FinalizeAlreadyApplied FinalizeOutcome = "already_applied"
	// FinalizeBookingNotPayable: the booking left pending first; nothing changed.
	FinalizeBookingNotPayable FinalizeOutcome = "booking_not_payable"
)
