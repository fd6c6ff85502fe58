// Package processor abstracts the external payment processor.
package processor

import (
	"context"
	"errors"
)

// ErrChargeNotFound is returned when the processor has no charge with the
// requested reference.
var ErrChargeNotFound = errors.New("charge not found")

// MetadataPaymentID links a charge back to the local payment that opened it.
const MetadataPaymentID = "payment_id"

type ChargeStatus string

const (
	ChargePending    ChargeStatus = "pending"
	ChargeSuccessful ChargeStatus = "successful"
	ChargeFailed     ChargeStatus = "failed"
)

type ChargeRequest struct {
	Amount   int64
	Currency string
	// Method is the source type (e.g. "promptpay") or "card".
	Method string
	// Token is a card token collected by the client, required for card charges.
	Token    string
	Metadata map[string]any
}

// Charge is the processor's view of a charge attempt.
type Charge struct {
	Reference string
	// ClientSecret is what the client uses to complete authentication with the
	// processor (an authorize URI for redirect flows).
	ClientSecret  string
	Status        ChargeStatus
	Amount        int64
	Currency      string
	FailureCode   string
	FailureReason string
	// PaymentID is read back from the charge metadata.
	PaymentID string
}

// Processor creates and inspects charges. Implementations return errors only
// for transport or processor-side failures.
type Processor interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error)
	RetrieveCharge(ctx context.Context, reference string) (Charge, error)
}
