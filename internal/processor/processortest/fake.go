// Package processortest provides a simulated payment processor for tests.
package processortest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"rental/internal/processor"
)

var ErrUnavailable = errors.New("processor unavailable")

// Fake keeps charges in memory. Outcomes are set explicitly by tests.
type Fake struct {
	mu      sync.Mutex
	seq     int
	charges map[string]processor.Charge

	// FailCreate makes CreateCharge return ErrUnavailable.
	FailCreate bool
	// FailRetrieve makes RetrieveCharge return ErrUnavailable.
	FailRetrieve bool
	// CardOutcome, when set, settles card charges at creation the way a
	// non-3DS card payment does.
	CardOutcome processor.ChargeStatus
	// Created counts successful CreateCharge calls.
	Created int
}

func New() *Fake {
	return &Fake{charges: map[string]processor.Charge{}}
}

func (f *Fake) CreateCharge(_ context.Context, req processor.ChargeRequest) (processor.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreate {
		return processor.Charge{}, ErrUnavailable
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	isCard := method == "" || method == processor.MethodCard
	if isCard && req.Token == "" {
		return processor.Charge{}, errors.New("card token required")
	}
	f.seq++
	ref := fmt.Sprintf("chrg_test_%04d", f.seq)
	ch := processor.Charge{
		Reference:    ref,
		ClientSecret: "https://pay.test/authorize/" + ref,
		Status:       processor.ChargePending,
		Amount:       req.Amount,
		Currency:     req.Currency,
	}
	if id, ok := req.Metadata[processor.MetadataPaymentID].(string); ok {
		ch.PaymentID = id
	}
	if isCard && f.CardOutcome != "" {
		ch.Status = f.CardOutcome
	}
	f.charges[ref] = ch
	f.Created++
	return ch, nil
}

func (f *Fake) RetrieveCharge(_ context.Context, reference string) (processor.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRetrieve {
		return processor.Charge{}, ErrUnavailable
	}
	ch, ok := f.charges[reference]
	if !ok {
		return processor.Charge{}, fmt.Errorf("%w: %s", processor.ErrChargeNotFound, reference)
	}
	return ch, nil
}

// Settle sets the processor-side outcome of a known charge.
func (f *Fake) Settle(reference string, status processor.ChargeStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.charges[reference]
	if !ok {
		return
	}
	ch.Status = status
	f.charges[reference] = ch
}

// SetAmount overrides the amount the processor reports for a charge.
func (f *Fake) SetAmount(reference string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.charges[reference]; ok {
		ch.Amount = amount
		f.charges[reference] = ch
	}
}

// Charges returns every charge created so far.
func (f *Fake) Charges() []processor.Charge {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]processor.Charge, 0, len(f.charges))
	for _, ch := range f.charges {
		out = append(out, ch)
	}
	return out
}
