package memstore

import (
	"context"
	"database/sql"
	"time"

	"rental/internal/domain"
	"rental/internal/domain/models"
)

// PaymentStore exposes the payment table of a Store. Store itself is the
// booking store.
type PaymentStore struct{ *Store }

func (s *Store) PaymentStore() PaymentStore { return PaymentStore{s} }

func (p PaymentStore) Insert(_ context.Context, pay models.Payment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pay.Status == models.PaymentPending {
		for _, other := range p.payments {
			if other.BookingID == pay.BookingID && other.Status == models.PaymentPending {
				return domain.AlreadyInitiatedError{BookingID: pay.BookingID}
			}
		}
	}
	p.payments[pay.ID] = pay
	return nil
}

func (p PaymentStore) AttachHandle(_ context.Context, id, reference, clientSecret string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pay, ok := p.payments[id]
	if !ok || pay.Status != models.PaymentPending || pay.ProcessorReference != "" {
		return domain.InvalidTransitionError{Resource: "payment", From: string(models.PaymentPending), To: string(models.PaymentPending)}
	}
	pay.ProcessorReference = reference
	pay.ClientSecret = clientSecret
	pay.UpdatedAt = at
	p.payments[id] = pay
	return nil
}

func (p PaymentStore) ReleaseClaim(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pay, ok := p.payments[id]; ok && pay.Status == models.PaymentPending && pay.ProcessorReference == "" {
		delete(p.payments, id)
	}
	return nil
}

func (p PaymentStore) GetPendingByBooking(_ context.Context, bookingID string) (models.Payment, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pay := range p.payments {
		if pay.BookingID == bookingID && pay.Status == models.PaymentPending {
			return pay, true, nil
		}
	}
	return models.Payment{}, false, nil
}

func (p PaymentStore) GetLatestByBooking(_ context.Context, bookingID string) (models.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var (
		latest models.Payment
		found  bool
	)
	for _, pay := range p.payments {
		if pay.BookingID == bookingID && (!found || pay.CreatedAt.After(latest.CreatedAt)) {
			latest, found = pay, true
		}
	}
	if !found {
		return models.Payment{}, domain.NotFoundError{Resource: "payment", Err: sql.ErrNoRows}
	}
	return latest, nil
}

func (p PaymentStore) GetByID(_ context.Context, id string) (models.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pay, ok := p.payments[id]; ok {
		return pay, nil
	}
	return models.Payment{}, domain.NotFoundError{Resource: "payment", Err: sql.ErrNoRows}
}

func (p PaymentStore) GetByReference(_ context.Context, reference string) (models.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pay, ok := p.byReferenceLocked(reference); ok {
		return pay, nil
	}
	return models.Payment{}, domain.NotFoundError{Resource: "payment", Err: sql.ErrNoRows}
}

func (p PaymentStore) MarkFailed(_ context.Context, reference, reason string, at time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pay, ok := p.byReferenceLocked(reference)
	if !ok || pay.Status != models.PaymentPending {
		return false, nil
	}
	pay.Status = models.PaymentFailed
	pay.FailureReason = reason
	pay.UpdatedAt = at
	p.payments[pay.ID] = pay
	return true, nil
}

func (p PaymentStore) FinalizeSuccess(_ context.Context, reference string, at time.Time) (models.FinalizeOutcome, models.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pay, ok := p.byReferenceLocked(reference)
	if !ok {
		return "", models.Payment{}, domain.NotFoundError{Resource: "payment", Err: sql.ErrNoRows}
	}
	if pay.Status != models.PaymentPending {
		return models.FinalizeAlreadyApplied, pay, nil
	}
	err := p.updateStatusLocked(pay.BookingID, models.StatusChange{
		From: models.BookingPending,
		To:   models.BookingConfirmed,
		At:   at,
	})
	if domain.IsInvalidTransition(err) {
		return models.FinalizeBookingNotPayable, pay, nil
	}
	if err != nil {
		return "", models.Payment{}, err
	}
	pay.Status = models.PaymentSuccess
	pay.UpdatedAt = at
	p.payments[pay.ID] = pay
	return models.FinalizeConfirmed, pay, nil
}

func (p PaymentStore) byReferenceLocked(reference string) (models.Payment, bool) {
	if reference == "" {
		return models.Payment{}, false
	}
	for _, pay := range p.payments {
		if pay.ProcessorReference == reference {
			return pay, true
		}
	}
	return models.Payment{}, false
}
