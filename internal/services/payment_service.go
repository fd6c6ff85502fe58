package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"rental/internal/domain"
	"rental/internal/domain/models"
	"rental/internal/processor"
	"rental/internal/utils"
	"rental/internal/webhook"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PaymentService coordinates charges with the processor and confirms bookings
// once a charge succeeds.
type PaymentService struct {
	Bookings  BookingStore
	Payments  PaymentStore
	Processor processor.Processor
	Events    EventPublisher
	Clock     utils.Clock
	Currency  string

	WebhookSecret    string
	WebhookTolerance time.Duration

	NewID     func() string
	RequestID string
}

const attachAttempts = 3

// attachBackoff is multiplied by the attempt number between attach retries.
var attachBackoff = 100 * time.Millisecond

type CheckoutInput struct {
	BookingID string
	Principal domain.Principal
	// Amount must match the booking total; zero means the booking total.
	Amount int64
	Method string
	Token  string
}

type CheckoutResult struct {
	PaymentID    string               `json:"paymentId"`
	BookingID    string               `json:"bookingId"`
	Reference    string               `json:"reference"`
	ClientSecret string               `json:"clientSecret,omitempty"`
	Amount       int64                `json:"amount"`
	Currency     string               `json:"currency"`
	Status       models.PaymentStatus `json:"status"`
	Reused       bool                 `json:"reused"`
}

// SettlementOutcome is what a processor report did to local state.
type SettlementOutcome string

const (
	SettlementConfirmed  SettlementOutcome = "confirmed"
	SettlementReplayed   SettlementOutcome = "already_applied"
	SettlementNotPayable SettlementOutcome = "booking_not_payable"
	SettlementFailed     SettlementOutcome = "failed"
	SettlementPending    SettlementOutcome = "pending"
	SettlementIgnored    SettlementOutcome = "ignored"
)

type Settlement struct {
	Outcome SettlementOutcome `json:"outcome"`
	Payment *models.Payment   `json:"payment,omitempty"`
}

// InitiateCheckout opens a charge for a pending booking. A booking has at most
// one pending payment; a second call returns the existing handle.
func (s PaymentService) InitiateCheckout(ctx context.Context, in CheckoutInput) (res CheckoutResult, err error) {
	ctx, span := tracer.Start(ctx, "payment.checkout", trace.WithAttributes(attribute.String("booking.id", in.BookingID)))
	defer func() { endSpan(span, err) }()

	b, err := s.Bookings.GetByID(ctx, in.BookingID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !in.Principal.CanActFor(b.RenterID) {
		return CheckoutResult{}, domain.ForbiddenError{Msg: "not allowed to pay for this booking"}
	}
	if b.Status != models.BookingPending {
		return CheckoutResult{}, domain.InvalidTransitionError{
			Resource: "booking",
			From:     string(models.BookingPending),
			To:       string(models.BookingConfirmed),
			Current:  string(b.Status),
		}
	}
	amount := in.Amount
	if amount == 0 {
		amount = b.TotalAmount
	}
	if amount != b.TotalAmount {
		return CheckoutResult{}, domain.ValidationError{Field: "amount", Msg: "does not match booking total"}
	}

	existing, found, err := s.Payments.GetPendingByBooking(ctx, b.ID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if found {
		if !existing.HasHandle() {
			return CheckoutResult{}, domain.AlreadyInitiatedError{BookingID: b.ID}
		}
		utils.LogEvent(s.RequestID, "payment", "checkout", "reuse reference="+existing.ProcessorReference)
		out := checkoutResult(existing)
		out.Reused = true
		return out, nil
	}

	method := methodOrCard(in.Method)
	if method == processor.MethodCard && strings.TrimSpace(in.Token) == "" {
		return CheckoutResult{}, domain.ValidationError{Field: "token", Msg: "required for card payments"}
	}

	now := clockOrSystem(s.Clock).Now()
	p := models.Payment{
		ID:        s.newID(),
		BookingID: b.ID,
		RenterID:  b.RenterID,
		Amount:    amount,
		Currency:  s.currency(),
		Method:    method,
		Status:    models.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Payments.Insert(ctx, p); err != nil {
		return CheckoutResult{}, err
	}

	ch, err := s.Processor.CreateCharge(ctx, processor.ChargeRequest{
		Amount:   p.Amount,
		Currency: p.Currency,
		Method:   p.Method,
		Token:    in.Token,
		Metadata: map[string]any{"booking_id": b.ID, processor.MetadataPaymentID: p.ID},
	})
	if err != nil {
		if rerr := s.Payments.ReleaseClaim(ctx, p.ID); rerr != nil {
			utils.Entry(s.RequestID, "payment", "checkout").WithError(rerr).Error("release claim failed payment_id=" + p.ID)
		}
		return CheckoutResult{}, domain.ProcessorUnavailableError{Op: "create_charge", Err: err}
	}

	if err := s.attachHandle(ctx, p.ID, ch); err != nil {
		return CheckoutResult{}, s.abandonCharge(ctx, p, ch, err)
	}
	p.ProcessorReference = ch.Reference
	p.ClientSecret = ch.ClientSecret
	span.SetAttributes(attribute.String("payment.reference", ch.Reference))
	utils.LogEvent(s.RequestID, "payment", "checkout", "booking_id="+b.ID+" reference="+ch.Reference)

	// Card charges can settle synchronously.
	if ch.Status != processor.ChargePending {
		st, err := s.applyCharge(ctx, p, ch)
		if err != nil {
			return CheckoutResult{}, err
		}
		if st.Payment != nil {
			p = *st.Payment
		}
	}
	return checkoutResult(p), nil
}

// HandleProviderNotification authenticates a processor notification and
// applies the charge outcome it carries. The charge state is read back from
// the processor; the notification only names the charge. Replays change nothing.
func (s PaymentService) HandleProviderNotification(ctx context.Context, sig webhook.Signature, raw []byte) (st Settlement, err error) {
	ctx, span := tracer.Start(ctx, "payment.notification")
	defer func() {
		span.SetAttributes(attribute.String("settlement.outcome", string(st.Outcome)))
		endSpan(span, err)
	}()

	now := clockOrSystem(s.Clock).Now()
	if err := webhook.Verify(s.WebhookSecret, sig, raw, now, s.WebhookTolerance); err != nil {
		utils.Entry(s.RequestID, "payment", "webhook").WithError(err).Warn("rejected notification")
		return Settlement{}, err
	}
	evt, err := webhook.Parse(raw)
	if err != nil {
		return Settlement{}, err
	}
	span.SetAttributes(attribute.String("event.key", evt.Key))
	if evt.Charge == nil || evt.Charge.Reference == "" {
		utils.LogEvent(s.RequestID, "payment", "webhook", "ignored key="+evt.Key)
		return Settlement{Outcome: SettlementIgnored}, nil
	}
	reference := evt.Charge.Reference

	p, err := s.Payments.GetByReference(ctx, reference)
	if domain.IsNotFound(err) {
		if evt.Charge.PaymentID != "" {
			st, err := s.settleOrphan(ctx, reference, nil)
			if domain.IsNotFound(err) {
				utils.LogEvent(s.RequestID, "payment", "webhook", "no claim for reference="+reference)
				return Settlement{Outcome: SettlementIgnored}, nil
			}
			return st, err
		}
		utils.LogEvent(s.RequestID, "payment", "webhook", "unknown reference="+reference)
		return Settlement{Outcome: SettlementIgnored}, nil
	}
	if err != nil {
		return Settlement{}, err
	}
	if p.Status.IsTerminal() {
		return Settlement{Outcome: SettlementReplayed, Payment: &p}, nil
	}

	ch, err := s.retrieve(ctx, reference)
	if err != nil {
		return Settlement{}, err
	}
	return s.settle(ctx, p, ch)
}

// ConfirmManually polls the processor for a charge the caller believes has
// completed and applies the result.
func (s PaymentService) ConfirmManually(ctx context.Context, reference string, pr domain.Principal) (st Settlement, err error) {
	ctx, span := tracer.Start(ctx, "payment.confirm", trace.WithAttributes(attribute.String("payment.reference", reference)))
	defer func() { endSpan(span, err) }()

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Settlement{}, domain.ValidationError{Field: "reference", Msg: "required"}
	}
	p, err := s.Payments.GetByReference(ctx, reference)
	if domain.IsNotFound(err) {
		return s.settleOrphan(ctx, reference, &pr)
	}
	if err != nil {
		return Settlement{}, err
	}
	if !pr.CanActFor(p.RenterID) {
		return Settlement{}, domain.ForbiddenError{Msg: "not allowed to confirm this payment"}
	}
	if p.Status.IsTerminal() {
		return Settlement{Outcome: SettlementReplayed, Payment: &p}, nil
	}

	ch, err := s.retrieve(ctx, reference)
	if err != nil {
		return Settlement{}, err
	}
	return s.settle(ctx, p, ch)
}

// GetPaymentStatus returns the latest payment attempt for a booking.
func (s PaymentService) GetPaymentStatus(ctx context.Context, bookingID string, pr domain.Principal) (models.Payment, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return models.Payment{}, err
	}
	if !pr.CanActFor(b.RenterID) {
		return models.Payment{}, domain.ForbiddenError{Msg: "not allowed to view this payment"}
	}
	return s.Payments.GetLatestByBooking(ctx, bookingID)
}

// settleOrphan applies a charge whose reference was never stored locally. The
// processor's copy of the charge names the payment in its metadata; a pending
// payment without a handle adopts the reference before the outcome is applied.
// pr, when set, must be allowed to act for the payment's renter.
func (s PaymentService) settleOrphan(ctx context.Context, reference string, pr *domain.Principal) (Settlement, error) {
	ch, err := s.retrieve(ctx, reference)
	if err != nil {
		return Settlement{}, err
	}
	if ch.PaymentID == "" {
		return Settlement{}, domain.NotFoundError{Resource: "payment"}
	}
	p, err := s.Payments.GetByID(ctx, ch.PaymentID)
	if err != nil {
		return Settlement{}, err
	}
	if pr != nil && !pr.CanActFor(p.RenterID) {
		return Settlement{}, domain.ForbiddenError{Msg: "not allowed to confirm this payment"}
	}
	if p.HasHandle() || p.Status != models.PaymentPending {
		return Settlement{}, domain.NotFoundError{Resource: "payment"}
	}

	err = s.Payments.AttachHandle(ctx, p.ID, ch.Reference, ch.ClientSecret, clockOrSystem(s.Clock).Now())
	switch {
	case err == nil:
		p.ProcessorReference = ch.Reference
		p.ClientSecret = ch.ClientSecret
		utils.LogEvent(s.RequestID, "payment", "adopt", "payment_id="+p.ID+" reference="+ch.Reference)
	case domain.IsInvalidTransition(err):
		// adopted concurrently
		if p, err = s.Payments.GetByReference(ctx, ch.Reference); err != nil {
			return Settlement{}, err
		}
		if p.Status.IsTerminal() {
			return Settlement{Outcome: SettlementReplayed, Payment: &p}, nil
		}
	default:
		return Settlement{}, err
	}
	return s.settle(ctx, p, ch)
}

func (s PaymentService) retrieve(ctx context.Context, reference string) (processor.Charge, error) {
	ch, err := s.Processor.RetrieveCharge(ctx, reference)
	if errors.Is(err, processor.ErrChargeNotFound) {
		return processor.Charge{}, domain.NotFoundError{Resource: "charge", Err: err}
	}
	if err != nil {
		return processor.Charge{}, domain.ProcessorUnavailableError{Op: "retrieve_charge", Err: err}
	}
	return ch, nil
}

// settle applies a charge read from the processor to its local payment.
func (s PaymentService) settle(ctx context.Context, p models.Payment, ch processor.Charge) (Settlement, error) {
	if ch.Amount > 0 && ch.Amount != p.Amount {
		utils.Entry(s.RequestID, "payment", "settle").Warnf("amount mismatch reference=%s want=%d got=%d", p.ProcessorReference, p.Amount, ch.Amount)
		return Settlement{Outcome: SettlementIgnored, Payment: &p}, nil
	}
	return s.applyCharge(ctx, p, ch)
}

// attachHandle stores the charge reference, retrying transient store errors.
func (s PaymentService) attachHandle(ctx context.Context, paymentID string, ch processor.Charge) error {
	var err error
	for attempt := 1; attempt <= attachAttempts; attempt++ {
		err = s.Payments.AttachHandle(ctx, paymentID, ch.Reference, ch.ClientSecret, clockOrSystem(s.Clock).Now())
		if err == nil || domain.IsInvalidTransition(err) || attempt == attachAttempts {
			break
		}
		utils.Entry(s.RequestID, "payment", "checkout").WithError(err).Warnf("attach handle attempt %d failed reference=%s", attempt, ch.Reference)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * attachBackoff):
		}
	}
	return err
}

// abandonCharge cleans up after a charge whose handle could not be stored. A
// pending charge was never shown to the renter, so the claim is released and
// checkout can be retried. A settled charge keeps its claim; the processor
// notification adopts it through the payment_id metadata.
func (s PaymentService) abandonCharge(ctx context.Context, p models.Payment, ch processor.Charge, cause error) error {
	log := utils.Entry(s.RequestID, "payment", "checkout").WithError(cause)
	if ch.Status == processor.ChargePending {
		if err := s.Payments.ReleaseClaim(ctx, p.ID); err != nil {
			log.WithField("release_error", err.Error()).Error("release claim failed payment_id=" + p.ID)
		} else {
			log.Error("charge handle not stored, claim released payment_id=" + p.ID + " reference=" + ch.Reference)
		}
	} else {
		log.Error("settled charge not stored, waiting for notification payment_id=" + p.ID + " reference=" + ch.Reference)
	}
	return domain.InternalError{Msg: "could not record payment", Err: cause}
}

func (s PaymentService) applyCharge(ctx context.Context, p models.Payment, ch processor.Charge) (Settlement, error) {
	switch ch.Status {
	case processor.ChargeSuccessful:
		return s.finalizeSuccess(ctx, p.ProcessorReference)
	case processor.ChargeFailed:
		return s.markFailed(ctx, p, ch)
	default:
		return Settlement{Outcome: SettlementPending, Payment: &p}, nil
	}
}

// finalizeSuccess marks the payment success and confirms the booking in one
// step. A booking that already left pending keeps the payment pending.
func (s PaymentService) finalizeSuccess(ctx context.Context, reference string) (Settlement, error) {
	now := clockOrSystem(s.Clock).Now()
	outcome, p, err := s.Payments.FinalizeSuccess(ctx, reference, now)
	if err != nil {
		return Settlement{}, err
	}

	switch outcome {
	case models.FinalizeConfirmed:
		utils.LogEvent(s.RequestID, "payment", "finalize", "confirmed booking_id="+p.BookingID+" reference="+reference)
		publish(ctx, s.Events, s.RequestID, EventPaymentSucceeded, paymentEvent(EventPaymentSucceeded, p, now))
		publish(ctx, s.Events, s.RequestID, EventBookingConfirmed, BookingEvent{
			Event:      EventBookingConfirmed,
			BookingID:  p.BookingID,
			RenterID:   p.RenterID,
			Status:     string(models.BookingConfirmed),
			OccurredAt: now,
		})
		return Settlement{Outcome: SettlementConfirmed, Payment: &p}, nil
	case models.FinalizeAlreadyApplied:
		return Settlement{Outcome: SettlementReplayed, Payment: &p}, nil
	default:
		utils.Entry(s.RequestID, "payment", "finalize").
			Warn("charge succeeded for booking no longer pending, manual refund required booking_id=" + p.BookingID + " reference=" + reference)
		return Settlement{Outcome: SettlementNotPayable, Payment: &p}, nil
	}
}

func (s PaymentService) markFailed(ctx context.Context, p models.Payment, ch processor.Charge) (Settlement, error) {
	now := clockOrSystem(s.Clock).Now()
	reason := ch.FailureReason
	if reason == "" {
		reason = ch.FailureCode
	}
	changed, err := s.Payments.MarkFailed(ctx, p.ProcessorReference, reason, now)
	if err != nil {
		return Settlement{}, err
	}
	if !changed {
		return Settlement{Outcome: SettlementReplayed, Payment: &p}, nil
	}
	p.Status = models.PaymentFailed
	p.FailureReason = reason
	p.UpdatedAt = now
	utils.LogEvent(s.RequestID, "payment", "failed", "booking_id="+p.BookingID+" reference="+p.ProcessorReference)
	publish(ctx, s.Events, s.RequestID, EventPaymentFailed, paymentEvent(EventPaymentFailed, p, now))
	return Settlement{Outcome: SettlementFailed, Payment: &p}, nil
}

func checkoutResult(p models.Payment) CheckoutResult {
	return CheckoutResult{
		PaymentID:    p.ID,
		BookingID:    p.BookingID,
		Reference:    p.ProcessorReference,
		ClientSecret: p.ClientSecret,
		Amount:       p.Amount,
		Currency:     p.Currency,
		Status:       p.Status,
	}
}

func methodOrCard(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if m == "" {
		return "card"
	}
	return m
}

func (s PaymentService) currency() string {
	if c := strings.TrimSpace(s.Currency); c != "" {
		return strings.ToLower(c)
	}
	return "thb"
}

func (s PaymentService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
