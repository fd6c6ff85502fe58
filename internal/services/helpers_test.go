package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"rental/internal/domain"
	"rental/internal/domain/models"
	"rental/internal/processor"
	"rental/internal/processor/processortest"
	"rental/internal/repositories/memstore"
	"rental/internal/utils"
	"rental/internal/webhook"
)

const (
	testSecret  = "whsec_test"
	vehicleID   = "veh-1"
	renterID    = "user-1"
	otherRenter = "user-2"
	dayRate     = int64(10000)
)

var (
	t0     = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	renter = domain.Principal{ID: renterID, Role: domain.RoleUser}
	admin  = domain.Principal{ID: "admin-1", Role: domain.RoleAdmin}
)

type armCall struct {
	BookingID string
	At        time.Time
}

type recordingArmer struct {
	mu    sync.Mutex
	calls []armCall
	err   error
}

func (a *recordingArmer) Arm(_ context.Context, id string, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, armCall{BookingID: id, At: at})
	return a.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, v any) error {
	if _, err := json.Marshal(v); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, k := range p.keys {
		if k == key {
			n++
		}
	}
	return n
}

type fixture struct {
	store  *memstore.Store
	clock  *utils.ManualClock
	proc   *processortest.Fake
	events *recordingPublisher
	armer  *recordingArmer

	bookings BookingService
	expiry   ExpiryService
	payments PaymentService
	cancel   CancellationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	store.AddVehicle(models.Vehicle{ID: vehicleID, Brand: "Toyota", Model: "Yaris", Year: 2023, Type: "car", Status: "available", PricePerDay: dayRate, CreatedAt: t0})
	store.AddVehicle(models.Vehicle{ID: "veh-2", Brand: "Honda", Model: "Click", Year: 2022, Type: "motorbike", Status: "available", PricePerDay: 3000, CreatedAt: t0.Add(time.Minute)})

	f := &fixture{
		store:  store,
		clock:  utils.NewManualClock(t0),
		proc:   processortest.New(),
		events: &recordingPublisher{},
		armer:  &recordingArmer{},
	}
	f.bookings = BookingService{Bookings: store, Expiry: f.armer, Clock: f.clock}
	f.expiry = ExpiryService{Bookings: store, Events: f.events, Clock: f.clock}
	f.payments = PaymentService{
		Bookings:      store,
		Payments:      store.PaymentStore(),
		Processor:     f.proc,
		Events:        f.events,
		Clock:         f.clock,
		Currency:      "thb",
		WebhookSecret: testSecret,
	}
	f.cancel = CancellationService{Bookings: store, Events: f.events, Clock: f.clock}
	return f
}

func init() {
	attachBackoff = time.Millisecond
}

func day(s string) time.Time {
	t, err := utils.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (f *fixture) book(t *testing.T, start, end string) models.Booking {
	t.Helper()
	b, err := f.bookings.CreateBooking(context.Background(), CreateBookingInput{
		VehicleID:      vehicleID,
		RenterID:       renterID,
		Start:          day(start),
		End:            day(end),
		Amount:         utils.ComputeRentalTotal(day(start), day(end), dayRate),
		RenterVerified: true,
	})
	if err != nil {
		t.Fatalf("CreateBooking(%s, %s) returned error: %v", start, end, err)
	}
	return b
}

func (f *fixture) checkout(t *testing.T, b models.Booking) CheckoutResult {
	t.Helper()
	res, err := f.payments.InitiateCheckout(context.Background(), CheckoutInput{BookingID: b.ID, Principal: renter, Method: "promptpay"})
	if err != nil {
		t.Fatalf("InitiateCheckout returned error: %v", err)
	}
	return res
}

func (f *fixture) notify(t *testing.T, key, reference, status string, amount int64) (Settlement, error) {
	t.Helper()
	switch status {
	case "successful":
		f.proc.Settle(reference, processor.ChargeSuccessful)
	case "failed":
		f.proc.Settle(reference, processor.ChargeFailed)
	}
	body := chargeEvent(key, reference, status, amount)
	return f.payments.HandleProviderNotification(context.Background(), webhook.Sign(testSecret, body, f.clock.Now()), body)
}

func (f *fixture) status(t *testing.T, id string) models.BookingStatus {
	t.Helper()
	b, err := f.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID(%s) returned error: %v", id, err)
	}
	return b.Status
}

func chargeEvent(key, reference, status string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{"object":"event","id":"evnt_%s","key":%q,"data":{"object":"charge","id":%q,"status":%q,"amount":%d,"currency":"thb"}}`,
		reference, key, reference, status, amount))
}

// flakyPayments fails the first failAttach AttachHandle calls.
type flakyPayments struct {
	memstore.PaymentStore
	mu         sync.Mutex
	failAttach int
	attempts   int
}

func (s *flakyPayments) AttachHandle(ctx context.Context, id, reference, clientSecret string, at time.Time) error {
	s.mu.Lock()
	s.attempts++
	fail := s.attempts <= s.failAttach
	s.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return s.PaymentStore.AttachHandle(ctx, id, reference, clientSecret, at)
}

// flakyBookings fails UpdateStatus for the listed ids.
type flakyBookings struct {
	*memstore.Store
	fail map[string]bool
}

func (s flakyBookings) UpdateStatus(ctx context.Context, id string, change models.StatusChange) error {
	if s.fail[id] {
		return errors.New("connection reset")
	}
	return s.Store.UpdateStatus(ctx, id, change)
}
