package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"rental/internal/domain"
	"rental/internal/domain/models"
	h "rental/internal/http/handlers"
	"rental/internal/http/middleware"
	"rental/internal/processor"
	"rental/internal/processor/processortest"
	"rental/internal/repositories/memstore"
	"rental/internal/utils"
	"rental/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
)

const webhookSecret = "whsec_router"

var jwtSecret = []byte("router-secret")

type bookingEnvelope struct {
	Booking      models.Booking `json:"booking"`
	RefundAmount int64          `json:"refundAmount"`
}

type RentalAPISuite struct {
	suite.Suite

	store  *memstore.Store
	clock  *utils.ManualClock
	proc   *processortest.Fake
	router *gin.Engine
}

func TestRentalAPISuite(t *testing.T) {
	suite.Run(t, new(RentalAPISuite))
}

func (s *RentalAPISuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.store = memstore.New()
	s.clock = utils.NewManualClock(time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC))
	s.proc = processortest.New()

	s.store.AddVehicle(models.Vehicle{ID: "veh-1", Brand: "Toyota", Model: "Yaris", Year: 2023, Type: "car",
		Status: "available", PricePerDay: 10000, CreatedAt: s.clock.Now()})
	s.store.SetVerified("user-1", true)
	s.store.SetVerified("user-2", true)
	s.store.SetVerified("user-3", false)

	hd := h.New(h.Deps{
		Bookings:      s.store,
		Payments:      s.store.PaymentStore(),
		Vehicles:      s.store.VehicleStore(),
		Users:         s.store,
		Processor:     s.proc,
		Clock:         s.clock,
		Currency:      "thb",
		WebhookSecret: webhookSecret,
	})
	s.router = NewRouter(RouterConfig{JWTSecret: jwtSecret}, hd)
}

func (s *RentalAPISuite) token(id, role string) string {
	tok, err := middleware.SignToken(jwtSecret, domain.Principal{ID: id, Role: role}, jwt.RegisteredClaims{})
	s.Require().NoError(err)
	return tok
}

func (s *RentalAPISuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// webhook delivers a charge.complete notification. A nil sig signs the body
// with the configured secret; the fake processor is settled to status first.
func (s *RentalAPISuite) webhook(reference, status string, amount int64, sig *webhook.Signature) *httptest.ResponseRecorder {
	body := []byte(fmt.Sprintf(`{"object":"event","id":"evnt_1","key":"charge.complete","data":{"object":"charge","id":%q,"status":%q,"amount":%d,"currency":"thb"}}`,
		reference, status, amount))
	if sig == nil {
		signed := webhook.Sign(webhookSecret, body, s.clock.Now())
		sig = &signed
		s.proc.Settle(reference, processor.ChargeStatus(status))
	}
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, sig.Values)
	req.Header.Set(webhook.TimestampHeader, sig.Timestamp)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RentalAPISuite) createBooking(user, start, end string) (*httptest.ResponseRecorder, models.Booking) {
	w := s.do(http.MethodPost, "/api/bookings", s.token(user, domain.RoleUser), gin.H{
		"vehicleId": "veh-1", "startDate": start, "endDate": end,
	})
	var env bookingEnvelope
	if w.Code == http.StatusCreated {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env.Booking
}

func (s *RentalAPISuite) TestBookPayCancelLifecycle() {
	w, b := s.createBooking("user-1", "2025-06-01", "2025-06-03")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal(models.BookingPending, b.Status)
	s.Equal(int64(20000), b.TotalAmount)

	w = s.do(http.MethodPost, "/api/payments/checkout", s.token("user-1", domain.RoleUser), gin.H{
		"bookingId": b.ID, "paymentMethod": "promptpay",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var checkout struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &checkout))
	s.Equal(int64(20000), checkout.Amount)

	w = s.webhook(checkout.Reference, "successful", 20000, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(w.Body.String(), `"outcome":"confirmed"`)

	// replayed notification changes nothing
	w = s.webhook(checkout.Reference, "successful", 20000, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"outcome":"already_applied"`)

	w = s.do(http.MethodGet, "/api/bookings/"+b.ID, s.token("user-1", domain.RoleUser), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var got bookingEnvelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &got))
	s.Equal(models.BookingConfirmed, got.Booking.Status)

	w, _ = s.createBooking("user-2", "2025-06-02", "2025-06-04")
	s.Equal(http.StatusConflict, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/bookings/"+b.ID+"/cancel", s.token("user-1", domain.RoleUser), gin.H{"reason": "plans changed"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var cancelled bookingEnvelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &cancelled))
	s.Equal(int64(20000), cancelled.RefundAmount)
	s.Equal(models.BookingCancelled, cancelled.Booking.Status)

	w = s.do(http.MethodPost, "/api/bookings/"+b.ID+"/cancel", s.token("user-1", domain.RoleUser), gin.H{"reason": "again"})
	s.Equal(http.StatusConflict, w.Code)
	s.Contains(w.Body.String(), "already_cancelled")

	// the window is free again
	w, _ = s.createBooking("user-2", "2025-06-02", "2025-06-04")
	s.Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (s *RentalAPISuite) TestBackToBackBookingsDoNotOverlap() {
	w, _ := s.createBooking("user-1", "2025-06-01", "2025-06-03")
	s.Require().Equal(http.StatusCreated, w.Code)
	w, _ = s.createBooking("user-2", "2025-06-03", "2025-06-05")
	s.Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (s *RentalAPISuite) TestUnverifiedRenterIsForbidden() {
	w, _ := s.createBooking("user-3", "2025-06-01", "2025-06-03")
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.createBooking("user-unknown", "2025-06-01", "2025-06-03")
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *RentalAPISuite) TestMismatchedTotalIsRejected() {
	w := s.do(http.MethodPost, "/api/bookings", s.token("user-1", domain.RoleUser), gin.H{
		"vehicleId": "veh-1", "startDate": "2025-06-01", "endDate": "2025-06-03", "totalAmount": 1,
	})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RentalAPISuite) TestWebhookRejectsBadSignature() {
	w, b := s.createBooking("user-1", "2025-06-01", "2025-06-03")
	s.Require().Equal(http.StatusCreated, w.Code)
	w = s.do(http.MethodPost, "/api/payments/checkout", s.token("user-1", domain.RoleUser), gin.H{"bookingId": b.ID})
	s.Require().Equal(http.StatusBadRequest, w.Code, "card checkout needs a token")
	w = s.do(http.MethodPost, "/api/payments/checkout", s.token("user-1", domain.RoleUser), gin.H{
		"bookingId": b.ID, "paymentMethod": "card", "token": "tokn_test_1",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var checkout struct {
		Reference string `json:"reference"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &checkout))

	s.proc.Settle(checkout.Reference, processor.ChargeSuccessful)
	w = s.webhook(checkout.Reference, "successful", 20000, &webhook.Signature{
		Timestamp: strconv.FormatInt(s.clock.Now().Unix(), 10),
		Values:    "deadbeef",
	})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/payments/status/"+b.ID, s.token("user-1", domain.RoleUser), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"pending"`)
}

func (s *RentalAPISuite) TestOtherRenterCannotSeeBooking() {
	w, b := s.createBooking("user-1", "2025-06-01", "2025-06-03")
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/bookings/"+b.ID, s.token("user-2", domain.RoleUser), nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/bookings/"+b.ID, s.token("admin-1", domain.RoleAdmin), nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RentalAPISuite) TestAdminSweepExpiresStaleBookings() {
	w, b := s.createBooking("user-1", "2025-06-01", "2025-06-03")
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/admin/expiry/sweep", s.token("user-1", domain.RoleUser), nil)
	s.Equal(http.StatusForbidden, w.Code)

	s.clock.Advance(16 * time.Minute)
	w = s.do(http.MethodPost, "/api/admin/expiry/sweep", s.token("admin-1", domain.RoleAdmin), nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	got, err := s.store.GetByID(context.Background(), b.ID)
	s.Require().NoError(err)
	s.Equal(models.BookingCancelled, got.Status)
}

func (s *RentalAPISuite) TestVehicleListingHidesBookedVehicle() {
	w, _ := s.createBooking("user-1", "2025-06-01", "2025-06-03")
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/vehicles?startDate=2025-06-02&endDate=2025-06-04", "", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.NotContains(w.Body.String(), "veh-1")

	w = s.do(http.MethodGet, "/api/vehicles?startDate=2025-06-03&endDate=2025-06-04", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "veh-1")

	w = s.do(http.MethodGet, "/api/vehicles?startDate=2025-06-03", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RentalAPISuite) TestAdminVerifiesRenterKYC() {
	w, _ := s.createBooking("user-3", "2025-06-01", "2025-06-03")
	s.Require().Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/api/admin/users/kyc/user-3", s.token("user-1", domain.RoleUser), gin.H{"status": "verified"})
	s.Equal(http.StatusForbidden, w.Code)

	admin := s.token("admin-1", domain.RoleAdmin)
	w = s.do(http.MethodPatch, "/api/admin/users/kyc/user-3", admin, gin.H{"status": "approved"})
	s.Equal(http.StatusBadRequest, w.Code, w.Body.String())
	w = s.do(http.MethodPatch, "/api/admin/users/kyc/user-404", admin, gin.H{"status": "verified"})
	s.Equal(http.StatusNotFound, w.Code, w.Body.String())

	w = s.do(http.MethodPatch, "/api/admin/users/kyc/user-3", admin, gin.H{"status": "Verified"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(w.Body.String(), `"kycStatus":"verified"`)

	w = s.do(http.MethodGet, "/api/admin/users", admin, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var listed struct {
		Users []models.User `json:"users"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &listed))
	s.Len(listed.Users, 3)
	for _, u := range listed.Users {
		s.Equal(models.KYCVerified, u.KYCStatus, u.ID)
	}

	w, _ = s.createBooking("user-3", "2025-06-01", "2025-06-03")
	s.Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (s *RentalAPISuite) TestRateLimitAppliesToEveryRoute() {
	hd := h.New(h.Deps{Vehicles: s.store.VehicleStore(), Users: s.store, Clock: s.clock})
	r := NewRouter(RouterConfig{
		JWTSecret: jwtSecret,
		RateLimit: middleware.RateLimitConfig{Requests: 2, Window: 15 * time.Minute},
	}, hd)
	defer h.SetRouter(s.router)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/vehicles", nil))
		codes = append(codes, w.Code)
	}
	s.Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
