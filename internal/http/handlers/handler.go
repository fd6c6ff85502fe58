package handlers

import (
	"context"
	"time"

	"rental/internal/domain/models"
	"rental/internal/http/middleware"
	"rental/internal/processor"
	"rental/internal/services"
	"rental/internal/utils"

	"github.com/gin-gonic/gin"
)

// UserStore reads renter verification and lets administrators record KYC
// decisions.
type UserStore interface {
	IsVerified(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateKYCStatus(ctx context.Context, userID string, status models.KYCStatus) error
}

// Pinger checks storage health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Bookings  services.BookingStore
	Payments  services.PaymentStore
	Vehicles  services.VehicleStore
	Users     UserStore
	Processor processor.Processor
	Expiry    services.ExpiryArmer
	Events    services.EventPublisher
	Clock     utils.Clock
	DB        Pinger

	BookingTimeout time.Duration
	SweepBatchSize int
	Currency       string
	WebhookSecret  string
}

// Handler serves the booking, payment and vehicle endpoints. Services are
// built per request so logs carry the request id.
type Handler struct {
	deps Deps
}

func New(d Deps) *Handler {
	if d.Clock == nil {
		d.Clock = utils.SystemClock{}
	}
	return &Handler{deps: d}
}

func (h *Handler) bookingService(c *gin.Context) services.BookingService {
	return services.BookingService{
		Bookings:  h.deps.Bookings,
		Expiry:    h.deps.Expiry,
		Clock:     h.deps.Clock,
		Timeout:   h.deps.BookingTimeout,
		RequestID: middleware.GetRequestID(c),
	}
}

func (h *Handler) expiryService(c *gin.Context) services.ExpiryService {
	return services.ExpiryService{
		Bookings:  h.deps.Bookings,
		Events:    h.deps.Events,
		Clock:     h.deps.Clock,
		Timeout:   h.deps.BookingTimeout,
		BatchSize: h.deps.SweepBatchSize,
		RequestID: middleware.GetRequestID(c),
	}
}

func (h *Handler) paymentService(c *gin.Context) services.PaymentService {
	return services.PaymentService{
		Bookings:      h.deps.Bookings,
		Payments:      h.deps.Payments,
		Processor:     h.deps.Processor,
		Events:        h.deps.Events,
		Clock:         h.deps.Clock,
		Currency:      h.deps.Currency,
		WebhookSecret: h.deps.WebhookSecret,
		RequestID:     middleware.GetRequestID(c),
	}
}

func (h *Handler) cancellationService(c *gin.Context) services.CancellationService {
	return services.CancellationService{
		Bookings:  h.deps.Bookings,
		Events:    h.deps.Events,
		Clock:     h.deps.Clock,
		RequestID: middleware.GetRequestID(c),
	}
}

func (h *Handler) availabilityService() services.AvailabilityService {
	return services.AvailabilityService{Vehicles: h.deps.Vehicles, Clock: h.deps.Clock}
}

func (h *Handler) docsService(c *gin.Context) services.DocsService {
	return services.DocsService{
		Bookings:  h.deps.Bookings,
		Vehicles:  h.deps.Vehicles,
		Payments:  h.deps.Payments,
		Clock:     h.deps.Clock,
		RequestID: middleware.GetRequestID(c),
	}
}
