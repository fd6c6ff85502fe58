package handlers

import (
	"net/http"
	"strings"

	"rental/internal/domain"
	"rental/internal/domain/models"
	"rental/internal/services"
	"rental/internal/utils"

	"github.com/gin-gonic/gin"
)

type createBookingRequest struct {
	VehicleID   string `json:"vehicleId" binding:"required"`
	StartDate   string `json:"startDate" binding:"required"`
	EndDate     string `json:"endDate" binding:"required"`
	TotalAmount int64  `json:"totalAmount"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type transitionRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// CreateBooking reserves a vehicle for the caller. The total is priced on
// the server from the vehicle's day rate.
func (h *Handler) CreateBooking(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "startDate", Msg: "invalid date", Err: err})
		return
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "endDate", Msg: "invalid date", Err: err})
		return
	}

	ctx := c.Request.Context()
	vehicle, err := h.deps.Vehicles.GetByID(ctx, strings.TrimSpace(req.VehicleID), h.deps.Clock.Now())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	amount := utils.ComputeRentalTotal(start, end, vehicle.PricePerDay)
	if req.TotalAmount != 0 && req.TotalAmount != amount {
		RespondDomainError(c, domain.ValidationError{Field: "totalAmount", Msg: "does not match the vehicle day rate"})
		return
	}

	verified, err := h.deps.Users.IsVerified(ctx, p.ID)
	if err != nil && !domain.IsNotFound(err) {
		RespondDomainError(c, err)
		return
	}

	b, err := h.bookingService(c).CreateBooking(ctx, services.CreateBookingInput{
		VehicleID:      vehicle.ID,
		RenterID:       p.ID,
		Start:          start,
		End:            end,
		Amount:         amount,
		RenterVerified: verified,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) ListMyBookings(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	list, err := h.bookingService(c).ListBookingsForRenter(c.Request.Context(), p.ID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

func (h *Handler) GetBooking(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	b, err := h.bookingService(c).GetBooking(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) CancelBooking(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	b, err := h.cancellationService(c).Cancel(c.Request.Context(), c.Param("id"), p, req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	var refund int64
	if b.RefundAmount != nil {
		refund = *b.RefundAmount
	}
	c.JSON(http.StatusOK, gin.H{"booking": b, "refundAmount": refund})
}

// GetBookingReceipt returns the booking receipt PDF (inline).
func (h *Handler) GetBookingReceipt(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	pdf, filename, err := h.docsService(c).GenerateReceipt(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// TransitionBooking lets an admin move a booking along its lifecycle, e.g.
// active to completed.
func (h *Handler) TransitionBooking(c *gin.Context) {
	var req transitionRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	from := models.BookingStatus(strings.ToLower(strings.TrimSpace(req.From)))
	to := models.BookingStatus(strings.ToLower(strings.TrimSpace(req.To)))
	if !from.Valid() || !to.Valid() {
		RespondDomainError(c, domain.ValidationError{Field: "status", Msg: "unknown booking status"})
		return
	}
	id := c.Param("id")
	if err := h.bookingService(c).TransitionStatus(c.Request.Context(), id, from, to); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": to})
}

// RunSweep runs one expiry sweep on demand.
func (h *Handler) RunSweep(c *gin.Context) {
	res, err := h.expiryService(c).Sweep(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
