package handlers

import (
	"io"
	"net/http"

	"rental/internal/services"
	"rental/internal/webhook"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type checkoutRequest struct {
	BookingID     string `json:"bookingId" binding:"required"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
	Token         string `json:"token"`
}

type confirmRequest struct {
	Reference string `json:"reference" binding:"required"`
}

func (h *Handler) Checkout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req checkoutRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.paymentService(c).InitiateCheckout(c.Request.Context(), services.CheckoutInput{
		BookingID: req.BookingID,
		Principal: p,
		Amount:    req.Amount,
		Method:    req.PaymentMethod,
		Token:     req.Token,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Reused {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (h *Handler) PaymentStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	pay, err := h.paymentService(c).GetPaymentStatus(c.Request.Context(), c.Param("bookingId"), p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": pay})
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req confirmRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	st, err := h.paymentService(c).ConfirmManually(c.Request.Context(), req.Reference, p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// PaymentWebhook receives processor notifications. It is not behind Auth;
// the signature header authenticates the body.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "unreadable body", nil)
		return
	}
	st, err := h.paymentService(c).HandleProviderNotification(c.Request.Context(), webhook.FromHeaders(c.GetHeader), raw)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": st.Outcome})
}
