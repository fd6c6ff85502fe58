package handlers

import (
	"net/http"
	"strings"

	"rental/internal/domain/models"
	"rental/internal/http/middleware"
	"rental/internal/utils"

	"github.com/gin-gonic/gin"
)

type kycRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListUsers returns every account with its KYC status.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.deps.Users.List(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UpdateKYC records the verification decision for one renter. Only verified
// renters may book.
func (h *Handler) UpdateKYC(c *gin.Context) {
	var req kycRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	status := models.KYCStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if err := h.deps.Users.UpdateKYCStatus(c.Request.Context(), id, status); err != nil {
		RespondDomainError(c, err)
		return
	}
	utils.LogEvent(middleware.GetRequestID(c), "user", "kyc", "user_id="+id+" status="+string(status))
	c.JSON(http.StatusOK, gin.H{"id": id, "kycStatus": status})
}
