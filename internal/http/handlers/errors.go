package handlers

import (
	"net/http"

	"rental/internal/domain"
	"rental/internal/http/middleware"
	"rental/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsForbidden(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsAlreadyCancelled(err):
		respondError(c, http.StatusConflict, "already_cancelled", err.Error(), nil)
	case domain.IsAlreadyInitiated(err):
		respondError(c, http.StatusConflict, "already_initiated", err.Error(), nil)
	case domain.IsInvalidTransition(err):
		respondError(c, http.StatusConflict, "invalid_transition", err.Error(), nil)
	case domain.IsInvalidSignature(err):
		respondError(c, http.StatusBadRequest, "invalid_signature", "invalid signature", nil)
	case domain.IsProcessorUnavailable(err):
		respondError(c, http.StatusServiceUnavailable, "processor_unavailable", "payment processor unavailable, retry later", nil)
	default:
		utils.Entry(middleware.GetRequestID(c), "http", c.FullPath()).WithError(err).Error("unhandled error")
		respondError(c, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
