package handlers

import (
	"net/http"
	"strings"
	"time"

	"rental/internal/domain"
	"rental/internal/http/middleware"
	"rental/internal/utils"

	"github.com/gin-gonic/gin"
)

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "empty body", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid payload", err.Error())
		return false
	}
	return true
}

// principal returns the authenticated caller or aborts with 401.
func principal(c *gin.Context) (domain.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok || p.ID == "" {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return domain.Principal{}, false
	}
	return p, true
}

// parseDateParam parses an optional date; empty input yields nil.
func parseDateParam(field, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := utils.ParseDate(v)
	if err != nil {
		return nil, domain.ValidationError{Field: field, Msg: "expected YYYY-MM-DD or RFC3339", Err: err}
	}
	return &t, nil
}
