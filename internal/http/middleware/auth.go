package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"rental/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userIDKey    = "userID"
	userRoleKey  = "userRole"
	principalKey = "principal"
)

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Auth requires a bearer token signed with secret (HS256) and stores the
// caller as a domain.Principal on the context.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		p, err := ParseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Set(principalKey, p)
		c.Set(userIDKey, p.ID)
		c.Set(userRoleKey, p.Role)
		c.Next()
	}
}

// ParseToken validates a token and extracts the principal.
func ParseToken(secret []byte, raw string) (domain.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Principal{}, err
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return domain.Principal{}, errors.New("token has no user_id")
	}
	role := strings.ToLower(strings.TrimSpace(claims.Role))
	if role == "" {
		role = domain.RoleUser
	}
	return domain.Principal{ID: claims.UserID, Role: role}, nil
}

// SignToken issues a token for p. Used by tests and local tooling.
func SignToken(secret []byte, p domain.Principal, claims jwt.RegisteredClaims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: p.ID, Role: p.Role, RegisteredClaims: claims})
	s, err := tok.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// GetPrincipal returns the caller set by Auth.
func GetPrincipal(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      msg,
		"code":       "unauthorized",
		"request_id": GetRequestID(c),
	})
}
