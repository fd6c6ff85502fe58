package domain

import "strings"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Principal is the authenticated caller attached to each inbound operation.
type Principal struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// IsElevated reports whether the principal may act on other renters' records.
func (p Principal) IsElevated() bool {
	return strings.EqualFold(strings.TrimSpace(p.Role), RoleAdmin)
}

// CanActFor reports whether the principal owns ownerID or holds an elevated role.
func (p Principal) CanActFor(ownerID string) bool {
	if p.IsElevated() {
		return true
	}
	return p.ID != "" && p.ID == ownerID
}
