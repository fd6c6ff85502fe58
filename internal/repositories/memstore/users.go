package memstore

import (
	"context"
	"sort"

	"rental/internal/domain"
	"rental/internal/domain/models"
)

// SetVerified creates the user when missing and sets its KYC status.
func (s *Store) SetVerified(userID string, verified bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.ID = userID
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.KYCStatus = models.KYCNone
	if verified {
		u.KYCStatus = models.KYCVerified
	}
	s.users[userID] = u
}

func (s *Store) IsVerified(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false, domain.NotFoundError{Resource: "user"}
	}
	return u.KYCStatus == models.KYCVerified, nil
}

func (s *Store) List(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateKYCStatus(_ context.Context, userID string, status models.KYCStatus) error {
	if !status.Valid() {
		return domain.ValidationError{Field: "status", Msg: "must be one of none, pending, verified, rejected"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.NotFoundError{Resource: "user"}
	}
	u.KYCStatus = status
	s.users[userID] = u
	return nil
}
