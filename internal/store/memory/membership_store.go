package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lodgepole-labs/lodgepole/internal/models"
	"github.com/lodgepole-labs/lodgepole/internal/store"
)

type membershipKey struct {
	orgID  uuid.UUID
	userID string
}

// MembershipStore implements store.MembershipStore using in-memory storage.
// This implementation is for testing and development only.
type MembershipStore struct {
	mu sync.RWMutex

	memberships map[membershipKey]*models.Membership
}

// NewMembershipStore creates a new in-memory membership store.
func NewMembershipStore() *MembershipStore {
	return &MembershipStore{
		memberships: make(map[membershipKey]*models.Membership),
	}
}

// Get retrieves a membership by org and user id.
func (s *MembershipStore) Get(ctx context.Context, orgID uuid.UUID, userID string) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.memberships[membershipKey{orgID, userID}]
	if !exists {
		return nil, store.ErrMembershipNotFound
	}

	clone := *m
	return &clone, nil
}

// ListByOrg returns all active memberships for an organization.
func (s *MembershipStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Membership
	for key, m := range s.memberships {
		if key.orgID != orgID || m.DeletedAt != nil {
			continue
		}
		clone := *m
		out = append(out, &clone)
	}

	return out, nil
}

// Upsert creates or replaces a membership.
func (s *MembershipStore) Upsert(ctx context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *m
	s.memberships[membershipKey{m.OrgID, m.UserID}] = &clone
	return nil
}

// UpdateRole changes the role of an active membership.
func (s *MembershipStore) UpdateRole(ctx context.Context, orgID uuid.UUID, userID string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.memberships[membershipKey{orgID, userID}]
	if !exists || m.DeletedAt != nil {
		return store.ErrMembershipNotFound
	}

	m.Role = role
	m.UpdatedAt = time.Now()
	return nil
}

// SoftDelete deactivates a membership by stamping DeletedAt.
func (s *MembershipStore) SoftDelete(ctx context.Context, orgID uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.memberships[membershipKey{orgID, userID}]
	if !exists || m.DeletedAt != nil {
		return store.ErrMembershipNotFound
	}

	now := time.Now()
	m.DeletedAt = &now
	m.UpdatedAt = now
	return nil
}

// Restore reactivates a soft-deleted membership.
func (s *MembershipStore) Restore(ctx context.Context, orgID uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.memberships[membershipKey{orgID, userID}]
	if !exists || m.DeletedAt == nil {
		return store.ErrMembershipNotFound
	}

	m.DeletedAt = nil
	m.UpdatedAt = time.Now()
	return nil
}

// CountAdmins counts active admin memberships in the organization.
func (s *MembershipStore) CountAdmins(ctx context.Context, orgID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key, m := range s.memberships {
		if key.orgID == orgID && m.DeletedAt == nil && m.Role == models.RoleAdmin {
			count++
		}
	}

	return count, nil
}
