package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lodgepole-labs/lodgepole/internal/models"
	"github.com/lodgepole-labs/lodgepole/internal/store"
)

// PropertyStore implements store.PropertyStore using in-memory storage.
// This implementation is for testing and development only.
type PropertyStore struct {
	mu sync.RWMutex

	properties map[uuid.UUID]*models.Property
}

// NewPropertyStore creates a new in-memory property store.
func NewPropertyStore() *PropertyStore {
	return &PropertyStore{
		properties: make(map[uuid.UUID]*models.Property),
	}
}

// Create stores a new property.
func (s *PropertyStore) Create(ctx context.Context, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.properties[p.ID]; exists {
		return store.ErrAlreadyExists
	}

	clone := *p
	s.properties[p.ID] = &clone
	return nil
}

// Get retrieves a property by id within an organization. Soft-deleted
// properties are still returned so restore flows can see them.
func (s *PropertyStore) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.properties[id]
	if !exists || p.OrgID != orgID {
		return nil, store.ErrPropertyNotFound
	}

	clone := *p
	return &clone, nil
}

// Update replaces the mutable fields of an active property.
func (s *PropertyStore) Update(ctx context.Context, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.properties[p.ID]
	if !exists || existing.OrgID != p.OrgID || existing.DeletedAt != nil {
		return store.ErrPropertyNotFound
	}

	clone := *p
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now()
	s.properties[p.ID] = &clone
	return nil
}

// SoftDelete marks a property inactive.
func (s *PropertyStore) SoftDelete(ctx context.Context, orgID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.properties[id]
	if !exists || p.OrgID != orgID || p.DeletedAt != nil {
		return store.ErrPropertyNotFound
	}

	now := time.Now()
	p.DeletedAt = &now
	p.UpdatedAt = now
	return nil
}

// Restore reactivates a soft-deleted property.
func (s *PropertyStore) Restore(ctx context.Context, orgID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.properties[id]
	if !exists || p.OrgID != orgID || p.DeletedAt == nil {
		return store.ErrPropertyNotFound
	}

	p.DeletedAt = nil
	p.UpdatedAt = time.Now()
	return nil
}

// ListByOrg returns all active properties for an organization.
func (s *PropertyStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Property
	for _, p := range s.properties {
		if p.OrgID != orgID || p.DeletedAt != nil {
			continue
		}
		clone := *p
		out = append(out, &clone)
	}

	return out, nil
}
