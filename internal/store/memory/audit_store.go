package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lodgepole-labs/lodgepole/internal/models"
)

// AuditStore implements store.AuditStore using in-memory storage.
// This implementation is for testing and development only.
type AuditStore struct {
	mu sync.RWMutex

	entries []*models.AuditEntry
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Insert appends an audit entry.
func (s *AuditStore) Insert(ctx context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *entry
	s.entries = append(s.entries, &clone)
	return nil
}

// ListByEntity returns all entries for one entity in insertion order.
func (s *AuditStore) ListByEntity(ctx context.Context, orgID uuid.UUID, entityType, entityID string) ([]*models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.AuditEntry
	for _, e := range s.entries {
		if e.OrgID != orgID || e.EntityType != entityType || e.EntityID != entityID {
			continue
		}
		clone := *e
		out = append(out, &clone)
	}

	return out, nil
}

// All returns every entry in insertion order. Test helper.
func (s *AuditStore) All() []*models.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AuditEntry, 0, len(s.entries))
	for _, e := range s.entries {
		clone := *e
		out = append(out, &clone)
	}

	return out
}
