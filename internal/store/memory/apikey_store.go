package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lodgepole-labs/lodgepole/internal/models"
	"github.com/lodgepole-labs/lodgepole/internal/store"
)

// APIKeyStore implements store.APIKeyStore using in-memory storage.
// This implementation is for testing and development only.
type APIKeyStore struct {
	mu sync.RWMutex

	keys   map[uuid.UUID]*models.APIKey // id -> key
	byHash map[string]uuid.UUID         // key_hash -> id
}

// NewAPIKeyStore creates a new in-memory API key store.
func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{
		keys:   make(map[uuid.UUID]*models.APIKey),
		byHash: make(map[string]uuid.UUID),
	}
}

// Insert stores a new API key. The hash must be unique.
func (s *APIKeyStore) Insert(ctx context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[key.KeyHash]; exists {
		return store.ErrAlreadyExists
	}

	clone := *key
	s.keys[key.ID] = &clone
	s.byHash[key.KeyHash] = key.ID
	return nil
}

// GetByHash retrieves a key by its digest. The digest is the only lookup key
// on the credential path.
func (s *APIKeyStore) GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byHash[keyHash]
	if !exists {
		return nil, store.ErrAPIKeyNotFound
	}

	clone := *s.keys[id]
	return &clone, nil
}

// GetByID retrieves a key by id within an organization.
func (s *APIKeyStore) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, exists := s.keys[id]
	if !exists || key.OrgID != orgID {
		return nil, store.ErrAPIKeyNotFound
	}

	clone := *key
	return &clone, nil
}

// ListByOrg returns all keys for an organization, including revoked ones.
func (s *APIKeyStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.APIKey
	for _, key := range s.keys {
		if key.OrgID != orgID {
			continue
		}
		clone := *key
		out = append(out, &clone)
	}

	return out, nil
}

// Revoke stamps a key as revoked. Revoking an already revoked key is a no-op
// error so rotation cannot double-revoke.
func (s *APIKeyStore) Revoke(ctx context.Context, orgID, id uuid.UUID, revokedBy string, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, exists := s.keys[id]
	if !exists || key.OrgID != orgID || key.RevokedAt != nil {
		return store.ErrAPIKeyNotFound
	}

	key.RevokedAt = &revokedAt
	key.RevokedBy = &revokedBy
	return nil
}

// UpdateLastUsed records when and from where a key was last presented.
func (s *APIKeyStore) UpdateLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time, usedIP string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, exists := s.keys[id]
	if !exists {
		return store.ErrAPIKeyNotFound
	}

	key.LastUsedAt = &usedAt
	key.LastUsedIP = &usedIP
	return nil
}
