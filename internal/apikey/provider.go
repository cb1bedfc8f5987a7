// Package apikey mints, validates and rotates organization API keys. Keys
// are bearer credentials carrying their own org and role; only a SHA-256
// digest is stored, the plaintext is shown once at creation.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"

	"github.com/lodgepole-labs/lodgepole/internal/auth"
	"github.com/lodgepole-labs/lodgepole/internal/models"
	"github.com/lodgepole-labs/lodgepole/internal/store"
)

const (
	secretBytes = 18

	// DefaultTTL applies when a key is created without an explicit expiry.
	DefaultTTL = 90 * 24 * time.Hour

	// rotateMinTTL is the floor applied to a rotated key's lifetime so a
	// rotation never hands back a key that expires almost immediately.
	rotateMinTTL = 30 * 24 * time.Hour

	lastUsedTimeout = 5 * time.Second
)

// ErrInvalidKey covers every validation failure: unknown digest, revoked,
// expired. Callers never learn which.
var ErrInvalidKey = errors.New("invalid api key")

// Service implements API key lifecycle against an APIKeyStore.
type Service struct {
	keys store.APIKeyStore
	now  func() time.Time
}

var _ auth.APIKeyValidator = (*Service)(nil)

// NewService creates an API key service.
func NewService(keys store.APIKeyStore) *Service {
	return &Service{keys: keys, now: time.Now}
}

// hashKey returns the hex SHA-256 digest used for storage and lookup.
func hashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// mintKey generates a fresh plaintext key with the recognizable prefix.
func mintKey() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate key material: %w", err)
	}
	return auth.APIKeyTokenPrefix + base58.Encode(buf), nil
}

// Create mints a new key for an organization. The returned string is the
// only copy of the plaintext; the stored record keeps the digest and a short
// display prefix for listing.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, name string, role models.Role, createdBy string, ttl time.Duration) (*models.APIKey, string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	plaintext, err := mintKey()
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	key := &models.APIKey{
		ID:        uuid.New(),
		OrgID:     orgID,
		Name:      name,
		Role:      role,
		KeyPrefix: plaintext[:models.KeyPrefixLen],
		KeyHash:   hashKey(plaintext),
		CreatedBy: createdBy,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.keys.Insert(ctx, key); err != nil {
		return nil, "", err
	}

	log.Info().
		Str("key_id", key.ID.String()).
		Str("org_id", orgID.String()).
		Str("prefix", key.KeyPrefix).
		Msg("API key created")

	return key, plaintext, nil
}

// ValidateKey authenticates a plaintext key and builds the authorization
// context it represents. Lookup is by digest only, so validation cost does
// not depend on the number of keys. The last-used stamp is written in the
// background and never delays or fails the request.
func (s *Service) ValidateKey(ctx context.Context, plaintext, clientIP string) (*auth.Context, error) {
	key, err := s.keys.GetByHash(ctx, hashKey(plaintext))
	if err != nil {
		if !errors.Is(err, store.ErrAPIKeyNotFound) {
			log.Debug().Err(err).Msg("API key lookup failed")
		}
		return nil, ErrInvalidKey
	}

	if !key.Usable(s.now()) {
		return nil, ErrInvalidKey
	}

	go s.stampLastUsed(key.ID, clientIP)

	return &auth.Context{
		Principal: models.Principal{
			SubjectID:   "apikey:" + key.ID.String(),
			DisplayName: key.Name,
		},
		OrgID: key.OrgID,
		Role:  key.Role,
	}, nil
}

// stampLastUsed records usage on its own context so the write survives the
// originating request ending.
func (s *Service) stampLastUsed(id uuid.UUID, clientIP string) {
	ctx, cancel := context.WithTimeout(context.Background(), lastUsedTimeout)
	defer cancel()

	if err := s.keys.UpdateLastUsed(ctx, id, s.now(), clientIP); err != nil {
		log.Warn().Err(err).Str("key_id", id.String()).Msg("Failed to stamp API key last use")
	}
}

// Get returns one key's metadata.
func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*models.APIKey, error) {
	return s.keys.GetByID(ctx, orgID, id)
}

// List returns all keys for an organization, revoked and expired included.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error) {
	return s.keys.ListByOrg(ctx, orgID)
}

// Revoke permanently disables a key. Revocation is not reversible.
func (s *Service) Revoke(ctx context.Context, orgID, id uuid.UUID, revokedBy string) error {
	if err := s.keys.Revoke(ctx, orgID, id, revokedBy, s.now()); err != nil {
		return err
	}

	log.Info().
		Str("key_id", id.String()).
		Str("org_id", orgID.String()).
		Msg("API key revoked")

	return nil
}

// Rotate revokes a key and mints a replacement with the same name and role.
// The replacement lives at least rotateMinTTL, or as long as the old key had
// remaining, whichever is longer.
func (s *Service) Rotate(ctx context.Context, orgID, id uuid.UUID, rotatedBy string) (*models.APIKey, string, error) {
	old, err := s.keys.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, "", err
	}
	if !old.Usable(s.now()) {
		return nil, "", ErrInvalidKey
	}

	ttl := old.ExpiresAt.Sub(s.now())
	if ttl < rotateMinTTL {
		ttl = rotateMinTTL
	}

	replacement, plaintext, err := s.Create(ctx, orgID, old.Name, old.Role, rotatedBy, ttl)
	if err != nil {
		return nil, "", err
	}

	if err := s.Revoke(ctx, orgID, id, rotatedBy); err != nil {
		return nil, "", err
	}

	return replacement, plaintext, nil
}
