// Package store defines the persistence interfaces consumed by the
// authorization and audit subsystem, along with the sentinel errors the
// implementations map storage failures onto. Both the PostgreSQL and the
// in-memory implementations satisfy these interfaces.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lodgepole-labs/lodgepole/internal/models"
)

var (
	// ErrMembershipNotFound is returned when a membership does not exist or
	// is outside the caller's organization.
	ErrMembershipNotFound = errors.New("membership not found")

	// ErrAPIKeyNotFound is returned when no API key matches the given id or
	// digest. Callers on the credential path must not surface this
	// distinctly from other validation failures.
	ErrAPIKeyNotFound = errors.New("api key not found")

	// ErrPropertyNotFound is returned when a property does not exist or is
	// outside the caller's organization.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrAlreadyExists is returned on unique-constraint violations. Callers
	// may translate it into a domain-specific conflict.
	ErrAlreadyExists = errors.New("record already exists")
)

// MembershipStore persists org-scoped user memberships with soft delete.
type MembershipStore interface {
	Get(ctx context.Context, orgID uuid.UUID, userID string) (*models.Membership, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error)
	Upsert(ctx context.Context, m *models.Membership) error
	UpdateRole(ctx context.Context, orgID uuid.UUID, userID string, role models.Role) error
	SoftDelete(ctx context.Context, orgID uuid.UUID, userID string) error
	Restore(ctx context.Context, orgID uuid.UUID, userID string) error

	// CountAdmins counts active admins in the organization. Callers run it
	// before demotions and deactivations to enforce the last-admin guard.
	CountAdmins(ctx context.Context, orgID uuid.UUID) (int, error)
}

// APIKeyStore persists hashed API key credentials.
type APIKeyStore interface {
	Insert(ctx context.Context, key *models.APIKey) error
	GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.APIKey, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error)
	Revoke(ctx context.Context, orgID, id uuid.UUID, revokedBy string, revokedAt time.Time) error
	UpdateLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time, usedIP string) error
}

// AuditStore persists the append-only audit log. Insert is the only write;
// entries are never updated or deleted.
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditEntry) error
	ListByEntity(ctx context.Context, orgID uuid.UUID, entityType, entityID string) ([]*models.AuditEntry, error)
}

// PropertyStore persists properties with soft delete.
type PropertyStore interface {
	Create(ctx context.Context, p *models.Property) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Property, error)
	Update(ctx context.Context, p *models.Property) error
	SoftDelete(ctx context.Context, orgID, id uuid.UUID) error
	Restore(ctx context.Context, orgID, id uuid.UUID) error
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Property, error)
}
