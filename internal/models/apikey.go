package models

import (
	"time"

	"github.com/google/uuid"
)

// KeyPrefixLen is the number of leading plaintext characters persisted for
// display. The prefix is never a lookup key.
const KeyPrefixLen = 12

// APIKey is a long-lived credential scoped to an organization and role.
// The plaintext key exists only transiently at creation and rotation time;
// only its SHA-256 digest and a short display prefix persist.
type APIKey struct {
	ID    uuid.UUID `json:"id"`
	OrgID uuid.UUID `json:"org_id"`
	Name  string    `json:"name"` // Friendly description (e.g. "CI importer")
	Role  Role      `json:"role"`

	KeyPrefix string `json:"key_prefix"` // First 12 chars of the plaintext, display only
	KeyHash   string `json:"-"`          // Hex SHA-256 of the full plaintext, lookup key

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	RevokedBy *string    `json:"revoked_by,omitempty"`

	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	LastUsedIP *string    `json:"last_used_ip,omitempty"`
}

// Usable reports whether the key may be trusted as a credential at the given
// instant. Both the revocation and the expiry check are mandatory.
func (k *APIKey) Usable(now time.Time) bool {
	return k.RevokedAt == nil && now.Before(k.ExpiresAt)
}
