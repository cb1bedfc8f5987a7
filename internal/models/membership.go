package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership ties a user to an organization with a role. This is the row the
// last-admin guard counts over. Deactivation is a soft delete via DeletedAt
// and is reversible with a restore.
type Membership struct {
	UserID      string    `json:"user_id"` // Identity provider subject id
	OrgID       uuid.UUID `json:"org_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsActive reports whether the membership has not been deactivated.
func (m *Membership) IsActive() bool {
	return m.DeletedAt == nil
}
