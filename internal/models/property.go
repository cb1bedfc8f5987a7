package models

import (
	"time"

	"github.com/google/uuid"
)

// Property is a managed building or unit group belonging to an organization.
type Property struct {
	ID      uuid.UUID `json:"id"`
	OrgID   uuid.UUID `json:"org_id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
	Units   int       `json:"units"`
	Notes   string    `json:"notes"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
