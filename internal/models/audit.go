package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is the closed set of audited state changes.
type AuditAction string

const (
	AuditActionCreate     AuditAction = "create"
	AuditActionUpdate     AuditAction = "update"
	AuditActionSoftDelete AuditAction = "soft_delete"
	AuditActionRestore    AuditAction = "restore"
)

// AuditEntry is one row of the append-only audit log. Entries are immutable
// once written and are never updated or deleted.
//
// For update actions there is one entry per changed field, with FieldName set
// and the canonical-JSON old/new values. For create, the full new record is
// serialized into NewValue with FieldName nil. Soft delete and restore carry
// neither field nor values; the action tag distinguishes direction.
type AuditEntry struct {
	ID         uuid.UUID   `json:"id"`
	OrgID      uuid.UUID   `json:"org_id"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Action     AuditAction `json:"action"`

	FieldName *string `json:"field_name,omitempty"`
	OldValue  *string `json:"old_value,omitempty"`
	NewValue  *string `json:"new_value,omitempty"`

	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Source    string    `json:"source"` // A change source value, see audit.ClassifySource
}
