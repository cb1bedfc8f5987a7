package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lodgepole-labs/lodgepole/internal/models"
)

// AuditStore implements store.AuditStore using PostgreSQL.
// The audit_log table is append-only; this store issues no updates or deletes.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new PostgreSQL-backed audit store.
// It shares the connection pool with other stores.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Insert appends an audit entry.
func (s *AuditStore) Insert(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, org_id, entity_type, entity_id, action,
			field_name, old_value, new_value, changed_by, changed_at, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		entry.ID,
		entry.OrgID,
		entry.EntityType,
		entry.EntityID,
		string(entry.Action),
		entry.FieldName,
		entry.OldValue,
		entry.NewValue,
		entry.ChangedBy,
		entry.ChangedAt,
		entry.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", mapPostgresError(err))
	}

	return nil
}

// ListByEntity returns all entries for one entity ordered by change time.
func (s *AuditStore) ListByEntity(ctx context.Context, orgID uuid.UUID, entityType, entityID string) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, org_id, entity_type, entity_id, action,
			field_name, old_value, new_value, changed_by, changed_at, source
		FROM audit_log
		WHERE org_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY changed_at
	`

	rows, err := s.pool.Query(ctx, query, orgID, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var action string
		err := rows.Scan(
			&e.ID,
			&e.OrgID,
			&e.EntityType,
			&e.EntityID,
			&action,
			&e.FieldName,
			&e.OldValue,
			&e.NewValue,
			&e.ChangedBy,
			&e.ChangedAt,
			&e.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Action = models.AuditAction(action)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
