package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lodgepole-labs/lodgepole/internal/models"
	"github.com/lodgepole-labs/lodgepole/internal/store"
)

// PropertyStore implements store.PropertyStore using PostgreSQL.
type PropertyStore struct {
	pool *pgxpool.Pool
}

// NewPropertyStore creates a new PostgreSQL-backed property store.
// It shares the connection pool with other stores.
func NewPropertyStore(pool *pgxpool.Pool) *PropertyStore {
	return &PropertyStore{pool: pool}
}

const propertyColumns = `id, org_id, name, address, units, notes, created_at, updated_at, deleted_at`

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID,
		&p.OrgID,
		&p.Name,
		&p.Address,
		&p.Units,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create stores a new property.
func (s *PropertyStore) Create(ctx context.Context, p *models.Property) error {
	query := `
		INSERT INTO properties (id, org_id, name, address, units, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.OrgID, p.Name, p.Address, p.Units, p.Notes, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", mapPostgresError(err))
	}

	return nil
}

// Get retrieves a property by id within an organization. Soft-deleted
// properties are still returned so restore flows can see them.
func (s *PropertyStore) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Property, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE org_id = $1 AND id = $2
	`

	p, err := scanProperty(s.pool.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("failed to get property: %w", mapPostgresError(err))
	}

	return p, nil
}

// Update replaces the mutable fields of an active property.
func (s *PropertyStore) Update(ctx context.Context, p *models.Property) error {
	query := `
		UPDATE properties
		SET name = $3, address = $4, units = $5, notes = $6, updated_at = now()
		WHERE org_id = $1 AND id = $2 AND deleted_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query, p.OrgID, p.ID, p.Name, p.Address, p.Units, p.Notes)
	if err != nil {
		return fmt.Errorf("failed to update property: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrPropertyNotFound
	}

	return nil
}

// SoftDelete marks a property inactive.
func (s *PropertyStore) SoftDelete(ctx context.Context, orgID, id uuid.UUID) error {
	query := `
		UPDATE properties
		SET deleted_at = now(), updated_at = now()
		WHERE org_id = $1 AND id = $2 AND deleted_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrPropertyNotFound
	}

	return nil
}

// Restore reactivates a soft-deleted property.
func (s *PropertyStore) Restore(ctx context.Context, orgID, id uuid.UUID) error {
	query := `
		UPDATE properties
		SET deleted_at = NULL, updated_at = now()
		WHERE org_id = $1 AND id = $2 AND deleted_at IS NOT NULL
	`

	result, err := s.pool.Exec(ctx, query, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to restore property: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrPropertyNotFound
	}

	return nil
}

// ListByOrg returns all active properties for an organization.
func (s *PropertyStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Property, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE org_id = $1 AND deleted_at IS NULL
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var properties []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}

	return properties, nil
}
