package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/lodgepole-labs/lodgepole/internal/models"
	"github.com/lodgepole-labs/lodgepole/internal/store"
)

// MembershipStore implements store.MembershipStore using PostgreSQL.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore creates a new PostgreSQL-backed membership store.
// It shares the connection pool with other stores.
func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

const membershipColumns = `user_id, org_id, email, display_name, role, created_at, updated_at, deleted_at`

func scanMembership(row pgx.Row) (*models.Membership, error) {
	var m models.Membership
	var role string
	err := row.Scan(
		&m.UserID,
		&m.OrgID,
		&m.Email,
		&m.DisplayName,
		&role,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Role, _ = models.ParseRole(role)
	return &m, nil
}

// Get retrieves a membership by org and user id.
func (s *MembershipStore) Get(ctx context.Context, orgID uuid.UUID, userID string) (*models.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE org_id = $1 AND user_id = $2
	`

	m, err := scanMembership(s.pool.QueryRow(ctx, query, orgID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", mapPostgresError(err))
	}

	return m, nil
}

// ListByOrg returns all active memberships for an organization.
func (s *MembershipStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE org_id = $1 AND deleted_at IS NULL
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	return memberships, nil
}

// Upsert creates a membership or replaces its profile fields and role.
func (s *MembershipStore) Upsert(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO memberships (user_id, org_id, email, display_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (org_id, user_id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			role = EXCLUDED.role,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	_, err := s.pool.Exec(ctx, query, m.UserID, m.OrgID, m.Email, m.DisplayName, string(m.Role), now)
	if err != nil {
		return fmt.Errorf("failed to upsert membership: %w", mapPostgresError(err))
	}

	return nil
}

// UpdateRole changes the role of an active membership.
func (s *MembershipStore) UpdateRole(ctx context.Context, orgID uuid.UUID, userID string, role models.Role) error {
	query := `
		UPDATE memberships
		SET role = $3, updated_at = now()
		WHERE org_id = $1 AND user_id = $2 AND deleted_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query, orgID, userID, string(role))
	if err != nil {
		return fmt.Errorf("failed to update role: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrMembershipNotFound
	}

	log.Debug().
		Str("user_id", userID).
		Str("org_id", orgID.String()).
		Str("role", string(role)).
		Msg("Updated membership role")

	return nil
}

// SoftDelete deactivates a membership by stamping deleted_at.
func (s *MembershipStore) SoftDelete(ctx context.Context, orgID uuid.UUID, userID string) error {
	query := `
		UPDATE memberships
		SET deleted_at = now(), updated_at = now()
		WHERE org_id = $1 AND user_id = $2 AND deleted_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate membership: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrMembershipNotFound
	}

	return nil
}

// Restore reactivates a soft-deleted membership.
func (s *MembershipStore) Restore(ctx context.Context, orgID uuid.UUID, userID string) error {
	query := `
		UPDATE memberships
		SET deleted_at = NULL, updated_at = now()
		WHERE org_id = $1 AND user_id = $2 AND deleted_at IS NOT NULL
	`

	result, err := s.pool.Exec(ctx, query, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to restore membership: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrMembershipNotFound
	}

	return nil
}

// CountAdmins counts active admin memberships in the organization.
func (s *MembershipStore) CountAdmins(ctx context.Context, orgID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM memberships
		WHERE org_id = $1 AND role = 'admin' AND deleted_at IS NULL
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", mapPostgresError(err))
	}

	return count, nil
}
