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

// APIKeyStore implements store.APIKeyStore using PostgreSQL.
type APIKeyStore struct {
	pool *pgxpool.Pool
}

// NewAPIKeyStore creates a new PostgreSQL-backed API key store.
// It shares the connection pool with other stores.
func NewAPIKeyStore(pool *pgxpool.Pool) *APIKeyStore {
	return &APIKeyStore{pool: pool}
}

const apiKeyColumns = `id, org_id, name, role, key_prefix, key_hash, created_by, created_at,
		expires_at, revoked_at, revoked_by, last_used_at, last_used_ip`

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var k models.APIKey
	var role string
	err := row.Scan(
		&k.ID,
		&k.OrgID,
		&k.Name,
		&role,
		&k.KeyPrefix,
		&k.KeyHash,
		&k.CreatedBy,
		&k.CreatedAt,
		&k.ExpiresAt,
		&k.RevokedAt,
		&k.RevokedBy,
		&k.LastUsedAt,
		&k.LastUsedIP,
	)
	if err != nil {
		return nil, err
	}
	k.Role, _ = models.ParseRole(role)
	return &k, nil
}

// Insert stores a new API key. The digest must be unique.
func (s *APIKeyStore) Insert(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (id, org_id, name, role, key_prefix, key_hash, created_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		key.ID,
		key.OrgID,
		key.Name,
		string(key.Role),
		key.KeyPrefix,
		key.KeyHash,
		key.CreatedBy,
		key.CreatedAt,
		key.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("key_id", key.ID.String()).
		Str("org_id", key.OrgID.String()).
		Str("prefix", key.KeyPrefix).
		Msg("Created API key")

	return nil
}

// GetByHash retrieves a key by its digest. The digest is the only lookup key
// on the credential path; the display prefix is never queried.
func (s *APIKeyStore) GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE key_hash = $1
	`

	k, err := scanAPIKey(s.pool.QueryRow(ctx, query, keyHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get api key by hash: %w", mapPostgresError(err))
	}

	return k, nil
}

// GetByID retrieves a key by id within an organization.
func (s *APIKeyStore) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE org_id = $1 AND id = $2
	`

	k, err := scanAPIKey(s.pool.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get api key: %w", mapPostgresError(err))
	}

	return k, nil
}

// ListByOrg returns all keys for an organization, including revoked ones.
func (s *APIKeyStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE org_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api keys: %w", err)
	}

	return keys, nil
}

// Revoke stamps a key as revoked. Already revoked keys are not restamped.
func (s *APIKeyStore) Revoke(ctx context.Context, orgID, id uuid.UUID, revokedBy string, revokedAt time.Time) error {
	query := `
		UPDATE api_keys
		SET revoked_at = $3, revoked_by = $4
		WHERE org_id = $1 AND id = $2 AND revoked_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query, orgID, id, revokedAt, revokedBy)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrAPIKeyNotFound
	}

	log.Info().
		Str("key_id", id.String()).
		Str("revoked_by", revokedBy).
		Msg("Revoked API key")

	return nil
}

// UpdateLastUsed records when and from where a key was last presented.
func (s *APIKeyStore) UpdateLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time, usedIP string) error {
	query := `
		UPDATE api_keys
		SET last_used_at = $2, last_used_ip = $3
		WHERE id = $1
	`

	result, err := s.pool.Exec(ctx, query, id, usedAt, usedIP)
	if err != nil {
		return fmt.Errorf("failed to update last_used_at: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrAPIKeyNotFound
	}

	return nil
}
