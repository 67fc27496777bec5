package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rpenna/planweave/internal/repository"
)

// APIKeyRepository manages the bearer tokens used for HTTP authentication.
// Only the SHA-256 digest of a token is stored; the plain token never
// touches the database.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new API key repository.
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create stores a new API key for a tenant.
func (r *APIKeyRepository) Create(ctx context.Context, token, tenantID, description string) error {
	if token == "" || tenantID == "" {
		return fmt.Errorf("create api key: token and tenant id are required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, tenant_id, created_at, description) VALUES (?, ?, ?, ?)`,
		HashKey(token), tenantID, time.Now().UTC(), description,
	)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// ResolveTenant returns the tenant owning the given bearer token and touches
// its last-used timestamp. Unknown tokens map to repository.ErrNotFound.
func (r *APIKeyRepository) ResolveTenant(ctx context.Context, token string) (string, error) {
	hash := HashKey(token)

	var tenantID string
	err := r.db.QueryRowContext(ctx,
		`SELECT tenant_id FROM api_keys WHERE key_hash = ?`, hash,
	).Scan(&tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().UTC(), hash,
	); err != nil {
		return "", fmt.Errorf("touch api key: %w", err)
	}
	return tenantID, nil
}

// HashKey returns the hex SHA-256 digest under which a token is stored.
func HashKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
