package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/cairn/internal/repository"
)

// APIKeyRepository maps bearer tokens to wallet addresses. Only token hashes
// are stored.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// HashToken returns the stored form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create registers token for wallet.
func (r *APIKeyRepository) Create(ctx context.Context, token, wallet, description string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, wallet_address, created_at, description) VALUES (?, ?, ?, ?)`,
		HashToken(token), wallet, time.Now().UTC(), description,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: api key", repository.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// ResolveWallet returns the wallet bound to token and stamps its last use.
func (r *APIKeyRepository) ResolveWallet(ctx context.Context, token string) (string, error) {
	hash := HashToken(token)
	var wallet string
	err := r.db.QueryRowContext(ctx, `SELECT wallet_address FROM api_keys WHERE key_hash = ?`, hash).Scan(&wallet)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && wallet == "") {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().UTC(), hash); err != nil {
		return "", fmt.Errorf("failed to stamp api key: %w", err)
	}
	return wallet, nil
}
