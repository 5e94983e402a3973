package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/cairn/internal/repository"
)

// DocumentCache implements content.Cache for SQLite. Addresses are content
// hashes, so a stored body is never replaced.
type DocumentCache struct {
	db *DB
}

// NewDocumentCache creates a new DocumentCache
func NewDocumentCache(db *DB) *DocumentCache {
	return &DocumentCache{db: db}
}

// Get returns the stored body or repository.ErrNotFound.
func (c *DocumentCache) Get(ctx context.Context, address string) ([]byte, error) {
	var body []byte
	err := c.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE address = ?`, address).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", address, err)
	}
	return body, nil
}

// Put stores body under address if it is not already present.
func (c *DocumentCache) Put(ctx context.Context, address string, body []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO documents (address, body, fetched_at) VALUES (?, ?, ?)`,
		address, body, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store document %s: %w", address, err)
	}
	return nil
}
