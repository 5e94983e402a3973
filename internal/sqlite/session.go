package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/cairn/internal/domain/session"
	"github.com/rpggio/cairn/internal/repository"
)

// SessionRepository implements session.SessionRepository for SQLite
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	query := `
		INSERT INTO sessions (
			id, wallet_address, role, status, por_allowance,
			created_at, last_activity, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		sess.ID,
		sess.WalletAddress,
		sess.Role,
		sess.Status,
		sess.PoRAllowance,
		sess.CreatedAt,
		sess.LastActivity,
		sess.ClosedAt,
	)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: session %s", repository.ErrConflict, sess.ID)
	case isCheckViolation(err):
		return fmt.Errorf("%w: session %s", repository.ErrInvalidInput, sess.ID)
	case err != nil:
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	query := `
		SELECT
			id, wallet_address, role, status, por_allowance,
			created_at, last_activity, closed_at
		FROM sessions
		WHERE id = ?
	`

	sess, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// Close marks a session closed.
func (r *SessionRepository) Close(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, closed_at = ?, last_activity = ? WHERE id = ?`,
		session.StatusClosed, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListActive returns a wallet's active sessions, newest first.
func (r *SessionRepository) ListActive(ctx context.Context, wallet string) ([]session.Session, error) {
	query := `
		SELECT
			id, wallet_address, role, status, por_allowance,
			created_at, last_activity, closed_at
		FROM sessions
		WHERE lower(wallet_address) = lower(?) AND status = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, wallet, session.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []session.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*session.Session, error) {
	var sess session.Session
	var closedAt sql.NullTime
	if err := row.Scan(
		&sess.ID,
		&sess.WalletAddress,
		&sess.Role,
		&sess.Status,
		&sess.PoRAllowance,
		&sess.CreatedAt,
		&sess.LastActivity,
		&closedAt,
	); err != nil {
		return nil, err
	}
	if closedAt.Valid {
		t := closedAt.Time
		sess.ClosedAt = &t
	}
	return &sess, nil
}
