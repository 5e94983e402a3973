package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/cairn/internal/domain/activity"
)

// ActivityRepository implements activity.Repository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log inserts a new activity entry
func (r *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO activity_log (
			wallet_address, project_id, session_id,
			activity_type, summary, details, pass, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.WalletAddress,
		entry.ProjectID,
		entry.SessionID,
		entry.ActivityType,
		entry.Summary,
		entry.Details,
		int64(entry.Pass),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}
	entry.CreatedAt = createdAt

	return nil
}

// List returns activity entries matching the given filters, newest first.
func (r *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	query := `
		SELECT
			id, wallet_address, project_id, session_id,
			activity_type, summary, details, pass, created_at
		FROM activity_log
	`

	var args []any
	var conditions []string

	if opts.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, opts.ProjectID)
	}
	if opts.WalletAddress != "" {
		conditions = append(conditions, "lower(wallet_address) = lower(?)")
		args = append(args, opts.WalletAddress)
	}
	if opts.SessionID != nil {
		conditions = append(conditions, "session_id = ?")
		args = append(args, *opts.SessionID)
	}
	if opts.ActivityType != nil {
		conditions = append(conditions, "activity_type = ?")
		args = append(args, *opts.ActivityType)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	} else if opts.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := []activity.ActivityEntry{}
	for rows.Next() {
		var entry activity.ActivityEntry
		var sessionID sql.NullString
		var pass int64
		if err := rows.Scan(
			&entry.ID,
			&entry.WalletAddress,
			&entry.ProjectID,
			&sessionID,
			&entry.ActivityType,
			&entry.Summary,
			&entry.Details,
			&pass,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		if sessionID.Valid {
			entry.SessionID = &sessionID.String
		}
		entry.Pass = uint64(pass)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return entries, nil
}
