package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/cairn/internal/domain/funding"
	"github.com/rpggio/cairn/internal/repository"
)

// FundingRepository implements funding.Repository for SQLite
type FundingRepository struct {
	db *DB
}

// NewFundingRepository creates a new FundingRepository
func NewFundingRepository(db *DB) *FundingRepository {
	return &FundingRepository{db: db}
}

// Create stores a funding event.
func (r *FundingRepository) Create(ctx context.Context, ev *funding.Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO funding_events (
			id, project_id, project_title, funder, amount, tx_hash, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID,
		ev.ProjectID,
		ev.ProjectTitle,
		ev.Funder,
		ev.Amount,
		ev.TxHash,
		ev.CreatedAt,
	)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: funding event %s", repository.ErrConflict, ev.ID)
	case isCheckViolation(err):
		return fmt.Errorf("%w: amount %d", repository.ErrInvalidInput, ev.Amount)
	case err != nil:
		return fmt.Errorf("failed to create funding event: %w", err)
	}
	return nil
}

// ListByFunder returns a wallet's contributions, newest first.
func (r *FundingRepository) ListByFunder(ctx context.Context, wallet string) ([]funding.Event, error) {
	return r.list(ctx, "lower(funder) = lower(?)", wallet)
}

// ListByProject returns a project's contributions, newest first.
func (r *FundingRepository) ListByProject(ctx context.Context, projectID string) ([]funding.Event, error) {
	return r.list(ctx, "project_id = ?", projectID)
}

func (r *FundingRepository) list(ctx context.Context, where string, arg any) ([]funding.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, project_title, funder, amount, tx_hash, created_at
		FROM funding_events
		WHERE `+where+`
		ORDER BY created_at DESC, id
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list funding events: %w", err)
	}
	defer rows.Close()

	events := []funding.Event{}
	for rows.Next() {
		var ev funding.Event
		if err := rows.Scan(
			&ev.ID,
			&ev.ProjectID,
			&ev.ProjectTitle,
			&ev.Funder,
			&ev.Amount,
			&ev.TxHash,
			&ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan funding event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funding rows: %w", err)
	}
	return events, nil
}
