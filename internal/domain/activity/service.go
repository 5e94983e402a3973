package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/cairn/internal/reconcile"
)

// Service handles activity log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// LogActivity logs an activity entry with the current timestamp if missing.
func (s *Service) LogActivity(ctx context.Context, entry *ActivityEntry) error {
	if entry == nil || entry.ActivityType == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// GetRecentActivity lists activity entries with filtering.
func (s *Service) GetRecentActivity(ctx context.Context, opts ListActivityOptions) ([]ActivityEntry, error) {
	return s.repo.List(ctx, opts)
}

type passDetails struct {
	Listed    int    `json:"listed"`
	Published int    `json:"published"`
	Dropped   int    `json:"dropped"`
	Stale     bool   `json:"stale,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

// RecordPass logs one entry per reconciliation pass.
func (s *Service) RecordPass(ctx context.Context, r reconcile.Report) error {
	details := passDetails{
		Listed:    r.Listed,
		Published: r.Published,
		Dropped:   r.Dropped,
		Stale:     r.Stale,
		ElapsedMS: r.Elapsed.Milliseconds(),
	}
	entry := &ActivityEntry{
		ActivityType: TypeReconcileCompleted,
		Pass:         r.Pass,
		Summary:      fmt.Sprintf("published %d projects (%d dropped)", r.Published, r.Dropped),
		CreatedAt:    r.Finished,
	}
	if r.Err != nil {
		entry.ActivityType = TypeReconcileFailed
		entry.Summary = "reconciliation failed"
		details.Error = r.Err.Error()
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encoding pass details: %w", err)
	}
	entry.Details = string(raw)
	return s.LogActivity(ctx, entry)
}
