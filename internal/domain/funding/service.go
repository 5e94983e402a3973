package funding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/token"
)

// Service handles funding contributions.
type Service struct {
	repo     Repository
	ledger   Ledger
	catalog  Catalog
	refresh  Refresher
	activity ActivityLogger
	logger   *slog.Logger
}

// NewService creates a new funding service.
func NewService(repo Repository, ledger Ledger, catalog Catalog, refresh Refresher, activity ActivityLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:     repo,
		ledger:   ledger,
		catalog:  catalog,
		refresh:  refresh,
		activity: activity,
		logger:   logger,
	}
}

// Fund approves the transfer, funds the project on the ledger, persists the
// event and re-runs reconciliation.
func (s *Service) Fund(ctx context.Context, wallet, projectID string, amount int64) (*Event, error) {
	if !token.IsAddress(wallet) {
		return nil, fmt.Errorf("%w: wallet address %q", ErrInvalidInput, wallet)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	proj, ok := s.catalog.Find(projectID)
	if !ok {
		return nil, project.ErrProjectNotFound
	}

	if _, err := s.ledger.ApproveFundingTransfer(ctx, wallet, amount); err != nil {
		return nil, fmt.Errorf("approving transfer: %w", err)
	}
	receipt, err := s.ledger.FundProject(ctx, wallet, projectID, amount)
	if err != nil {
		return nil, fmt.Errorf("funding project: %w", err)
	}

	ev := &Event{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		ProjectTitle: proj.Metadata.Title,
		Funder:       wallet,
		Amount:       amount,
		TxHash:       receipt.TxHash,
		CreatedAt:    time.Now(),
	}
	// The transfer is on the ledger already; a local persistence failure is
	// reported but the ledger state stays authoritative.
	if err := s.repo.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("recording funding event %s: %w", receipt.TxHash, err)
	}

	details, _ := json.Marshal(map[string]any{"amount": amount, "tx_hash": receipt.TxHash, "event_id": ev.ID})
	if err := s.activity.LogActivity(ctx, &activity.ActivityEntry{
		WalletAddress: wallet,
		ProjectID:     projectID,
		ActivityType:  activity.TypeProjectFunded,
		Summary:       fmt.Sprintf("funded %q with %d", proj.Metadata.Title, amount),
		Details:       string(details),
	}); err != nil {
		s.logger.Warn("logging funding", "project_id", projectID, "error", err)
	}

	if err := s.refresh.Refresh(ctx); err != nil {
		s.logger.Warn("reconciliation after funding failed", "project_id", projectID, "error", err)
	}
	return ev, nil
}

// ForFunder lists the wallet's funding events, newest first.
func (s *Service) ForFunder(ctx context.Context, wallet string) ([]Event, error) {
	if wallet == "" {
		return []Event{}, nil
	}
	events, err := s.repo.ListByFunder(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("listing funding: %w", err)
	}
	return events, nil
}

// Progress sums recorded funding for a published project.
func (s *Service) Progress(ctx context.Context, projectID string) (*Progress, error) {
	proj, ok := s.catalog.Find(projectID)
	if !ok {
		return nil, project.ErrProjectNotFound
	}
	events, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing funding: %w", err)
	}

	p := &Progress{ProjectID: projectID, Goal: proj.FundingGoal}
	funders := map[string]struct{}{}
	for _, ev := range events {
		p.Raised += ev.Amount
		funders[ev.Funder] = struct{}{}
	}
	p.Funders = len(funders)
	if p.Goal > 0 {
		p.Fraction = float64(p.Raised) / float64(p.Goal)
	}
	return p, nil
}
