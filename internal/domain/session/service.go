package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/token"
	"github.com/rpggio/cairn/internal/repository"
)

// Service handles session operations.
type Service struct {
	sessions SessionRepository
	ledger   Ledger
	refresh  Refresher
	counter  Counter
	activity ActivityLogger
	logger   *slog.Logger
}

// NewService creates a new session service.
func NewService(
	sessions SessionRepository,
	ledger Ledger,
	refresh Refresher,
	counter Counter,
	activity ActivityLogger,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		sessions: sessions,
		ledger:   ledger,
		refresh:  refresh,
		counter:  counter,
		activity: activity,
		logger:   logger,
	}
}

// Start opens a session for wallet and runs one reconciliation pass. A failed
// pass does not fail the session; it is reported once as a warning.
func (s *Service) Start(ctx context.Context, wallet string, role Role) (*StartResult, error) {
	if !token.IsAddress(wallet) {
		return nil, fmt.Errorf("%w: wallet address %q", ErrInvalidInput, wallet)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, role)
	}

	now := time.Now()
	sess := &Session{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		Role:          role,
		Status:        StatusActive,
		CreatedAt:     now,
		LastActivity:  now,
	}

	var warnings []string
	allowance, err := s.ledger.GetUserPoRCount(ctx, wallet)
	if err != nil {
		s.logger.Warn("reading proof allowance", "wallet", wallet, "error", err)
	} else {
		sess.PoRAllowance = allowance
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	id := sess.ID
	if err := s.activity.LogActivity(ctx, &activity.ActivityEntry{
		WalletAddress: wallet,
		SessionID:     &id,
		ActivityType:  activity.TypeSessionStarted,
		Summary:       fmt.Sprintf("%s session started", role),
	}); err != nil {
		s.logger.Warn("logging session start", "session_id", id, "error", err)
	}

	if err := s.refresh.Refresh(ctx); err != nil {
		warnings = append(warnings, "reconciliation failed: "+err.Error())
	}

	return &StartResult{
		Session:  sess,
		Projects: s.counter.Len(),
		Warnings: warnings,
	}, nil
}

// Get fetches a session by ID.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

// Close ends a session owned by wallet.
func (s *Service) Close(ctx context.Context, wallet, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !token.SameAddress(sess.WalletAddress, wallet) {
		return ErrSessionNotFound
	}
	if sess.Status == StatusClosed {
		return ErrSessionClosed
	}
	if err := s.sessions.Close(ctx, id); err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	if err := s.activity.LogActivity(ctx, &activity.ActivityEntry{
		WalletAddress: wallet,
		SessionID:     &id,
		ActivityType:  activity.TypeSessionClosed,
		Summary:       "session closed",
	}); err != nil {
		s.logger.Warn("logging session close", "session_id", id, "error", err)
	}
	return nil
}

// Active lists a wallet's open sessions.
func (s *Service) Active(ctx context.Context, wallet string) ([]Session, error) {
	return s.sessions.ListActive(ctx, wallet)
}
