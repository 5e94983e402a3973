package token

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rpggio/cairn/internal/fanout"
	"github.com/rpggio/cairn/internal/metrics"
)

// Ledger reads certificate token state.
type Ledger interface {
	GetTokenOwner(ctx context.Context, tokenID string) (string, error)
	GetTokenUnits(ctx context.Context, tokenID string) (int64, error)
}

// Resolver resolves owner and unit counts for a project's tokens.
type Resolver struct {
	ledger  Ledger
	width   int
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewResolver creates a resolver that looks up at most width tokens at once.
func NewResolver(ledger Ledger, width int, rec metrics.Recorder, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{ledger: ledger, width: width, metrics: metrics.OrNop(rec), logger: logger}
}

// Resolve returns one Ownership per token id, in input order. A token whose
// owner or units lookup fails is reported as Placeholder; siblings are never
// affected.
func (r *Resolver) Resolve(ctx context.Context, tokenIDs []string) []Ownership {
	results := fanout.Map(ctx, r.width, tokenIDs, r.resolveOne)

	out := make([]Ownership, len(tokenIDs))
	for i, res := range results {
		if res.Err != nil {
			r.metrics.ResolutionFailed(metrics.StageToken)
			r.logger.Warn("token ownership unavailable", "token_id", tokenIDs[i], "error", res.Err)
			out[i] = Placeholder(tokenIDs[i])
			continue
		}
		out[i] = res.Value
	}
	return out
}

func (r *Resolver) resolveOne(ctx context.Context, tokenID string) (Ownership, error) {
	var (
		owner string
		units int64
	)
	errs := fanout.Join(
		func() (err error) {
			owner, err = r.ledger.GetTokenOwner(ctx, tokenID)
			return err
		},
		func() (err error) {
			units, err = r.ledger.GetTokenUnits(ctx, tokenID)
			return err
		},
	)
	if err := errors.Join(errs...); err != nil {
		return Ownership{}, err
	}
	return Ownership{TokenID: tokenID, Owner: owner, Units: units}, nil
}
