package funding

import (
	"context"

	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/ledger"
)

// Repository persists funding events.
type Repository interface {
	Create(ctx context.Context, ev *Event) error
	ListByFunder(ctx context.Context, wallet string) ([]Event, error)
	ListByProject(ctx context.Context, projectID string) ([]Event, error)
}

// Ledger is the funding write path.
type Ledger interface {
	ApproveFundingTransfer(ctx context.Context, from string, amount int64) (ledger.Receipt, error)
	FundProject(ctx context.Context, from, projectID string, amount int64) (ledger.Receipt, error)
}

// Refresher runs a full reconciliation pass.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ActivityLogger records funding events.
type ActivityLogger interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}

// Catalog is the published project collection.
type Catalog = project.Catalog
