package submission

import (
	"context"

	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/ledger"
)

// Ledger is the write surface used for submissions.
type Ledger interface {
	ledger.Writer
}

// Resolver fetches documents so they can be validated before a write.
type Resolver interface {
	Resolve(ctx context.Context, address string) ([]byte, error)
}

// Refresher runs a full reconciliation pass.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ActivityLogger records submissions.
type ActivityLogger interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}

// Catalog is the published project collection.
type Catalog = project.Catalog
