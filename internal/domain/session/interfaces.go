package session

import (
	"context"

	"github.com/rpggio/cairn/internal/domain/activity"
)

// SessionRepository provides persistence for sessions.
type SessionRepository interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Close(ctx context.Context, id string) error
	ListActive(ctx context.Context, wallet string) ([]Session, error)
}

// Ledger reads per-account allowances.
type Ledger interface {
	GetUserPoRCount(ctx context.Context, address string) (int64, error)
}

// Refresher runs a full reconciliation pass.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Counter reports how many projects are published.
type Counter interface {
	Len() int
}

// ActivityLogger records session events.
type ActivityLogger interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}
