package content

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rpggio/cairn/internal/repository"
)

// Cache stores documents by address. Content addressing makes every entry
// immutable, so entries never expire.
type Cache interface {
	Get(ctx context.Context, address string) ([]byte, error)
	Put(ctx context.Context, address string, body []byte) error
}

// CachedResolver consults a Cache before the wrapped resolver. Cache faults
// are logged and otherwise ignored.
type CachedResolver struct {
	next   Resolver
	cache  Cache
	logger *slog.Logger
}

// NewCachedResolver wraps next with cache.
func NewCachedResolver(next Resolver, cache Cache, logger *slog.Logger) *CachedResolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CachedResolver{next: next, cache: cache, logger: logger}
}

// Resolve returns the cached document or fetches and stores it.
func (c *CachedResolver) Resolve(ctx context.Context, address string) ([]byte, error) {
	addr := NormalizeAddress(address)

	body, err := c.cache.Get(ctx, addr)
	switch {
	case err == nil:
		return body, nil
	case !errors.Is(err, repository.ErrNotFound):
		c.logger.Warn("content cache read failed", "address", addr, "error", err)
	}

	body, err = c.next.Resolve(ctx, addr)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(ctx, addr, body); err != nil {
		c.logger.Warn("content cache write failed", "address", addr, "error", err)
	}
	return body, nil
}
