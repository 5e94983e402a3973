// Package content fetches documents from the content-addressed storage
// network by address.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rpggio/cairn/internal/repository"
)

// DefaultMaxBytes caps a single document.
const DefaultMaxBytes = 4 << 20

// Resolver fetches raw document bytes by content address.
type Resolver interface {
	Resolve(ctx context.Context, address string) ([]byte, error)
}

// NormalizeAddress strips scheme and path prefixes from a content address.
func NormalizeAddress(address string) string {
	a := strings.TrimSpace(address)
	a = strings.TrimPrefix(a, "ipfs://")
	a = strings.TrimPrefix(a, "/ipfs/")
	return strings.Trim(a, "/")
}

// HTTPResolver reads documents through an HTTP gateway.
type HTTPResolver struct {
	gateway  string
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	logger   *slog.Logger
}

// NewHTTPResolver creates a resolver for the given gateway base URL.
func NewHTTPResolver(gateway string, client *http.Client, timeout time.Duration, logger *slog.Logger) *HTTPResolver {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPResolver{
		gateway:  strings.TrimRight(gateway, "/"),
		client:   client,
		timeout:  timeout,
		maxBytes: DefaultMaxBytes,
		logger:   logger,
	}
}

// Resolve fetches the document at address. Gateway and network failures are
// ErrUnreachable; bodies that are not JSON or exceed the size cap are
// ErrMalformed. Nothing is retried.
func (r *HTTPResolver) Resolve(ctx context.Context, address string) ([]byte, error) {
	addr := NormalizeAddress(address)
	if addr == "" {
		return nil, fmt.Errorf("%w: empty content address", repository.ErrMalformed)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.gateway+"/ipfs/"+url.PathEscape(addr), nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", addr, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", repository.ErrUnreachable, addr, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: gateway rejected address %s", repository.ErrMalformed, addr)
	default:
		// 404 from a gateway usually means no provider was found in time.
		return nil, fmt.Errorf("%w: fetching %s: status %d", repository.ErrUnreachable, addr, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", repository.ErrUnreachable, addr, err)
	}
	if int64(len(body)) > r.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", repository.ErrMalformed, addr, r.maxBytes)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s is not a JSON document", repository.ErrMalformed, addr)
	}

	r.logger.Debug("content resolved", "address", addr, "bytes", len(body))
	return body, nil
}
