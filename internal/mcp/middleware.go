package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/cairn/internal/domain/token"
	"github.com/rpggio/cairn/internal/transport"
)

type contextKey int

const (
	walletKey contextKey = iota
	sessionIDKey
)

// getWallet extracts the caller's wallet address from context.
func getWallet(ctx context.Context) string {
	v, _ := ctx.Value(walletKey).(string)
	return v
}

// getSessionID extracts session ID from context.
func getSessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// WalletResolver resolves a wallet address from a bearer token.
type WalletResolver interface {
	ResolveWallet(ctx context.Context, token string) (string, error)
}

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(resolver WalletResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			bearer, ok := transport.BearerToken(extra.Header.Get("Authorization"))
			if !ok {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			wallet, err := resolver.ResolveWallet(ctx, bearer)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}
			if !token.IsAddress(wallet) {
				return nil, fmt.Errorf("unauthorized: invalid bearer token")
			}

			ctx = context.WithValue(ctx, walletKey, wallet)
			return next(ctx, method, req)
		}
	}
}

// noAuthMiddleware injects the configured wallet when auth is disabled.
func noAuthMiddleware(defaultWallet string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx = context.WithValue(ctx, walletKey, defaultWallet)
			return next(ctx, method, req)
		}
	}
}

// sessionMiddleware extracts session ID from Mcp-Session-Id header (HTTP) or metadata (stdio).
func sessionMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			var sessionID string

			extra := req.GetExtra()
			if extra != nil && extra.Header != nil {
				sessionID = extra.Header.Get("Mcp-Session-Id")
			}

			// Some notifications carry nil params behind a non-nil interface.
			if sessionID == "" {
				if params := req.GetParams(); params != nil {
					func() {
						defer func() { recover() }()
						if meta := params.GetMeta(); meta != nil {
							if sid, ok := meta["session_id"].(string); ok {
								sessionID = sid
							}
						}
					}()
				}
			}

			if sessionID != "" {
				ctx = context.WithValue(ctx, sessionIDKey, sessionID)
			}

			return next(ctx, method, req)
		}
	}
}
