package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rpggio/cairn/internal/domain/token"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type walletKey struct{}

// WalletResolver resolves a wallet address from a bearer token.
type WalletResolver interface {
	ResolveWallet(ctx context.Context, token string) (string, error)
}

// WalletFromContext returns the authenticated wallet, if present.
func WalletFromContext(ctx context.Context) (string, bool) {
	wallet, ok := ctx.Value(walletKey{}).(string)
	return wallet, ok
}

// AuthMiddleware enforces bearer token authentication. The token must map to
// a well-formed wallet address.
func AuthMiddleware(resolver WalletResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}

			wallet, err := resolver.ResolveWallet(r.Context(), bearer)
			if err != nil || !token.IsAddress(wallet) {
				unauthorized(w, "invalid bearer token")
				return
			}

			ctx := context.WithValue(r.Context(), walletKey{}, wallet)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="cairn"`)
	http.Error(w, msg, http.StatusUnauthorized)
}
