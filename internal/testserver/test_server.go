package testserver

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rpggio/cairn/internal/app"
	"github.com/rpggio/cairn/internal/config"
	"github.com/rpggio/cairn/internal/sqlite"
	"github.com/stretchr/testify/require"
)

// Operator is the registry account approved on registration.
const Operator = "0x00000000000000000000000000000000000c0de0"

// TestServer runs the full application over HTTP against fake ledger and
// content endpoints.
type TestServer struct {
	Server  *httptest.Server
	App     *app.App
	DB      *sqlite.DB
	Ledger  *Ledger
	Gateway *Gateway
	Token   string
	Wallet  string
}

// Config returns a configuration tuned for fast tests against the given
// fakes.
func Config(ledgerURL, gatewayURL string) config.Config {
	cfg := config.Default()
	cfg.Auth.Enabled = true
	cfg.Ledger.Endpoint = ledgerURL
	cfg.Ledger.CallTimeout = 2 * time.Second
	cfg.Ledger.ReceiptPollInterval = 5 * time.Millisecond
	cfg.Ledger.ReceiptTimeout = time.Second
	cfg.Ledger.OperatorAddress = Operator
	cfg.Content.Gateway = gatewayURL
	cfg.Content.Timeout = 2 * time.Second
	return cfg
}

// New starts a server whose API key token authenticates as wallet.
func New(t *testing.T, token, wallet string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	node := NewLedger(t)
	gw := NewGateway(t)

	a := app.New(Config(node.URL(), gw.URL()), db, app.Options{Version: "test"})
	server := httptest.NewServer(a.Handler())

	ts := &TestServer{
		Server:  server,
		App:     a,
		DB:      db,
		Ledger:  node,
		Gateway: gw,
		Token:   token,
		Wallet:  wallet,
	}

	require.NoError(t, ts.AddAPIKey(token, wallet))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// AddAPIKey registers another bearer token.
func (ts *TestServer) AddAPIKey(token, wallet string) error {
	return ts.App.APIKeys.Create(context.Background(), token, wallet, "test")
}

// MCPURL is the streamable MCP endpoint.
func (ts *TestServer) MCPURL() string {
	return ts.Server.URL + "/mcp"
}
