// Package app assembles cairn's services from configuration.
package app

import (
	"log/slog"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/cairn/internal/config"
	"github.com/rpggio/cairn/internal/content"
	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/funding"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/domain/session"
	"github.com/rpggio/cairn/internal/domain/submission"
	"github.com/rpggio/cairn/internal/domain/token"
	"github.com/rpggio/cairn/internal/ledger"
	"github.com/rpggio/cairn/internal/mcp"
	"github.com/rpggio/cairn/internal/metrics"
	"github.com/rpggio/cairn/internal/reconcile"
	"github.com/rpggio/cairn/internal/sqlite"
	"github.com/rpggio/cairn/internal/state"
	"github.com/rpggio/cairn/internal/transport"
)

// App holds the wired services.
type App struct {
	Config  config.Config
	Store   *state.Store
	Driver  *reconcile.Driver
	Metrics *metrics.Metrics
	APIKeys *sqlite.APIKeyRepository

	Projects    *project.Service
	Sessions    *session.Service
	Funding     *funding.Service
	Submissions *submission.Service
	Activity    *activity.Service

	MCP *sdkmcp.Server
}

// Options carries process-level dependencies.
type Options struct {
	// HTTPClient is shared by the ledger and content clients.
	HTTPClient *http.Client
	Version    string
	Logger     *slog.Logger
}

// New wires every service on top of an open, migrated database.
func New(cfg config.Config, db *sqlite.DB, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := metrics.New()

	ledgerClient := ledger.NewClient(cfg.Ledger.Endpoint, opts.HTTPClient, ledger.Options{
		CallTimeout:         cfg.Ledger.CallTimeout,
		ReceiptPollInterval: cfg.Ledger.ReceiptPollInterval,
		ReceiptTimeout:      cfg.Ledger.ReceiptTimeout,
	}, logger)

	var resolver content.Resolver = content.NewHTTPResolver(cfg.Content.Gateway, opts.HTTPClient, cfg.Content.Timeout, logger)
	if cfg.Content.Cache {
		resolver = content.NewCachedResolver(resolver, sqlite.NewDocumentCache(db), logger)
	}

	store := state.NewStore()
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)

	proofs := proof.NewAssembler(ledgerClient, resolver, cfg.Reconcile.ProofConcurrency, m, logger)
	tokens := token.NewResolver(ledgerClient, cfg.Reconcile.ProofConcurrency, m, logger)
	assembler := project.NewAssembler(resolver, ledgerClient, proofs, tokens, m, logger)

	driver := reconcile.NewDriver(ledgerClient, assembler, store, activitySvc, reconcile.Options{
		PageSize:    cfg.Reconcile.PageSize,
		MaxPages:    cfg.Reconcile.MaxPages,
		Concurrency: cfg.Reconcile.Concurrency,
	}, m, logger)

	a := &App{
		Config:      cfg,
		Store:       store,
		Driver:      driver,
		Metrics:     m,
		APIKeys:     sqlite.NewAPIKeyRepository(db),
		Projects:    project.NewService(store, logger),
		Sessions:    session.NewService(sqlite.NewSessionRepository(db), ledgerClient, driver, store, activitySvc, logger),
		Funding:     funding.NewService(sqlite.NewFundingRepository(db), ledgerClient, store, driver, activitySvc, logger),
		Submissions: submission.NewService(ledgerClient, resolver, store, driver, activitySvc, cfg.Ledger.OperatorAddress, logger),
		Activity:    activitySvc,
	}

	a.MCP = mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Projects:    a.Projects,
			Sessions:    a.Sessions,
			Funding:     a.Funding,
			Submissions: a.Submissions,
			Activity:    a.Activity,
			Reconciler:  a.Driver,
		},
		Resolver:      a.APIKeys,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		DefaultWallet: cfg.Session.DefaultWallet,
		Version:       opts.Version,
		Logger:        logger,
	})

	return a
}

// Handler returns the HTTP surface: MCP over streamable HTTP, metrics, health
// and the read-only project API.
func (a *App) Handler() http.Handler {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return a.MCP },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	routes := transport.Routes{
		MCP:      mcpHandler,
		Metrics:  a.Metrics.Handler(),
		Projects: a.Projects,
	}
	if a.Config.Auth.Enabled {
		routes.Auth = transport.AuthMiddleware(a.APIKeys)
	}
	return transport.NewServer(routes)
}
