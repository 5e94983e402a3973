package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/funding"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/domain/session"
	"github.com/rpggio/cairn/internal/domain/submission"
	"github.com/rpggio/cairn/internal/reconcile"
)

// ProjectService defines the published-collection reads needed by MCP.
type ProjectService interface {
	List(opts project.ListOptions) []project.Project
	Get(id string) (project.Project, error)
	OwnedBy(wallet string) []project.Project
	Reproducibility(projectID, proofID string) (proof.Reproducibility, error)
	Portfolio(wallet string) []project.Holding
}

// SessionService defines session operations needed by MCP.
type SessionService interface {
	Start(ctx context.Context, wallet string, role session.Role) (*session.StartResult, error)
	Close(ctx context.Context, wallet, id string) error
	Active(ctx context.Context, wallet string) ([]session.Session, error)
}

// FundingService defines funding operations needed by MCP.
type FundingService interface {
	Fund(ctx context.Context, wallet, projectID string, amount int64) (*funding.Event, error)
	ForFunder(ctx context.Context, wallet string) ([]funding.Event, error)
	Progress(ctx context.Context, projectID string) (*funding.Progress, error)
}

// SubmissionService defines ledger writes needed by MCP.
type SubmissionService interface {
	RegisterProject(ctx context.Context, wallet string, req submission.RegisterRequest) (*submission.Result, error)
	RecordOutputs(ctx context.Context, wallet, projectID, outputsAddress string) (*submission.Result, error)
	RecordProof(ctx context.Context, wallet, projectID, proofAddress string) (*submission.Result, error)
	DisputeProof(ctx context.Context, wallet, projectID, proofID, disputeAddress string) (*submission.Result, error)
	SetImpact(ctx context.Context, wallet string, req submission.ImpactRequest) (*submission.Result, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Reconciler runs a reconciliation pass on demand.
type Reconciler interface {
	Run(ctx context.Context) reconcile.Report
}

// Services contains all domain services needed by MCP.
type Services struct {
	Projects    ProjectService
	Sessions    SessionService
	Funding     FundingService
	Submissions SubmissionService
	Activity    ActivityService
	Reconciler  Reconciler
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      WalletResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	DefaultWallet string
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "cairn",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio is local-only; the configured wallet acts for every call.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(cfg.DefaultWallet))
	}
	server.AddReceivingMiddleware(sessionMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
