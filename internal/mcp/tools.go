package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/funding"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/domain/session"
	"github.com/rpggio/cairn/internal/domain/submission"
)

const defaultActivityLimit = 20

// registerTools adds every tool to server.
func registerTools(server *sdkmcp.Server, svc Services) {
	// Sessions
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "start_session",
		Description: "Start a session for the connected wallet as Scientist or Funder. Runs one reconciliation pass.",
	}, startSessionHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "close_session",
		Description: "Close a session owned by the connected wallet",
	}, closeSessionHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "reconcile",
		Description: "Rebuild the published project collection from the ledger and content storage",
	}, reconcileHandler(svc))

	// Reads
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List published projects in ledger order",
	}, listProjectsHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_project",
		Description: "Get a published project with its outputs, proofs of reproducibility and certificate ownership",
	}, getProjectHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "my_projects",
		Description: "List projects registered by the connected wallet and its certificate holdings",
	}, myProjectsHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_reproducibility",
		Description: "Get one proof of reproducibility and its derived state",
	}, getReproducibilityHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_funding",
		Description: "List the connected wallet's funding contributions, optionally with one project's progress",
	}, listFundingHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "recent_activity",
		Description: "List recent reconciliation and submission activity, newest first",
	}, recentActivityHandler(svc))

	// Writes
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "fund_project",
		Description: "Approve and transfer funds to a project from the connected wallet",
	}, fundProjectHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "register_project",
		Description: "Mint an impact certificate and register a project whose metadata document is already stored",
	}, registerProjectHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "record_outputs",
		Description: "Attach a stored outputs document to a project owned by the connected wallet",
	}, recordOutputsHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "record_proof",
		Description: "Record a stored proof of reproducibility document against a project",
	}, recordProofHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "dispute_proof",
		Description: "Dispute a Waiting proof on a project owned by the connected wallet",
	}, disputeProofHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "set_impact",
		Description: "Set a project's impact level",
	}, setImpactHandler(svc))
}

func requireWallet(ctx context.Context) (string, error) {
	wallet := getWallet(ctx)
	if wallet == "" {
		return "", toolError(errNoWallet)
	}
	return wallet, nil
}

func startSessionHandler(svc Services) sdkmcp.ToolHandlerFor[StartSessionInput, StartSessionResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in StartSessionInput) (*sdkmcp.CallToolResult, StartSessionResult, error) {
		wallet, err := requireWallet(ctx)
		if err != nil {
			return nil, StartSessionResult{}, err
		}
		role, err := parseRole(in.Role)
		if err != nil {
			return nil, StartSessionResult{}, toolError(err)
		}
		res, err := svc.Sessions.Start(ctx, wallet, role)
		if err != nil {
			return nil, StartSessionResult{}, toolError(err)
		}
		return nil, StartSessionResult{
			Session:  toSessionView(res.Session),
			Projects: res.Projects,
			Warnings: res.Warnings,
		}, nil
	}
}

func closeSessionHandler(svc Services) sdkmcp.ToolHandlerFor[CloseSessionInput, CloseSessionResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in CloseSessionInput) (*sdkmcp.CallToolResult, CloseSessionResult, error) {
		wallet, err := requireWallet(ctx)
		if err != nil {
			return nil, CloseSessionResult{}, err
		}
		id := in.SessionID
		if id == "" {
			id = getSessionID(ctx)
		}
		if err := svc.Sessions.Close(ctx, wallet, id); err != nil {
			return nil, CloseSessionResult{}, toolError(err)
		}
		return nil, CloseSessionResult{SessionID: id, Closed: true}, nil
	}
}

func reconcileHandler(svc Services) sdkmcp.ToolHandlerFor[ReconcileInput, ReconcileResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ReconcileInput) (*sdkmcp.CallToolResult, ReconcileResult, error) {
		return nil, toReconcileResult(svc.Reconciler.Run(ctx)), nil
	}
}

func listProjectsHandler(svc Services) sdkmcp.ToolHandlerFor[ListProjectsInput, ListProjectsResult] {
	return func(_ context.Context, _ *sdkmcp.CallToolRequest, in ListProjectsInput) (*sdkmcp.CallToolResult, ListProjectsResult, error) {
		opts := project.ListOptions{
			Domain: project.ResearchDomain(in.Domain),
			Tag:    in.Tag,
			Owner:  in.Owner,
			Limit:  in.Limit,
			Offset: in.Offset,
		}
		if in.State != "" {
			state, err := parseState(in.State)
			if err != nil {
				return nil, ListProjectsResult{}, toolError(err)
			}
			opts.State = state
		}
		projects := svc.Projects.List(opts)
		return nil, ListProjectsResult{Projects: toSummaryViews(projects), Total: len(projects)}, nil
	}
}

func getProjectHandler(svc Services) sdkmcp.ToolHandlerFor[GetProjectInput, ProjectView] {
	return func(_ context.Context, _ *sdkmcp.CallToolRequest, in GetProjectInput) (*sdkmcp.CallToolResult, ProjectView, error) {
		p, err := svc.Projects.Get(in.ID)
		if err != nil {
			return nil, ProjectView{}, toolError(err)
		}
		return nil, toProjectView(p), nil
	}
}

func myProjectsHandler(svc Services) sdkmcp.ToolHandlerFor[MyProjectsInput, MyProjectsResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ MyProjectsInput) (*sdkmcp.CallToolResult, MyProjectsResult, error) {
		wallet, err := requireWallet(ctx)
		if err != nil {
			return nil, MyProjectsResult{}, err
		}
		return nil, MyProjectsResult{
			Wallet:   wallet,
			Owned:    toSummaryViews(svc.Projects.OwnedBy(wallet)),
			Holdings: svc.Projects.Portfolio(wallet),
		}, nil
	}
}

func getReproducibilityHandler(svc Services) sdkmcp.ToolHandlerFor[GetReproducibilityInput, ProofView] {
	return func(_ context.Context, _ *sdkmcp.CallToolRequest, in GetReproducibilityInput) (*sdkmcp.CallToolResult, ProofView, error) {
		r, err := svc.Projects.Reproducibility(in.ProjectID, in.ProofID)
		if err != nil {
			return nil, ProofView{}, toolError(err)
		}
		return nil, toProofView(r), nil
	}
}

func listFundingHandler(svc Services) sdkmcp.ToolHandlerFor[ListFundingInput, ListFundingResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListFundingInput) (*sdkmcp.CallToolResult, ListFundingResult, error) {
		wallet, err := requireWallet(ctx)
		if err != nil {
			return nil, ListFundingResult{}, err
		}
		events, err := svc.Funding.ForFunder(ctx, wallet)
		if err != nil {
			return nil, ListFundingResult{}, toolError(err)
		}
		out := ListFundingResult{Events: toFundingViews(events)}
		if in.ProjectID != "" {
			progress, err := svc.Funding.Progress(ctx, in.ProjectID)
			if err != nil {
				return nil, ListFundingResult{}, toolError(err)
			}
			out.Progress = progress
		}
		return nil, out, nil
	}
}

func recentActivityHandler(svc Services) sdkmcp.ToolHandlerFor[RecentActivityInput, RecentActivityResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecentActivityInput) (*sdkmcp.CallToolResult, RecentActivityResult, error) {
		opts := activity.ListActivityOptions{
			ProjectID: in.ProjectID,
			Limit:     in.Limit,
		}
		if opts.Limit <= 0 {
			opts.Limit = defaultActivityLimit
		}
		if in.Mine {
			wallet, err := requireWallet(ctx)
			if err != nil {
				return nil, RecentActivityResult{}, err
			}
			opts.WalletAddress = wallet
		}
		if in.Type != "" {
			t := activity.ActivityType(in.Type)
			opts.ActivityType = &t
		}
		entries, err := svc.Activity.GetRecentActivity(ctx, opts)
		if err != nil {
			return nil, RecentActivityResult{}, toolError(err)
		}
		return nil, RecentActivityResult{Entries: toActivityViews(entries)}, nil
	}
}

func fundProjectHandler(svc Services) sdkmcp.ToolHandlerFor[FundProjectInput, FundingEventView] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in FundProjectInput) (*sdkmcp.CallToolResult, FundingEventView, error) {
		wallet, err := requireWallet(ctx)
		if err != nil {
			return nil, FundingEventView{}, err
		}
		ev, err := svc.Funding.Fund(ctx, wallet, in.ProjectID, in.Amount)
		if err != nil {
			return nil, FundingEventView{}, toolError(err)
		}
		return nil, toFundingViews([]funding.Event{*ev})[0], nil
	}
}

func registerProjectHandler(svc Services) sdkmcp.ToolHandlerFor[RegisterProjectInput, WriteResult] {
	return writeHandler(func(ctx context.Context, wallet string, in RegisterProjectInput) (*submission.Result, error) {
		return svc.Submissions.RegisterProject(ctx, wallet, submission.RegisterRequest{
			MetadataAddress: in.MetadataAddress,
			Units:           in.Units,
			UnitPrice:       in.UnitPrice,
			FundingGoal:     in.FundingGoal,
		})
	})
}

func recordOutputsHandler(svc Services) sdkmcp.ToolHandlerFor[RecordOutputsInput, WriteResult] {
	return writeHandler(func(ctx context.Context, wallet string, in RecordOutputsInput) (*submission.Result, error) {
		return svc.Submissions.RecordOutputs(ctx, wallet, in.ProjectID, in.OutputsAddress)
	})
}

func recordProofHandler(svc Services) sdkmcp.ToolHandlerFor[RecordProofInput, WriteResult] {
	return writeHandler(func(ctx context.Context, wallet string, in RecordProofInput) (*submission.Result, error) {
		return svc.Submissions.RecordProof(ctx, wallet, in.ProjectID, in.ProofAddress)
	})
}

func disputeProofHandler(svc Services) sdkmcp.ToolHandlerFor[DisputeProofInput, WriteResult] {
	return writeHandler(func(ctx context.Context, wallet string, in DisputeProofInput) (*submission.Result, error) {
		return svc.Submissions.DisputeProof(ctx, wallet, in.ProjectID, in.ProofID, in.DisputeAddress)
	})
}

func setImpactHandler(svc Services) sdkmcp.ToolHandlerFor[SetImpactInput, WriteResult] {
	return writeHandler(func(ctx context.Context, wallet string, in SetImpactInput) (*submission.Result, error) {
		impact, err := project.ParseImpact(in.Impact)
		if err != nil {
			return nil, err
		}
		return svc.Submissions.SetImpact(ctx, wallet, submission.ImpactRequest{ProjectID: in.ProjectID, Impact: impact})
	})
}

// writeHandler adapts a wallet-scoped submission to a tool handler.
func writeHandler[In any](submit func(context.Context, string, In) (*submission.Result, error)) sdkmcp.ToolHandlerFor[In, WriteResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, WriteResult, error) {
		wallet, err := requireWallet(ctx)
		if err != nil {
			return nil, WriteResult{}, err
		}
		res, err := submit(ctx, wallet, in)
		if err != nil {
			return nil, WriteResult{}, toolError(err)
		}
		return nil, toWriteResult(res), nil
	}
}

func parseRole(s string) (session.Role, error) {
	for _, role := range []session.Role{session.RoleScientist, session.RoleFunder} {
		if strings.EqualFold(strings.TrimSpace(s), string(role)) {
			return role, nil
		}
	}
	return "", fmt.Errorf("%w: role %q must be Scientist or Funder", session.ErrInvalidInput, s)
}

func parseState(s string) (proof.State, error) {
	for _, state := range []proof.State{proof.StateWaiting, proof.StateDisputed, proof.StateSuccess} {
		if strings.EqualFold(strings.TrimSpace(s), string(state)) {
			return state, nil
		}
	}
	return "", fmt.Errorf("%w: state %q must be Waiting, Disputed or Success", project.ErrInvalidInput, s)
}
