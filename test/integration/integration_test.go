package integration_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rpggio/cairn/internal/app"
	"github.com/rpggio/cairn/internal/config"
	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/domain/session"
	"github.com/rpggio/cairn/internal/domain/submission"
	"github.com/rpggio/cairn/internal/domain/token"
	"github.com/rpggio/cairn/internal/repository"
	"github.com/rpggio/cairn/internal/sqlite"
	"github.com/rpggio/cairn/internal/testserver"
	"github.com/stretchr/testify/require"
)

const (
	scientist = "0x5c1e000000000000000000000000000000000001"
	funder    = "0xf00d000000000000000000000000000000000002"
	verifier  = "0x7e71000000000000000000000000000000000003"
)

type testEnv struct {
	db      *sqlite.DB
	ledger  *testserver.Ledger
	gateway *testserver.Gateway
	app     *app.App
}

func newTestEnv(t *testing.T, opts ...func(*config.Config)) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	node := testserver.NewLedger(t)
	gw := testserver.NewGateway(t)
	cfg := testserver.Config(node.URL(), gw.URL())
	cfg.Reconcile.PageSize = 2 // force paging
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testEnv{
		db:      db,
		ledger:  node,
		gateway: gw,
		app:     app.New(cfg, db, app.Options{Version: "test"}),
	}
}

func (e *testEnv) metadata(t *testing.T, title string) string {
	t.Helper()
	return e.gateway.PutJSON(t, map[string]any{
		"title":       title,
		"description": title + " description",
		"created_at":  "2025-03-01",
		"domain":      "Robotics",
		"tags":        []string{"manipulation"},
	})
}

func (e *testEnv) proofDoc(t *testing.T, description string) string {
	t.Helper()
	return e.gateway.PutJSON(t, map[string]any{
		"description": description,
		"code_url":    "https://example.org/code",
		"output_url":  "https://example.org/output",
	})
}

// seed builds three projects: P with one good and one malformed proof, Q
// whose metadata cannot be fetched, and R with one unreadable token.
func (e *testEnv) seed(t *testing.T) (p, q, r string) {
	t.Helper()

	p = e.metadata(t, "Gripper")
	good := e.proofDoc(t, "reran the grasp benchmark")
	bad := e.gateway.PutJSON(t, map[string]any{"description": "no urls"})
	e.ledger.SetProof(good, proof.LedgerProof{Recorder: verifier, RecordedAt: 1_700_000_000}, false)
	e.ledger.SetProof(bad, proof.LedgerProof{Recorder: verifier, RecordedAt: 1_700_000_100}, false)
	e.ledger.AddProject(project.Summary{
		Creator:        scientist,
		ProjectAddress: p,
		ProofAddresses: []string{good, bad},
		FundingGoal:    5000,
	})

	q = "bafyUnreachableMetadata"
	e.gateway.FailWith(q, 504)
	e.ledger.AddProject(project.Summary{Creator: scientist, ProjectAddress: q})

	r = e.metadata(t, "Simulator")
	e.ledger.SetCertificateUnits("9000", 1000)
	e.ledger.SetToken("9001", scientist, 600)
	e.ledger.SetToken("9002", funder, 400)
	e.ledger.AddProject(project.Summary{
		Creator:           scientist,
		ProjectAddress:    r,
		CertificateTypeID: "9000",
		TokenIDs:          []string{"9001", "9002", "9003"},
	})
	return p, q, r
}

func TestIntegration_ReconcileScenarios(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p, q, r := env.seed(t)

	report := env.app.Driver.Run(ctx)
	require.NoError(t, report.Err)
	require.Equal(t, 3, report.Listed)
	require.Equal(t, 2, report.Published)
	require.Equal(t, 1, report.Dropped)

	// Q is silently absent; order follows the ledger.
	projects := env.app.Store.Projects()
	require.Len(t, projects, 2)
	require.Equal(t, p, projects[0].ID)
	require.Equal(t, r, projects[1].ID)
	_, found := env.app.Store.Find(q)
	require.False(t, found)

	// P keeps only the proof whose document validated.
	gripper := projects[0]
	require.Len(t, gripper.Reproducibilities, 1)
	require.Equal(t, proof.StateWaiting, gripper.Reproducibilities[0].State())
	require.Equal(t, "reran the grasp benchmark", gripper.Reproducibilities[0].Description)

	// R: the unknown token becomes the placeholder; its siblings are real.
	sim := projects[1]
	require.Len(t, sim.Ownership, 3)
	require.Equal(t, token.Ownership{TokenID: "9001", Owner: scientist, Units: 600}, sim.Ownership[0])
	require.Equal(t, token.Ownership{TokenID: "9002", Owner: funder, Units: 400}, sim.Ownership[1])
	require.True(t, sim.Ownership[2].IsPlaceholder())
	require.Equal(t, int64(1000), sim.CertificateUnits)

	holdings := env.app.Projects.Portfolio(funder)
	require.Len(t, holdings, 1)
	require.InDelta(t, 0.4, holdings[0].Fraction, 1e-9)
}

func TestIntegration_ReconcileIsDeterministic(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)

	require.NoError(t, env.app.Driver.Run(ctx).Err)
	first := env.app.Store.Projects()
	require.NoError(t, env.app.Driver.Run(ctx).Err)
	second := env.app.Store.Projects()

	require.Empty(t, cmp.Diff(first, second))
	require.Greater(t, env.app.Store.Current().Version, uint64(1))
}

func TestIntegration_ProofStates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)

	disputed := env.proofDoc(t, "disputed rerun")
	validAndDisputed := env.proofDoc(t, "validated rerun")
	env.ledger.SetProof(disputed, proof.LedgerProof{Recorder: verifier, RecordedAt: 1, Dispute: true}, false)
	env.ledger.SetProof(validAndDisputed, proof.LedgerProof{Recorder: verifier, RecordedAt: 2, Dispute: true}, true)
	env.ledger.AddProject(project.Summary{
		Creator:        scientist,
		ProjectAddress: env.metadata(t, "States"),
		ProofAddresses: []string{disputed, validAndDisputed},
	})

	require.NoError(t, env.app.Driver.Run(ctx).Err)
	projects := env.app.Projects.List(project.ListOptions{State: proof.StateDisputed})
	require.Len(t, projects, 1)

	states := projects[0].CountByState()
	require.Equal(t, 1, states[proof.StateDisputed])
	require.Equal(t, 1, states[proof.StateSuccess], "validity wins over a dispute")
}

func TestIntegration_LedgerOutageKeepsPreviousCollection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)

	require.NoError(t, env.app.Driver.Run(ctx).Err)
	before := env.app.Store.Current()

	env.ledger.Break("cairn_listProjects", true)
	report := env.app.Driver.Run(ctx)
	require.ErrorIs(t, report.Err, repository.ErrUnreachable)
	require.Same(t, before, env.app.Store.Current())

	entries, err := env.app.Activity.GetRecentActivity(ctx, activity.ListActivityOptions{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	require.Equal(t, activity.TypeReconcileFailed, entries[0].ActivityType)
}

func TestIntegration_SessionAndWriteWorkflow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p, _, _ := env.seed(t)
	env.ledger.SetPoRCount(scientist, 3)

	started, err := env.app.Sessions.Start(ctx, scientist, session.RoleScientist)
	require.NoError(t, err)
	require.Empty(t, started.Warnings)
	require.Equal(t, 2, started.Projects)
	require.Equal(t, int64(3), started.Session.PoRAllowance)

	// Register a new project from a stored metadata document.
	meta := env.metadata(t, "Arm")
	reg, err := env.app.Submissions.RegisterProject(ctx, scientist, submission.RegisterRequest{
		MetadataAddress: meta,
		UnitPrice:       10,
		FundingGoal:     1000,
	})
	require.NoError(t, err)
	require.Empty(t, reg.Warnings)
	require.NotEmpty(t, reg.TokenID)

	arm, err := env.app.Projects.Get(meta)
	require.NoError(t, err)
	require.True(t, arm.OwnedBy(scientist))
	require.Equal(t, int64(1000), arm.CertificateUnits)
	require.Equal(t, []token.Ownership{{TokenID: reg.TokenID, Owner: scientist, Units: 1000}}, arm.Ownership)

	// A verifier records a proof; the owner disputes it.
	proofAddr := env.proofDoc(t, "independent rerun")
	_, err = env.app.Submissions.RecordProof(ctx, verifier, meta, proofAddr)
	require.NoError(t, err)
	r, err := env.app.Projects.Reproducibility(meta, proofAddr)
	require.NoError(t, err)
	require.Equal(t, proof.StateWaiting, r.State())

	_, err = env.app.Submissions.DisputeProof(ctx, verifier, meta, proofAddr, env.gateway.PutJSON(t, map[string]any{"reason": "x"}))
	require.ErrorIs(t, err, submission.ErrNotOwner)

	dispute := env.gateway.PutJSON(t, map[string]any{"reason": "could not reproduce"})
	_, err = env.app.Submissions.DisputeProof(ctx, scientist, meta, proofAddr, dispute)
	require.NoError(t, err)
	r, err = env.app.Projects.Reproducibility(meta, proofAddr)
	require.NoError(t, err)
	require.Equal(t, proof.StateDisputed, r.State())

	// Funding is recorded locally and on the ledger.
	_, err = env.app.Funding.Fund(ctx, funder, p, 250)
	require.NoError(t, err)
	progress, err := env.app.Funding.Progress(ctx, p)
	require.NoError(t, err)
	require.Equal(t, int64(250), progress.Raised)
	require.Equal(t, int64(5000), progress.Goal)
	mine, err := env.app.Funding.ForFunder(ctx, "0x"+strings.ToUpper(funder[2:]))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "Gripper", mine[0].ProjectTitle)

	_, err = env.app.Submissions.SetImpact(ctx, scientist, submission.ImpactRequest{ProjectID: meta, Impact: project.ImpactHigh})
	require.NoError(t, err)
	arm, err = env.app.Projects.Get(meta)
	require.NoError(t, err)
	require.Equal(t, project.ImpactHigh, arm.Impact)

	entries, err := env.app.Activity.GetRecentActivity(ctx, activity.ListActivityOptions{ProjectID: meta, Limit: 10})
	require.NoError(t, err)
	types := map[activity.ActivityType]bool{}
	for _, e := range entries {
		types[e.ActivityType] = true
	}
	require.True(t, types[activity.TypeProjectRegistered])
	require.True(t, types[activity.TypeProofRecorded])
	require.True(t, types[activity.TypeProofDisputed])
	require.True(t, types[activity.TypeImpactSet])

	require.NoError(t, env.app.Sessions.Close(ctx, scientist, started.Session.ID))
	active, err := env.app.Sessions.Active(ctx, scientist)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestIntegration_ContentCacheSurvivesGatewayOutage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p, _, _ := env.seed(t)

	require.NoError(t, env.app.Driver.Run(ctx).Err)
	hits := env.gateway.Hits(p)
	require.Equal(t, 1, hits)

	env.gateway.FailWith(p, 502)
	require.NoError(t, env.app.Driver.Run(ctx).Err)
	_, found := env.app.Store.Find(p)
	require.True(t, found, "cached metadata keeps the project published")
	require.Equal(t, hits, env.gateway.Hits(p))
}

func TestIntegration_HungLookupDoesNotBlockPublication(t *testing.T) {
	ctx := context.Background()
	const timeout = 300 * time.Millisecond
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Content.Timeout = timeout
		cfg.Content.Cache = false
	})

	p := env.metadata(t, "Gripper")
	good := env.proofDoc(t, "reran the grasp benchmark")
	hungProof := "bafyHangingProof"
	env.gateway.Hang(hungProof)
	env.ledger.SetProof(good, proof.LedgerProof{Recorder: verifier, RecordedAt: 1_700_000_000}, true)
	env.ledger.SetProof(hungProof, proof.LedgerProof{Recorder: verifier, RecordedAt: 1_700_000_100}, false)
	env.ledger.AddProject(project.Summary{
		Creator:        scientist,
		ProjectAddress: p,
		ProofAddresses: []string{good, hungProof},
	})

	hungMeta := "bafyHangingMetadata"
	env.gateway.Hang(hungMeta)
	env.ledger.AddProject(project.Summary{Creator: scientist, ProjectAddress: hungMeta})

	start := time.Now()
	report := env.app.Driver.Run(ctx)
	elapsed := time.Since(start)

	require.NoError(t, report.Err)
	require.Less(t, elapsed, 3*timeout, "a hung document must be cut off by the content timeout")
	require.Equal(t, 2, report.Listed)
	require.Equal(t, 1, report.Published)
	require.Equal(t, 1, report.Dropped)

	got, ok := env.app.Store.Find(p)
	require.True(t, ok)
	require.Len(t, got.Reproducibilities, 1)
	require.Equal(t, good, got.Reproducibilities[0].ProofID)
	require.Equal(t, proof.StateSuccess, got.Reproducibilities[0].State())

	_, ok = env.app.Store.Find(hungMeta)
	require.False(t, ok)
	require.Positive(t, env.gateway.Hits(hungProof))
}
