package submission_test

import (
	"context"
	"testing"

	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/domain/submission"
	"github.com/rpggio/cairn/internal/ledger"
	"github.com/rpggio/cairn/internal/repository"
	"github.com/rpggio/cairn/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	owner    = "0x0000000000000000000000000000000000000a11"
	stranger = "0x0000000000000000000000000000000000000b0b"
	registry = "0x00000000000000000000000000000000000c0de0"
)

type catalog []project.Project

func (c catalog) Projects() []project.Project { return c }

func (c catalog) Find(id string) (project.Project, bool) {
	for _, p := range c {
		if p.ID == id {
			return p, true
		}
	}
	return project.Project{}, false
}

type fixture struct {
	ledger   *mocks.Ledger
	resolver *mocks.Resolver
	refresh  *mocks.Refresher
	activity *mocks.ActivityLogger
	svc      *submission.Service
}

func newFixture() *fixture {
	f := &fixture{
		ledger:   &mocks.Ledger{},
		resolver: &mocks.Resolver{},
		refresh:  &mocks.Refresher{},
		activity: &mocks.ActivityLogger{},
	}
	cat := catalog{{
		ID:       "bafyP",
		OwnerID:  owner,
		Metadata: project.Metadata{Title: "Arm"},
		Reproducibilities: []proof.Reproducibility{
			{ProofID: "bafyWaiting"},
			{ProofID: "bafyDone", Valid: true},
		},
	}}
	f.activity.On("LogActivity", mock.Anything, mock.Anything).Return(nil)
	f.svc = submission.NewService(f.ledger, f.resolver, cat, f.refresh, f.activity, registry, nil)
	return f
}

func TestSubmission_RegisterProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.resolver.On("Resolve", ctx, "bafyNew").Return([]byte(`{"title":"New","description":"d"}`), nil)
	mint := f.ledger.On("MintCertificate", ctx, owner, int64(1000), "ipfs://bafyNew").
		Return(ledger.MintResult{CertificateTypeID: "40", TokenID: "41"}, nil)
	approve := f.ledger.On("SetApprovalForAll", ctx, owner, registry, true).Return(ledger.Receipt{Status: 1}, nil).NotBefore(mint)
	f.ledger.On("RegisterProject", ctx, owner, ledger.Registration{ProjectAddress: "bafyNew", TokenID: "41", UnitPrice: 5, FundingGoal: 900}).
		Return(ledger.Receipt{TxHash: "0xreg", Status: 1}, nil).NotBefore(approve)
	f.refresh.On("Refresh", ctx).Return(nil).Once()

	res, err := f.svc.RegisterProject(ctx, owner, submission.RegisterRequest{
		MetadataAddress: "ipfs://bafyNew",
		UnitPrice:       5,
		FundingGoal:     900,
	})
	require.NoError(t, err)
	require.Equal(t, "bafyNew", res.ProjectID)
	require.Equal(t, "41", res.TokenID)
	require.Equal(t, "0xreg", res.TxHash)
	f.refresh.AssertExpectations(t)
}

func TestSubmission_RegisterRejectsBadMetadataBeforeWriting(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.resolver.On("Resolve", ctx, "bafyBad").Return([]byte(`{"title":"no description"}`), nil)

	_, err := f.svc.RegisterProject(ctx, owner, submission.RegisterRequest{MetadataAddress: "bafyBad"})
	require.ErrorIs(t, err, repository.ErrMalformed)
	f.ledger.AssertNotCalled(t, "MintCertificate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	_, err = f.svc.RegisterProject(ctx, owner, submission.RegisterRequest{MetadataAddress: "bafyP"})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestSubmission_RecordOutputsOwnerOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.resolver.On("Resolve", ctx, "bafyOut").Return([]byte(`{"description":"paper"}`), nil)
	f.ledger.On("RecordOutputs", ctx, owner, "bafyP", "bafyOut").Return(ledger.Receipt{TxHash: "0xout", Status: 1}, nil)
	f.refresh.On("Refresh", ctx).Return(repository.ErrUnreachable)

	_, err := f.svc.RecordOutputs(ctx, stranger, "bafyP", "bafyOut")
	require.ErrorIs(t, err, submission.ErrNotOwner)

	res, err := f.svc.RecordOutputs(ctx, owner, "bafyP", "bafyOut")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1, "a failed refresh does not undo the write")
}

func TestSubmission_RecordProof(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.resolver.On("Resolve", ctx, "bafyNewProof").Return([]byte(`{"description":"d","code_url":"c","output_url":"o"}`), nil)
	f.ledger.On("RecordProof", ctx, stranger, "bafyP", "bafyNewProof").Return(ledger.Receipt{TxHash: "0xp", Status: 1}, nil)
	f.refresh.On("Refresh", ctx).Return(nil)

	_, err := f.svc.RecordProof(ctx, stranger, "bafyP", "bafyNewProof")
	require.NoError(t, err)
	f.activity.AssertCalled(t, "LogActivity", ctx, mock.MatchedBy(func(e *activity.ActivityEntry) bool {
		return e.ActivityType == activity.TypeProofRecorded && e.ProjectID == "bafyP"
	}))

	_, err = f.svc.RecordProof(ctx, stranger, "bafyP", "bafyWaiting")
	require.ErrorIs(t, err, repository.ErrConflict)

	_, err = f.svc.RecordProof(ctx, stranger, "bafyNope", "bafyNewProof")
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestSubmission_DisputeProof(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.resolver.On("Resolve", ctx, "bafyWhy").Return([]byte(`{"reason":"outputs differ"}`), nil)
	f.ledger.On("DisputeProof", ctx, owner, "bafyWaiting", "bafyWhy").Return(ledger.Receipt{TxHash: "0xd", Status: 1}, nil)
	f.refresh.On("Refresh", ctx).Return(nil)

	_, err := f.svc.DisputeProof(ctx, owner, "bafyP", "bafyDone", "bafyWhy")
	require.ErrorIs(t, err, submission.ErrInvalidState)

	_, err = f.svc.DisputeProof(ctx, stranger, "bafyP", "bafyWaiting", "bafyWhy")
	require.ErrorIs(t, err, submission.ErrNotOwner)

	_, err = f.svc.DisputeProof(ctx, owner, "bafyP", "bafyUnknown", "bafyWhy")
	require.ErrorIs(t, err, project.ErrProofNotFound)

	res, err := f.svc.DisputeProof(ctx, owner, "bafyP", "bafyWaiting", "bafyWhy")
	require.NoError(t, err)
	require.Equal(t, "0xd", res.TxHash)
}

func TestSubmission_SetImpact(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.ledger.On("SetProjectImpact", ctx, owner, "bafyP", project.ImpactHigh).Return(ledger.Receipt{TxHash: "0xi", Status: 1}, nil)
	f.refresh.On("Refresh", ctx).Return(nil)

	_, err := f.svc.SetImpact(ctx, owner, submission.ImpactRequest{ProjectID: "bafyP", Impact: project.Impact(7)})
	require.ErrorIs(t, err, submission.ErrInvalidInput)

	_, err = f.svc.SetImpact(ctx, "bogus", submission.ImpactRequest{ProjectID: "bafyP", Impact: project.ImpactHigh})
	require.ErrorIs(t, err, submission.ErrInvalidInput)

	_, err = f.svc.SetImpact(ctx, owner, submission.ImpactRequest{ProjectID: "bafyP", Impact: project.ImpactHigh})
	require.NoError(t, err)
}
