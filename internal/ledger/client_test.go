package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/ledger"
	"github.com/rpggio/cairn/internal/repository"
	"github.com/rpggio/cairn/internal/testserver"
	"github.com/rpggio/cairn/internal/transport"
	"github.com/stretchr/testify/require"
)

const sender = "0x5e4de40000000000000000000000000000000001"

func newClient(t *testing.T) (*ledger.Client, *testserver.Ledger) {
	t.Helper()
	node := testserver.NewLedger(t)
	client := ledger.NewClient(node.URL(), nil, ledger.Options{
		CallTimeout:         time.Second,
		ReceiptPollInterval: 5 * time.Millisecond,
		ReceiptTimeout:      200 * time.Millisecond,
	}, nil)
	return client, node
}

func TestClient_ListProjectsPages(t *testing.T) {
	ctx := context.Background()
	client, node := newClient(t)
	for _, addr := range []string{"a", "b", "c"} {
		node.AddProject(project.Summary{ProjectAddress: addr})
	}

	page, err := client.ListProjects(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "b", page[0].ProjectAddress)
	require.Equal(t, int64(1), page[0].Sequence)

	past, err := client.ListProjects(ctx, 10, 5)
	require.NoError(t, err)
	require.NotNil(t, past)
	require.Empty(t, past)

	_, err = client.ListProjects(ctx, -1, 5)
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestClient_Reads(t *testing.T) {
	ctx := context.Background()
	client, node := newClient(t)
	node.SetProof("bafyP", proof.LedgerProof{Recorder: sender, RecordedAt: 99, Dispute: true}, true)
	node.SetToken("11", sender, 250)
	node.SetCertificateUnits("10", 1000)
	node.SetPoRCount(sender, 3)

	p, err := client.GetProof(ctx, "bafyP")
	require.NoError(t, err)
	require.Equal(t, int64(99), p.RecordedAt)
	require.True(t, p.Dispute)

	valid, err := client.IsProofValid(ctx, "bafyP")
	require.NoError(t, err)
	require.True(t, valid)

	owner, err := client.GetTokenOwner(ctx, "11")
	require.NoError(t, err)
	require.Equal(t, sender, owner)

	units, err := client.GetTokenUnits(ctx, "11")
	require.NoError(t, err)
	require.Equal(t, int64(250), units)

	total, err := client.GetCertificateUnits(ctx, "10")
	require.NoError(t, err)
	require.Equal(t, int64(1000), total)

	count, err := client.GetUserPoRCount(ctx, sender)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestClient_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	client, node := newClient(t)

	_, err := client.GetProof(ctx, "never-recorded")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = client.GetTokenUnits(ctx, "burned")
	require.ErrorIs(t, err, repository.ErrNotFound)

	node.Break("cairn_listProjects", true)
	_, err = client.ListProjects(ctx, 0, 10)
	require.ErrorIs(t, err, repository.ErrUnreachable)

	node.Fail("cairn_isProofValid", transport.ErrInternal)
	_, err = client.IsProofValid(ctx, "x")
	require.ErrorIs(t, err, repository.ErrUnreachable)
}

func TestClient_MintThenRegister(t *testing.T) {
	ctx := context.Background()
	client, node := newClient(t)
	node.PendingPolls = 2

	mint, err := client.MintCertificate(ctx, sender, 1000, "ipfs://bafyMeta")
	require.NoError(t, err)
	require.True(t, mint.Succeeded())
	require.NotEmpty(t, mint.TxHash)
	require.Equal(t, "1048576", mint.CertificateTypeID)
	require.Equal(t, "1048577", mint.TokenID)
	require.GreaterOrEqual(t, node.Calls("cairn_getTransactionReceipt"), 3)

	_, err = client.RegisterProject(ctx, sender, ledger.Registration{
		ProjectAddress: "bafyMeta",
		TokenID:        mint.TokenID,
		UnitPrice:      10,
		FundingGoal:    5000,
	})
	require.NoError(t, err)

	s, ok := node.Summary("bafyMeta")
	require.True(t, ok)
	require.Equal(t, sender, s.Creator)
	require.Equal(t, []string{mint.TokenID}, s.TokenIDs)
	require.Equal(t, mint.CertificateTypeID, s.CertificateTypeID)
}

func TestClient_WriteRejections(t *testing.T) {
	ctx := context.Background()
	client, node := newClient(t)
	node.AddProject(project.Summary{ProjectAddress: "bafyMeta"})

	node.Revert("cairn_fundProject", true)
	_, err := client.FundProject(ctx, sender, "bafyMeta", 100)
	require.ErrorIs(t, err, repository.ErrWriteRejected)

	_, err = client.RecordProof(ctx, sender, "bafyMeta", "bafyP")
	require.NoError(t, err)
	_, err = client.RecordProof(ctx, sender, "bafyMeta", "bafyP")
	require.ErrorIs(t, err, repository.ErrWriteRejected)

	_, err = client.RecordOutputs(ctx, "", "bafyMeta", "bafyOut")
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = client.SetProjectImpact(ctx, sender, "bafyMeta", project.Impact(9))
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestClient_UnconfirmedWriteIsRejected(t *testing.T) {
	ctx := context.Background()
	client, node := newClient(t)
	node.AddProject(project.Summary{ProjectAddress: "bafyMeta"})
	node.PendingPolls = 1_000_000

	_, err := client.SetProjectImpact(ctx, sender, "bafyMeta", project.ImpactHigh)
	require.ErrorIs(t, err, repository.ErrWriteRejected)
}

func TestClient_DisputeAndImpactMutateLedger(t *testing.T) {
	ctx := context.Background()
	client, node := newClient(t)
	node.AddProject(project.Summary{ProjectAddress: "bafyMeta"})

	_, err := client.RecordProof(ctx, sender, "bafyMeta", "bafyP")
	require.NoError(t, err)
	_, err = client.DisputeProof(ctx, sender, "bafyP", "bafyWhy")
	require.NoError(t, err)
	_, err = client.SetProjectImpact(ctx, sender, "bafyMeta", project.ImpactMedium)
	require.NoError(t, err)
	_, err = client.RecordOutputs(ctx, sender, "bafyMeta", "bafyOut")
	require.NoError(t, err)

	p, err := client.GetProof(ctx, "bafyP")
	require.NoError(t, err)
	require.True(t, p.Dispute)
	require.Equal(t, "bafyWhy", p.DisputeAddress)

	s, _ := node.Summary("bafyMeta")
	require.Equal(t, project.ImpactMedium, s.Impact)
	require.Equal(t, "bafyOut", s.OutputsAddress)
	require.Equal(t, []string{"bafyP"}, s.ProofAddresses)
}
