// Package ledger is the typed gateway to the on-chain registry: projects,
// proofs, funding and fractional certificate tokens.
package ledger

import (
	"context"

	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
)

// Receipt is the confirmation of a mined transaction.
type Receipt struct {
	TxHash      string  `json:"tx_hash"`
	BlockNumber uint64  `json:"block_number"`
	Status      uint64  `json:"status"`
	Pending     bool    `json:"pending,omitempty"`
	Events      []Event `json:"events,omitempty"`
}

// Succeeded reports whether the transaction was mined without reverting.
func (r Receipt) Succeeded() bool {
	return !r.Pending && r.Status == 1
}

// Event is a decoded log entry.
type Event struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args"`
}

// MintResult identifies a freshly minted certificate.
type MintResult struct {
	Receipt
	CertificateTypeID string `json:"certificate_type_id"`
	TokenID           string `json:"token_id"`
}

// Registration describes a project registration.
type Registration struct {
	ProjectAddress string `json:"project_address"`
	TokenID        string `json:"token_id"`
	UnitPrice      int64  `json:"unit_price"`
	FundingGoal    int64  `json:"funding_goal"`
}

// Reader is the read surface. Reads query the ledger's finalized state.
type Reader interface {
	ListProjects(ctx context.Context, offset, limit int) ([]project.Summary, error)
	GetProof(ctx context.Context, address string) (proof.LedgerProof, error)
	IsProofValid(ctx context.Context, address string) (bool, error)
	GetTokenOwner(ctx context.Context, tokenID string) (string, error)
	GetTokenUnits(ctx context.Context, tokenID string) (int64, error)
	GetCertificateUnits(ctx context.Context, certificateTypeID string) (int64, error)
	GetUserPoRCount(ctx context.Context, address string) (int64, error)
}

// Writer submits transactions from the given account and blocks until they
// are mined. A reverted or unconfirmed transaction is ErrWriteRejected.
type Writer interface {
	RegisterProject(ctx context.Context, from string, reg Registration) (Receipt, error)
	RecordOutputs(ctx context.Context, from, projectID, outputsAddress string) (Receipt, error)
	RecordProof(ctx context.Context, from, projectID, proofAddress string) (Receipt, error)
	DisputeProof(ctx context.Context, from, proofAddress, disputeAddress string) (Receipt, error)
	FundProject(ctx context.Context, from, projectID string, amount int64) (Receipt, error)
	MintCertificate(ctx context.Context, from string, units int64, uri string) (MintResult, error)
	SetApprovalForAll(ctx context.Context, from, operator string, approved bool) (Receipt, error)
	ApproveFundingTransfer(ctx context.Context, from string, amount int64) (Receipt, error)
	SetProjectImpact(ctx context.Context, from, projectID string, impact project.Impact) (Receipt, error)
}

// Gateway is the full ledger surface.
type Gateway interface {
	Reader
	Writer
}
