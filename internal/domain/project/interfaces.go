package project

import (
	"context"

	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/domain/token"
)

// Resolver fetches raw content by address.
type Resolver interface {
	Resolve(ctx context.Context, address string) ([]byte, error)
}

// Ledger reads certificate supply.
type Ledger interface {
	GetCertificateUnits(ctx context.Context, certificateTypeID string) (int64, error)
}

// ProofAssembler resolves a project's reproducibilities.
type ProofAssembler interface {
	AssembleAll(ctx context.Context, projectID string, addresses []string) []proof.Reproducibility
}

// OwnershipResolver resolves certificate token holders.
type OwnershipResolver interface {
	Resolve(ctx context.Context, tokenIDs []string) []token.Ownership
}

// Catalog is the read side of the published project collection.
type Catalog interface {
	Projects() []Project
	Find(id string) (Project, bool)
}
