package proof

import "context"

// Ledger is the read surface the assembler needs from the proof registry.
type Ledger interface {
	GetProof(ctx context.Context, address string) (LedgerProof, error)
	IsProofValid(ctx context.Context, address string) (bool, error)
}

// Resolver fetches raw content by address.
type Resolver interface {
	Resolve(ctx context.Context, address string) ([]byte, error)
}
