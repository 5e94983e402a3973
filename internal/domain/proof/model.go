package proof

import "time"

// State is the lifecycle state of a reproducibility claim.
type State string

const (
	StateWaiting  State = "Waiting"
	StateDisputed State = "Disputed"
	StateSuccess  State = "Success"
)

// DeriveState maps the two ledger flags onto a lifecycle state. Validity is
// authoritative: a valid proof is Success even if it was also disputed.
func DeriveState(valid, dispute bool) State {
	switch {
	case valid:
		return StateSuccess
	case dispute:
		return StateDisputed
	default:
		return StateWaiting
	}
}

// Reproducibility is an assembled proof-of-reproducibility claim.
type Reproducibility struct {
	ProofID        string `json:"proof_id"`
	ProjectID      string `json:"project_id"`
	Recorder       string `json:"recorder"`
	Timestamp      int64  `json:"timestamp"`
	Description    string `json:"description"`
	CodeURL        string `json:"code_url"`
	OutputURL      string `json:"output_url"`
	VideoURL       string `json:"video_url,omitempty"`
	Dispute        bool   `json:"dispute"`
	Valid          bool   `json:"valid"`
	DisputeAddress string `json:"dispute_address,omitempty"`
}

// State derives the lifecycle state from the ledger flags.
func (r Reproducibility) State() State {
	return DeriveState(r.Valid, r.Dispute)
}

// RecordedAt returns the ledger timestamp as a time.
func (r Reproducibility) RecordedAt() time.Time {
	return time.Unix(r.Timestamp, 0).UTC()
}

// LedgerProof is the on-chain half of a proof.
type LedgerProof struct {
	Recorder       string `json:"recorder"`
	RecordedAt     int64  `json:"recorded_at"`
	Dispute        bool   `json:"dispute"`
	DisputeAddress string `json:"dispute_address,omitempty"`
}
