package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeReconcileCompleted ActivityType = "reconcile_completed"
	TypeReconcileFailed    ActivityType = "reconcile_failed"
	TypeSessionStarted     ActivityType = "session_started"
	TypeSessionClosed      ActivityType = "session_closed"
	TypeProjectRegistered  ActivityType = "project_registered"
	TypeOutputsRecorded    ActivityType = "outputs_recorded"
	TypeProofRecorded      ActivityType = "proof_recorded"
	TypeProofDisputed      ActivityType = "proof_disputed"
	TypeProjectFunded      ActivityType = "project_funded"
	TypeImpactSet          ActivityType = "impact_set"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID            int64        `json:"id"`
	WalletAddress string       `json:"wallet_address,omitempty"`
	ProjectID     string       `json:"project_id,omitempty"`
	SessionID     *string      `json:"session_id,omitempty"`
	ActivityType  ActivityType `json:"type"`
	Summary       string       `json:"summary"`
	Details       string       `json:"details,omitempty"` // JSON string
	Pass          uint64       `json:"pass,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
