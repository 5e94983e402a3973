package mcp

import (
	"time"

	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/funding"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/domain/session"
	"github.com/rpggio/cairn/internal/domain/submission"
	"github.com/rpggio/cairn/internal/domain/token"
	"github.com/rpggio/cairn/internal/reconcile"
)

// Tool inputs.

type StartSessionInput struct {
	Role string `json:"role" jsonschema:"Scientist or Funder"`
}

type CloseSessionInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session to close; defaults to the current session"`
}

type ReconcileInput struct{}

type ListProjectsInput struct {
	Domain string `json:"domain,omitempty" jsonschema:"filter by research domain (Robotics, Simulation, Hardware)"`
	Tag    string `json:"tag,omitempty" jsonschema:"filter by tag, case-insensitive"`
	Owner  string `json:"owner,omitempty" jsonschema:"filter by owner wallet address"`
	State  string `json:"state,omitempty" jsonschema:"keep projects with at least one proof in this state (Waiting, Disputed, Success)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of projects"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of projects to skip"`
}

type GetProjectInput struct {
	ID string `json:"id" jsonschema:"project content address"`
}

type MyProjectsInput struct{}

type GetReproducibilityInput struct {
	ProjectID string `json:"project_id" jsonschema:"project content address"`
	ProofID   string `json:"proof_id" jsonschema:"proof content address"`
}

type ListFundingInput struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"also report funding progress for this project"`
}

type FundProjectInput struct {
	ProjectID string `json:"project_id" jsonschema:"project content address"`
	Amount    int64  `json:"amount" jsonschema:"amount in minor units"`
}

type RecordProofInput struct {
	ProjectID    string `json:"project_id" jsonschema:"project content address"`
	ProofAddress string `json:"proof_address" jsonschema:"content address of a stored proof document"`
}

type DisputeProofInput struct {
	ProjectID      string `json:"project_id" jsonschema:"project content address"`
	ProofID        string `json:"proof_id" jsonschema:"proof content address"`
	DisputeAddress string `json:"dispute_address" jsonschema:"content address of a stored dispute document"`
}

type RecordOutputsInput struct {
	ProjectID      string `json:"project_id" jsonschema:"project content address"`
	OutputsAddress string `json:"outputs_address" jsonschema:"content address of a stored outputs document"`
}

type RegisterProjectInput struct {
	MetadataAddress string `json:"metadata_address" jsonschema:"content address of a stored metadata document"`
	Units           int64  `json:"units,omitempty" jsonschema:"total certificate units; defaults to 1000"`
	UnitPrice       int64  `json:"unit_price,omitempty" jsonschema:"price per unit in minor units"`
	FundingGoal     int64  `json:"funding_goal,omitempty" jsonschema:"funding goal in minor units"`
}

type SetImpactInput struct {
	ProjectID string `json:"project_id" jsonschema:"project content address"`
	Impact    string `json:"impact" jsonschema:"None, Low, Medium or High"`
}

type RecentActivityInput struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"filter by project"`
	Mine      bool   `json:"mine,omitempty" jsonschema:"only activity by the current wallet"`
	Type      string `json:"type,omitempty" jsonschema:"filter by activity type"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of entries; defaults to 20"`
}

// Tool outputs. Timestamps are RFC 3339 strings.

type ProofView struct {
	ProofID        string `json:"proof_id"`
	Recorder       string `json:"recorder"`
	RecordedAt     string `json:"recorded_at,omitempty"`
	Description    string `json:"description"`
	CodeURL        string `json:"code_url"`
	OutputURL      string `json:"output_url"`
	VideoURL       string `json:"video_url,omitempty"`
	State          string `json:"state"`
	Dispute        bool   `json:"dispute"`
	Valid          bool   `json:"valid"`
	DisputeAddress string `json:"dispute_address,omitempty"`
}

type ProjectSummaryView struct {
	ID          string         `json:"id"`
	Sequence    int64          `json:"sequence"`
	Title       string         `json:"title"`
	Domain      string         `json:"domain,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Owner       string         `json:"owner"`
	Impact      string         `json:"impact"`
	FundingGoal int64          `json:"funding_goal"`
	ProofStates map[string]int `json:"proof_states"`
}

type ProjectView struct {
	ID                string            `json:"id"`
	Sequence          int64             `json:"sequence"`
	Title             string            `json:"title"`
	Domain            string            `json:"domain,omitempty"`
	Tags              []string          `json:"tags,omitempty"`
	Owner             string            `json:"owner"`
	Impact            string            `json:"impact"`
	FundingGoal       int64             `json:"funding_goal"`
	ProofStates       map[string]int    `json:"proof_states"`
	Description       string            `json:"description"`
	Organization      string            `json:"organization,omitempty"`
	URL               string            `json:"url,omitempty"`
	ImageURL          string            `json:"image_url,omitempty"`
	CreatedAt         string            `json:"created_at,omitempty"`
	Funder            string            `json:"funder,omitempty"`
	CertificateTypeID string            `json:"certificate_type_id,omitempty"`
	CertificateUnits  int64             `json:"certificate_units"`
	OutputsAddress    string            `json:"outputs_address,omitempty"`
	Outputs           []project.Output  `json:"outputs"`
	Proofs            []ProofView       `json:"proofs"`
	Ownership         []token.Ownership `json:"ownership"`
}

type SessionView struct {
	ID           string `json:"id"`
	Wallet       string `json:"wallet"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	PoRAllowance int64  `json:"por_allowance"`
	CreatedAt    string `json:"created_at"`
}

type StartSessionResult struct {
	Session  SessionView `json:"session"`
	Projects int         `json:"projects"`
	Warnings []string    `json:"warnings,omitempty"`
}

type CloseSessionResult struct {
	SessionID string `json:"session_id"`
	Closed    bool   `json:"closed"`
}

type ReconcileResult struct {
	Pass      uint64 `json:"pass"`
	Listed    int    `json:"listed"`
	Published int    `json:"published"`
	Dropped   int    `json:"dropped"`
	Stale     bool   `json:"stale,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

type ListProjectsResult struct {
	Projects []ProjectSummaryView `json:"projects"`
	Total    int                  `json:"total"`
}

type MyProjectsResult struct {
	Wallet   string               `json:"wallet"`
	Owned    []ProjectSummaryView `json:"owned"`
	Holdings []project.Holding    `json:"holdings"`
}

type FundingEventView struct {
	ID           string `json:"id"`
	ProjectID    string `json:"project_id"`
	ProjectTitle string `json:"project_title"`
	Amount       int64  `json:"amount"`
	TxHash       string `json:"tx_hash,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type ListFundingResult struct {
	Events   []FundingEventView `json:"events"`
	Progress *funding.Progress  `json:"progress,omitempty"`
}

type WriteResult struct {
	ProjectID         string   `json:"project_id"`
	TxHash            string   `json:"tx_hash"`
	CertificateTypeID string   `json:"certificate_type_id,omitempty"`
	TokenID           string   `json:"token_id,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

type ActivityView struct {
	ID        int64  `json:"id"`
	Wallet    string `json:"wallet,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	Type      string `json:"type"`
	Summary   string `json:"summary"`
	Details   string `json:"details,omitempty"`
	Pass      uint64 `json:"pass,omitempty"`
	CreatedAt string `json:"created_at"`
}

type RecentActivityResult struct {
	Entries []ActivityView `json:"entries"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toProofView(r proof.Reproducibility) ProofView {
	view := ProofView{
		ProofID:        r.ProofID,
		Recorder:       r.Recorder,
		Description:    r.Description,
		CodeURL:        r.CodeURL,
		OutputURL:      r.OutputURL,
		VideoURL:       r.VideoURL,
		State:          string(r.State()),
		Dispute:        r.Dispute,
		Valid:          r.Valid,
		DisputeAddress: r.DisputeAddress,
	}
	if r.Timestamp > 0 {
		view.RecordedAt = formatTime(r.RecordedAt())
	}
	return view
}

func toSummaryView(p project.Project) ProjectSummaryView {
	states := map[string]int{}
	for state, n := range p.CountByState() {
		states[string(state)] = n
	}
	return ProjectSummaryView{
		ID:          p.ID,
		Sequence:    p.Sequence,
		Title:       p.Metadata.Title,
		Domain:      string(p.Metadata.Domain),
		Tags:        p.Metadata.Tags,
		Owner:       p.OwnerID,
		Impact:      p.Impact.String(),
		FundingGoal: p.FundingGoal,
		ProofStates: states,
	}
}

func toSummaryViews(projects []project.Project) []ProjectSummaryView {
	views := make([]ProjectSummaryView, 0, len(projects))
	for _, p := range projects {
		views = append(views, toSummaryView(p))
	}
	return views
}

func toProjectView(p project.Project) ProjectView {
	proofs := make([]ProofView, 0, len(p.Reproducibilities))
	for _, r := range p.Reproducibilities {
		proofs = append(proofs, toProofView(r))
	}
	outputs := p.Outputs
	if outputs == nil {
		outputs = []project.Output{}
	}
	ownership := p.Ownership
	if ownership == nil {
		ownership = []token.Ownership{}
	}
	summary := toSummaryView(p)
	return ProjectView{
		ID:                summary.ID,
		Sequence:          summary.Sequence,
		Title:             summary.Title,
		Domain:            summary.Domain,
		Tags:              summary.Tags,
		Owner:             summary.Owner,
		Impact:            summary.Impact,
		FundingGoal:       summary.FundingGoal,
		ProofStates:       summary.ProofStates,
		Description:       p.Metadata.Description,
		Organization:      p.Metadata.Organization,
		URL:               p.Metadata.InfoURL,
		ImageURL:          p.Metadata.ImageURL,
		CreatedAt:         formatTime(p.Created()),
		Funder:            p.Funder,
		CertificateTypeID: p.CertificateTypeID,
		CertificateUnits:  p.CertificateUnits,
		OutputsAddress:    p.OutputsAddress,
		Outputs:           outputs,
		Proofs:            proofs,
		Ownership:         ownership,
	}
}

func toSessionView(s *session.Session) SessionView {
	return SessionView{
		ID:           s.ID,
		Wallet:       s.WalletAddress,
		Role:         string(s.Role),
		Status:       string(s.Status),
		PoRAllowance: s.PoRAllowance,
		CreatedAt:    formatTime(s.CreatedAt),
	}
}

func toReconcileResult(r reconcile.Report) ReconcileResult {
	res := ReconcileResult{
		Pass:      r.Pass,
		Listed:    r.Listed,
		Published: r.Published,
		Dropped:   r.Dropped,
		Stale:     r.Stale,
		ElapsedMS: r.Elapsed.Milliseconds(),
	}
	if r.Err != nil {
		res.Error = r.Err.Error()
	}
	return res
}

func toFundingViews(events []funding.Event) []FundingEventView {
	views := make([]FundingEventView, 0, len(events))
	for _, ev := range events {
		views = append(views, FundingEventView{
			ID:           ev.ID,
			ProjectID:    ev.ProjectID,
			ProjectTitle: ev.ProjectTitle,
			Amount:       ev.Amount,
			TxHash:       ev.TxHash,
			CreatedAt:    formatTime(ev.CreatedAt),
		})
	}
	return views
}

func toWriteResult(r *submission.Result) WriteResult {
	return WriteResult{
		ProjectID:         r.ProjectID,
		TxHash:            r.TxHash,
		CertificateTypeID: r.CertificateTypeID,
		TokenID:           r.TokenID,
		Warnings:          r.Warnings,
	}
}

func toActivityViews(entries []activity.ActivityEntry) []ActivityView {
	views := make([]ActivityView, 0, len(entries))
	for _, e := range entries {
		views = append(views, ActivityView{
			ID:        e.ID,
			Wallet:    e.WalletAddress,
			ProjectID: e.ProjectID,
			Type:      string(e.ActivityType),
			Summary:   e.Summary,
			Details:   e.Details,
			Pass:      e.Pass,
			CreatedAt: formatTime(e.CreatedAt),
		})
	}
	return views
}
