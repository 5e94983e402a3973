package submission

import "github.com/rpggio/cairn/internal/domain/project"

// RegisterRequest registers a project whose metadata document is already
// stored at MetadataAddress.
type RegisterRequest struct {
	MetadataAddress string
	Units           int64
	UnitPrice       int64
	FundingGoal     int64
}

// Result describes a completed write.
type Result struct {
	ProjectID         string   `json:"project_id"`
	TxHash            string   `json:"tx_hash"`
	CertificateTypeID string   `json:"certificate_type_id,omitempty"`
	TokenID           string   `json:"token_id,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// ImpactRequest sets a project's impact level.
type ImpactRequest struct {
	ProjectID string
	Impact    project.Impact
}
