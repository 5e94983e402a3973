package project

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/domain/token"
)

// Impact is the ledger's 0-3 impact ordinal.
type Impact int

const (
	ImpactNone Impact = iota
	ImpactLow
	ImpactMedium
	ImpactHigh
)

var impactNames = [...]string{"None", "Low", "Medium", "High"}

func (i Impact) String() string {
	if i < ImpactNone || i > ImpactHigh {
		return fmt.Sprintf("Impact(%d)", int(i))
	}
	return impactNames[i]
}

// Valid reports whether i is one of the four defined levels.
func (i Impact) Valid() bool {
	return i >= ImpactNone && i <= ImpactHigh
}

// ParseImpact accepts a level name, case-insensitively.
func ParseImpact(s string) (Impact, error) {
	for i, name := range impactNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Impact(i), nil
		}
	}
	return ImpactNone, fmt.Errorf("%w: unknown impact %q", ErrInvalidInput, s)
}

// Summary is the minimal project record kept on the ledger.
type Summary struct {
	Sequence          int64    `json:"sequence"`
	Creator           string   `json:"creator"`
	ProjectAddress    string   `json:"project_address"`
	OutputsAddress    string   `json:"outputs_address,omitempty"`
	ProofAddresses    []string `json:"proof_addresses"`
	CertificateTypeID string   `json:"certificate_type_id,omitempty"`
	TokenIDs          []string `json:"token_ids"`
	Funder            string   `json:"funder,omitempty"`
	FundingGoal       int64    `json:"funding_goal"`
	Impact            Impact   `json:"impact"`
}

// Project is the reconciled aggregate. Once published it is treated as
// immutable; a new pass produces new values.
type Project struct {
	ID                string                  `json:"id"`
	Sequence          int64                   `json:"sequence"`
	OwnerID           string                  `json:"owner_id"`
	Funder            string                  `json:"funder,omitempty"`
	FundingGoal       int64                   `json:"funding_goal"`
	Impact            Impact                  `json:"impact"`
	CertificateTypeID string                  `json:"certificate_type_id,omitempty"`
	CertificateUnits  int64                   `json:"certificate_units"`
	OutputsAddress    string                  `json:"outputs_address,omitempty"`
	Metadata          Metadata                `json:"metadata"`
	Outputs           []Output                `json:"outputs"`
	Reproducibilities []proof.Reproducibility `json:"reproducibilities"`
	Ownership         []token.Ownership       `json:"ownership"`
}

// Clone returns a deep copy that shares no slices with p.
func (p Project) Clone() Project {
	c := p
	c.Metadata.Tags = slices.Clone(p.Metadata.Tags)
	c.Reproducibilities = slices.Clone(p.Reproducibilities)
	c.Ownership = slices.Clone(p.Ownership)
	if p.Outputs != nil {
		c.Outputs = make([]Output, len(p.Outputs))
		for i, o := range p.Outputs {
			o.Tools.Tools = slices.Clone(o.Tools.Tools)
			o.Tools.OtherTools = slices.Clone(o.Tools.OtherTools)
			c.Outputs[i] = o
		}
	}
	return c
}

// OwnedBy reports whether wallet registered the project.
func (p Project) OwnedBy(wallet string) bool {
	return token.SameAddress(p.OwnerID, wallet)
}

// Reproducibility finds a proof by id.
func (p Project) Reproducibility(proofID string) (proof.Reproducibility, bool) {
	for _, r := range p.Reproducibilities {
		if r.ProofID == proofID {
			return r, true
		}
	}
	return proof.Reproducibility{}, false
}

// CountByState tallies reproducibilities per derived state.
func (p Project) CountByState() map[proof.State]int {
	counts := map[proof.State]int{}
	for _, r := range p.Reproducibilities {
		counts[r.State()]++
	}
	return counts
}

// SharesOf sums the units wallet holds across the project's tokens and the
// fraction of the certificate they represent.
func (p Project) SharesOf(wallet string) (int64, float64) {
	var units int64
	for _, o := range p.Ownership {
		if token.SameAddress(o.Owner, wallet) {
			units += o.Units
		}
	}
	return units, token.Fraction(units, p.CertificateUnits)
}

// Holding is one project's certificate share held by a wallet.
type Holding struct {
	ProjectID string  `json:"project_id"`
	Title     string  `json:"title"`
	Units     int64   `json:"units"`
	Fraction  float64 `json:"fraction"`
}

// Created is a convenience for sorting and display.
func (p Project) Created() time.Time {
	return p.Metadata.CreatedAt
}
