package project

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/rpggio/cairn/internal/domain/proof"
)

// Service answers queries against the published project collection.
type Service struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewService creates a new project service.
func NewService(catalog Catalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{catalog: catalog, logger: logger}
}

// ListOptions filters project listings.
type ListOptions struct {
	Domain ResearchDomain
	Tag    string
	Owner  string
	State  proof.State // keep projects with at least one proof in this state
	Limit  int
	Offset int
}

// List returns published projects in ledger order, filtered by opts.
func (s *Service) List(opts ListOptions) []Project {
	all := s.catalog.Projects()
	out := make([]Project, 0, len(all))
	for _, p := range all {
		if opts.Domain != "" && p.Metadata.Domain != opts.Domain {
			continue
		}
		if opts.Tag != "" && !slices.ContainsFunc(p.Metadata.Tags, func(t string) bool {
			return strings.EqualFold(t, opts.Tag)
		}) {
			continue
		}
		if opts.Owner != "" && !p.OwnedBy(opts.Owner) {
			continue
		}
		if opts.State != "" && p.CountByState()[opts.State] == 0 {
			continue
		}
		out = append(out, p)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []Project{}
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// Get fetches a project by ID.
func (s *Service) Get(id string) (Project, error) {
	p, ok := s.catalog.Find(id)
	if !ok {
		s.logger.Debug("project not published", "project_id", id)
		return Project{}, ErrProjectNotFound
	}
	return p, nil
}

// OwnedBy returns the projects registered by wallet.
func (s *Service) OwnedBy(wallet string) []Project {
	if wallet == "" {
		return []Project{}
	}
	return s.List(ListOptions{Owner: wallet})
}

// Reproducibility returns one proof of a project.
func (s *Service) Reproducibility(projectID, proofID string) (proof.Reproducibility, error) {
	p, err := s.Get(projectID)
	if err != nil {
		return proof.Reproducibility{}, err
	}
	r, ok := p.Reproducibility(proofID)
	if !ok {
		s.logger.Debug("proof not published", "project_id", projectID, "proof_id", proofID)
		return proof.Reproducibility{}, ErrProofNotFound
	}
	return r, nil
}

// Portfolio lists every project in which wallet holds certificate units.
func (s *Service) Portfolio(wallet string) []Holding {
	holdings := []Holding{}
	if wallet == "" {
		return holdings
	}
	for _, p := range s.catalog.Projects() {
		units, fraction := p.SharesOf(wallet)
		if units == 0 {
			continue
		}
		holdings = append(holdings, Holding{
			ProjectID: p.ID,
			Title:     p.Metadata.Title,
			Units:     units,
			Fraction:  fraction,
		})
	}
	return holdings
}
