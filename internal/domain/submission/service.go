package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/cairn/internal/content"
	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/domain/token"
	"github.com/rpggio/cairn/internal/ledger"
	"github.com/rpggio/cairn/internal/repository"
)

// Service submits ledger writes. Every document is resolved and validated
// before the write, and every successful write re-runs reconciliation.
type Service struct {
	ledger   Ledger
	resolver Resolver
	catalog  Catalog
	refresh  Refresher
	activity ActivityLogger
	operator string
	logger   *slog.Logger
}

// NewService creates a submission service. operator is the registry account
// approved to move certificate tokens on registration.
func NewService(l Ledger, resolver Resolver, catalog Catalog, refresh Refresher, activity ActivityLogger, operator string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		ledger:   l,
		resolver: resolver,
		catalog:  catalog,
		refresh:  refresh,
		activity: activity,
		operator: operator,
		logger:   logger,
	}
}

// RegisterProject mints the impact certificate, approves the registry to
// manage it, and registers the project.
func (s *Service) RegisterProject(ctx context.Context, wallet string, req RegisterRequest) (*Result, error) {
	if err := requireWallet(wallet); err != nil {
		return nil, err
	}
	addr := content.NormalizeAddress(req.MetadataAddress)
	if addr == "" {
		return nil, fmt.Errorf("%w: metadata address required", ErrInvalidInput)
	}
	if req.Units <= 0 {
		req.Units = token.DefaultTotalUnits
	}
	if req.UnitPrice < 0 || req.FundingGoal < 0 {
		return nil, fmt.Errorf("%w: negative price or goal", ErrInvalidInput)
	}
	if _, ok := s.catalog.Find(addr); ok {
		return nil, fmt.Errorf("%w: project %s already registered", repository.ErrConflict, addr)
	}

	md, err := fetch(ctx, s.resolver, addr, project.DecodeMetadata)
	if err != nil {
		return nil, err
	}

	mint, err := s.ledger.MintCertificate(ctx, wallet, req.Units, "ipfs://"+addr)
	if err != nil {
		return nil, fmt.Errorf("minting certificate: %w", err)
	}
	if _, err := s.ledger.SetApprovalForAll(ctx, wallet, s.operator, true); err != nil {
		return nil, fmt.Errorf("approving certificate transfer: %w", err)
	}
	receipt, err := s.ledger.RegisterProject(ctx, wallet, ledger.Registration{
		ProjectAddress: addr,
		TokenID:        mint.TokenID,
		UnitPrice:      req.UnitPrice,
		FundingGoal:    req.FundingGoal,
	})
	if err != nil {
		return nil, fmt.Errorf("registering project: %w", err)
	}

	res := &Result{
		ProjectID:         addr,
		TxHash:            receipt.TxHash,
		CertificateTypeID: mint.CertificateTypeID,
		TokenID:           mint.TokenID,
	}
	s.after(ctx, res, &activity.ActivityEntry{
		WalletAddress: wallet,
		ProjectID:     addr,
		ActivityType:  activity.TypeProjectRegistered,
		Summary:       fmt.Sprintf("registered %q", md.Title),
	}, map[string]any{"token_id": mint.TokenID, "units": req.Units})
	return res, nil
}

// RecordOutputs attaches an outputs document to a project the wallet owns.
func (s *Service) RecordOutputs(ctx context.Context, wallet, projectID, outputsAddress string) (*Result, error) {
	if err := requireWallet(wallet); err != nil {
		return nil, err
	}
	if _, err := s.owned(projectID, wallet); err != nil {
		return nil, err
	}
	addr := content.NormalizeAddress(outputsAddress)
	outputs, err := fetch(ctx, s.resolver, addr, project.DecodeOutputs)
	if err != nil {
		return nil, err
	}

	receipt, err := s.ledger.RecordOutputs(ctx, wallet, projectID, addr)
	if err != nil {
		return nil, fmt.Errorf("recording outputs: %w", err)
	}
	res := &Result{ProjectID: projectID, TxHash: receipt.TxHash}
	s.after(ctx, res, &activity.ActivityEntry{
		WalletAddress: wallet,
		ProjectID:     projectID,
		ActivityType:  activity.TypeOutputsRecorded,
		Summary:       fmt.Sprintf("recorded %d outputs", len(outputs)),
	}, map[string]any{"outputs_address": addr})
	return res, nil
}

// RecordProof submits a proof of reproducibility for a project.
func (s *Service) RecordProof(ctx context.Context, wallet, projectID, proofAddress string) (*Result, error) {
	if err := requireWallet(wallet); err != nil {
		return nil, err
	}
	proj, ok := s.catalog.Find(projectID)
	if !ok {
		return nil, project.ErrProjectNotFound
	}
	addr := content.NormalizeAddress(proofAddress)
	if _, exists := proj.Reproducibility(addr); exists {
		return nil, fmt.Errorf("%w: proof %s already recorded", repository.ErrConflict, addr)
	}
	if _, err := fetch(ctx, s.resolver, addr, proof.DecodeDocument); err != nil {
		return nil, err
	}

	receipt, err := s.ledger.RecordProof(ctx, wallet, projectID, addr)
	if err != nil {
		return nil, fmt.Errorf("recording proof: %w", err)
	}
	res := &Result{ProjectID: projectID, TxHash: receipt.TxHash}
	s.after(ctx, res, &activity.ActivityEntry{
		WalletAddress: wallet,
		ProjectID:     projectID,
		ActivityType:  activity.TypeProofRecorded,
		Summary:       fmt.Sprintf("recorded proof for %q", proj.Metadata.Title),
	}, map[string]any{"proof_address": addr})
	return res, nil
}

// DisputeProof disputes a waiting proof on a project the wallet owns.
func (s *Service) DisputeProof(ctx context.Context, wallet, projectID, proofID, disputeAddress string) (*Result, error) {
	if err := requireWallet(wallet); err != nil {
		return nil, err
	}
	proj, err := s.owned(projectID, wallet)
	if err != nil {
		return nil, err
	}
	r, ok := proj.Reproducibility(proofID)
	if !ok {
		return nil, project.ErrProofNotFound
	}
	if state := r.State(); state != proof.StateWaiting {
		return nil, fmt.Errorf("%w: proof is %s", ErrInvalidState, state)
	}
	addr := content.NormalizeAddress(disputeAddress)
	if _, err := fetch(ctx, s.resolver, addr, decodeAny); err != nil {
		return nil, err
	}

	receipt, err := s.ledger.DisputeProof(ctx, wallet, proofID, addr)
	if err != nil {
		return nil, fmt.Errorf("disputing proof: %w", err)
	}
	res := &Result{ProjectID: projectID, TxHash: receipt.TxHash}
	s.after(ctx, res, &activity.ActivityEntry{
		WalletAddress: wallet,
		ProjectID:     projectID,
		ActivityType:  activity.TypeProofDisputed,
		Summary:       "disputed proof " + proofID,
	}, map[string]any{"proof_id": proofID, "dispute_address": addr})
	return res, nil
}

// SetImpact records a project's impact level.
func (s *Service) SetImpact(ctx context.Context, wallet string, req ImpactRequest) (*Result, error) {
	if err := requireWallet(wallet); err != nil {
		return nil, err
	}
	if !req.Impact.Valid() {
		return nil, fmt.Errorf("%w: impact %d", ErrInvalidInput, int(req.Impact))
	}
	if _, ok := s.catalog.Find(req.ProjectID); !ok {
		return nil, project.ErrProjectNotFound
	}

	receipt, err := s.ledger.SetProjectImpact(ctx, wallet, req.ProjectID, req.Impact)
	if err != nil {
		return nil, fmt.Errorf("setting impact: %w", err)
	}
	res := &Result{ProjectID: req.ProjectID, TxHash: receipt.TxHash}
	s.after(ctx, res, &activity.ActivityEntry{
		WalletAddress: wallet,
		ProjectID:     req.ProjectID,
		ActivityType:  activity.TypeImpactSet,
		Summary:       "impact set to " + req.Impact.String(),
	}, nil)
	return res, nil
}

func (s *Service) owned(projectID, wallet string) (project.Project, error) {
	proj, ok := s.catalog.Find(projectID)
	if !ok {
		return project.Project{}, project.ErrProjectNotFound
	}
	if !proj.OwnedBy(wallet) {
		return project.Project{}, ErrNotOwner
	}
	return proj, nil
}

// fetch resolves a document and validates it with decode.
func fetch[T any](ctx context.Context, r Resolver, address string, decode func([]byte) (T, error)) (T, error) {
	var zero T
	if address == "" {
		return zero, fmt.Errorf("%w: content address required", ErrInvalidInput)
	}
	raw, err := r.Resolve(ctx, address)
	if err != nil {
		return zero, fmt.Errorf("resolving %s: %w", address, err)
	}
	doc, err := decode(raw)
	if err != nil {
		return zero, fmt.Errorf("validating %s: %w", address, err)
	}
	return doc, nil
}

func decodeAny(raw []byte) (json.RawMessage, error) {
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: not JSON", repository.ErrMalformed)
	}
	return raw, nil
}

// after logs the write and re-runs reconciliation. Neither failure undoes
// the write; both become warnings.
func (s *Service) after(ctx context.Context, res *Result, entry *activity.ActivityEntry, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["tx_hash"] = res.TxHash
	raw, _ := json.Marshal(details)
	entry.Details = string(raw)

	if err := s.activity.LogActivity(ctx, entry); err != nil {
		s.logger.Warn("logging submission", "type", entry.ActivityType, "error", err)
	}
	if err := s.refresh.Refresh(ctx); err != nil {
		res.Warnings = append(res.Warnings, "reconciliation failed: "+err.Error())
	}
}

func requireWallet(wallet string) error {
	if !token.IsAddress(strings.TrimSpace(wallet)) {
		return fmt.Errorf("%w: wallet address %q", ErrInvalidInput, wallet)
	}
	return nil
}
