package project

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/domain/token"
	"github.com/rpggio/cairn/internal/fanout"
	"github.com/rpggio/cairn/internal/metrics"
	"github.com/rpggio/cairn/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/rpggio/cairn/internal/domain/project")

// Assembler builds one Project aggregate from a ledger summary.
type Assembler struct {
	resolver Resolver
	ledger   Ledger
	proofs   ProofAssembler
	tokens   OwnershipResolver
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewAssembler creates a project assembler.
func NewAssembler(resolver Resolver, ledger Ledger, proofs ProofAssembler, tokens OwnershipResolver, rec metrics.Recorder, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assembler{
		resolver: resolver,
		ledger:   ledger,
		proofs:   proofs,
		tokens:   tokens,
		metrics:  metrics.OrNop(rec),
		logger:   logger,
	}
}

// Assemble resolves metadata first and fails the project if that fails. The
// remaining lookups run concurrently and degrade to empty values on error.
func (a *Assembler) Assemble(ctx context.Context, s Summary) (*Project, error) {
	if s.ProjectAddress == "" {
		return nil, fmt.Errorf("%w: summary %d has no project address", repository.ErrMalformed, s.Sequence)
	}

	ctx, span := tracer.Start(ctx, "project.Assemble", trace.WithAttributes(
		attribute.String("cairn.project_id", s.ProjectAddress),
		attribute.Int64("cairn.sequence", s.Sequence),
	))
	defer span.End()

	md, err := a.metadata(ctx, s.ProjectAddress)
	if err != nil {
		a.metrics.ResolutionFailed(metrics.StageMetadata)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var (
		outputs   []Output
		repros    []proof.Reproducibility
		ownership []token.Ownership
		units     = token.DefaultTotalUnits
	)
	errs := fanout.Join(
		func() (err error) {
			outputs, err = a.outputs(ctx, s.OutputsAddress)
			return err
		},
		func() error {
			repros = a.proofs.AssembleAll(ctx, s.ProjectAddress, s.ProofAddresses)
			return nil
		},
		func() error {
			ownership = a.tokens.Resolve(ctx, s.TokenIDs)
			return nil
		},
		func() error {
			if s.CertificateTypeID == "" {
				return nil
			}
			n, err := a.ledger.GetCertificateUnits(ctx, s.CertificateTypeID)
			if err != nil {
				return err
			}
			if n > 0 {
				units = n
			}
			return nil
		},
	)

	if err := errs[0]; err != nil {
		a.metrics.ResolutionFailed(metrics.StageOutputs)
		a.logger.Warn("outputs unavailable", "project_id", s.ProjectAddress, "outputs", s.OutputsAddress, "error", err)
		outputs = nil
	}
	// AssembleAll and Resolve do not fail; a panic there is still only a leaf.
	if err := errs[1]; err != nil {
		a.logger.Error("proof assembly failed", "project_id", s.ProjectAddress, "error", err)
		repros = nil
	}
	if err := errs[2]; err != nil {
		a.logger.Error("ownership resolution failed", "project_id", s.ProjectAddress, "error", err)
		ownership = placeholders(s.TokenIDs)
	}
	if err := errs[3]; err != nil {
		a.metrics.ResolutionFailed(metrics.StageCertificate)
		a.logger.Warn("certificate supply unavailable", "project_id", s.ProjectAddress, "certificate", s.CertificateTypeID, "error", err)
		units = token.DefaultTotalUnits
	}

	if outputs == nil {
		outputs = []Output{}
	}
	if repros == nil {
		repros = []proof.Reproducibility{}
	}
	if ownership == nil {
		ownership = []token.Ownership{}
	}

	return &Project{
		ID:                s.ProjectAddress,
		Sequence:          s.Sequence,
		OwnerID:           s.Creator,
		Funder:            s.Funder,
		FundingGoal:       s.FundingGoal,
		Impact:            s.Impact,
		CertificateTypeID: s.CertificateTypeID,
		CertificateUnits:  units,
		OutputsAddress:    s.OutputsAddress,
		Metadata:          md,
		Outputs:           outputs,
		Reproducibilities: repros,
		Ownership:         ownership,
	}, nil
}

func (a *Assembler) metadata(ctx context.Context, address string) (Metadata, error) {
	raw, err := a.resolver.Resolve(ctx, address)
	if err != nil {
		return Metadata{}, fmt.Errorf("resolving metadata %s: %w", address, err)
	}
	md, err := DecodeMetadata(raw)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata %s: %w", address, err)
	}
	return md, nil
}

func (a *Assembler) outputs(ctx context.Context, address string) ([]Output, error) {
	if address == "" {
		return nil, nil
	}
	raw, err := a.resolver.Resolve(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("resolving outputs %s: %w", address, err)
	}
	return DecodeOutputs(raw)
}

func placeholders(ids []string) []token.Ownership {
	out := make([]token.Ownership, len(ids))
	for i, id := range ids {
		out[i] = token.Placeholder(id)
	}
	return out
}
