package proof

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rpggio/cairn/internal/fanout"
	"github.com/rpggio/cairn/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/rpggio/cairn/internal/domain/proof")

// Assembler joins ledger proof records with their evidence documents.
type Assembler struct {
	ledger   Ledger
	resolver Resolver
	width    int
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewAssembler creates a proof assembler. width bounds the number of proofs
// resolved at once for a single project; zero means unbounded.
func NewAssembler(ledger Ledger, resolver Resolver, width int, rec metrics.Recorder, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assembler{
		ledger:   ledger,
		resolver: resolver,
		width:    width,
		metrics:  metrics.OrNop(rec),
		logger:   logger,
	}
}

// Assemble resolves one proof. An error means the proof must be skipped:
// either the ledger has no record of it or its evidence could not be read.
// A failed validity read is not fatal and leaves Valid false.
func (a *Assembler) Assemble(ctx context.Context, projectID, address string) (Reproducibility, error) {
	ctx, span := tracer.Start(ctx, "proof.Assemble", trace.WithAttributes(
		attribute.String("cairn.project_id", projectID),
		attribute.String("cairn.proof_address", address),
	))
	defer span.End()

	var (
		onChain LedgerProof
		valid   bool
		doc     Document
	)
	errs := fanout.Join(
		func() (err error) {
			onChain, err = a.ledger.GetProof(ctx, address)
			return err
		},
		func() (err error) {
			valid, err = a.ledger.IsProofValid(ctx, address)
			return err
		},
		func() error {
			raw, err := a.resolver.Resolve(ctx, address)
			if err != nil {
				return err
			}
			doc, err = DecodeDocument(raw)
			return err
		},
	)

	if err := errs[0]; err != nil {
		a.metrics.ResolutionFailed(metrics.StageProof)
		span.SetStatus(codes.Error, err.Error())
		return Reproducibility{}, fmt.Errorf("reading ledger proof %s: %w", address, err)
	}
	if err := errs[2]; err != nil {
		a.metrics.ResolutionFailed(metrics.StageProof)
		span.SetStatus(codes.Error, err.Error())
		return Reproducibility{}, fmt.Errorf("resolving proof document %s: %w", address, err)
	}
	if err := errs[1]; err != nil {
		a.metrics.ResolutionFailed(metrics.StageProofValidity)
		a.logger.Warn("proof validity unavailable", "project_id", projectID, "proof", address, "error", err)
		valid = false
	}

	return Reproducibility{
		ProofID:        address,
		ProjectID:      projectID,
		Recorder:       onChain.Recorder,
		Timestamp:      onChain.RecordedAt,
		Description:    doc.Description,
		CodeURL:        doc.CodeURL,
		OutputURL:      doc.OutputURL,
		VideoURL:       doc.VideoURL,
		Dispute:        onChain.Dispute,
		Valid:          valid,
		DisputeAddress: onChain.DisputeAddress,
	}, nil
}

// AssembleAll resolves every proof of a project and returns the successes in
// ledger-declared order. Repeated addresses are resolved once.
func (a *Assembler) AssembleAll(ctx context.Context, projectID string, addresses []string) []Reproducibility {
	unique := make([]string, 0, len(addresses))
	seen := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		unique = append(unique, addr)
	}

	results := fanout.Map(ctx, a.width, unique, func(ctx context.Context, addr string) (Reproducibility, error) {
		return a.Assemble(ctx, projectID, addr)
	})

	out := make([]Reproducibility, 0, len(results))
	for i, res := range results {
		if res.Err != nil {
			a.logger.Debug("skipping proof", "project_id", projectID, "proof", unique[i], "error", res.Err)
			continue
		}
		out = append(out, res.Value)
	}
	return out
}
