// Package reconcile runs full reconciliation passes: list every project
// summary from the ledger, assemble each into an aggregate, and publish the
// survivors as one new snapshot.
package reconcile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/fanout"
	"github.com/rpggio/cairn/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MaxPageSize caps a single listProjects call.
	MaxPageSize     = 100
	defaultMaxPages = 50
	defaultWidth    = 8
)

var tracer = otel.Tracer("github.com/rpggio/cairn/internal/reconcile")

// ErrPassPanicked is reported when a pass panicked outside any task.
var ErrPassPanicked = errors.New("reconciliation pass panicked")

// Lister pages through ledger project summaries.
type Lister interface {
	ListProjects(ctx context.Context, offset, limit int) ([]project.Summary, error)
}

// Assembler turns a summary into an aggregate.
type Assembler interface {
	Assemble(ctx context.Context, s project.Summary) (*project.Project, error)
}

// Publisher receives the finished collection.
type Publisher interface {
	Publish(version uint64, projects []project.Project) bool
}

// Journal is told about every finished pass.
type Journal interface {
	RecordPass(ctx context.Context, r Report) error
}

// Options tunes a driver.
type Options struct {
	PageSize    int
	MaxPages    int
	Concurrency int
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 || o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = defaultMaxPages
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultWidth
	}
	return o
}

// Report describes one pass.
type Report struct {
	Pass      uint64        `json:"pass"`
	Started   time.Time     `json:"started"`
	Finished  time.Time     `json:"finished"`
	Listed    int           `json:"listed"`
	Published int           `json:"published"`
	Dropped   int           `json:"dropped"`
	Stale     bool          `json:"stale,omitempty"`
	Err       error         `json:"-"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Outcome names the pass result for metrics and logs.
func (r Report) Outcome() string {
	switch {
	case r.Err != nil:
		return metrics.OutcomeFailed
	case r.Stale:
		return metrics.OutcomeStale
	default:
		return metrics.OutcomePublished
	}
}

// Driver runs reconciliation passes. It is safe for concurrent use; a pass
// that finishes after a newer one has published is discarded.
type Driver struct {
	lister    Lister
	assembler Assembler
	publisher Publisher
	journal   Journal
	opts      Options
	metrics   metrics.Recorder
	logger    *slog.Logger
	passes    atomic.Uint64
	now       func() time.Time
}

// NewDriver creates a driver. journal and rec may be nil.
func NewDriver(lister Lister, assembler Assembler, publisher Publisher, journal Journal, opts Options, rec metrics.Recorder, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{
		lister:    lister,
		assembler: assembler,
		publisher: publisher,
		journal:   journal,
		opts:      opts.withDefaults(),
		metrics:   metrics.OrNop(rec),
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one full pass and never panics. A systemic failure leaves the
// previous collection published and is reported once in Report.Err.
func (d *Driver) Run(ctx context.Context) (report Report) {
	report.Pass = d.passes.Add(1)
	report.Started = d.now()

	ctx, span := tracer.Start(ctx, "reconcile.Run", trace.WithAttributes(
		attribute.Int64("cairn.pass", int64(report.Pass)),
	))

	defer func() {
		if r := recover(); r != nil {
			report.Err = fmt.Errorf("%w: %v", ErrPassPanicked, r)
		}
		report.Finished = d.now()
		report.Elapsed = report.Finished.Sub(report.Started)
		d.finish(ctx, span, report)
	}()

	summaries, err := d.listAll(ctx)
	if err != nil {
		report.Err = err
		return report
	}
	report.Listed = len(summaries)

	results := fanout.Map(ctx, d.opts.Concurrency, summaries, d.assembler.Assemble)

	published := make([]project.Project, 0, len(results))
	for i, res := range results {
		if res.Err != nil || res.Value == nil {
			report.Dropped++
			d.logger.Debug("dropping project", "pass", report.Pass, "project_id", summaries[i].ProjectAddress, "error", res.Err)
			continue
		}
		published = append(published, *res.Value)
	}

	if err := ctx.Err(); err != nil {
		report.Err = fmt.Errorf("pass abandoned: %w", err)
		return report
	}

	report.Published = len(published)
	report.Stale = !d.publisher.Publish(report.Pass, published)
	return report
}

// Refresh runs a pass and returns its systemic error, if any.
func (d *Driver) Refresh(ctx context.Context) error {
	return d.Run(ctx).Err
}

// listAll pages through the ledger until a short page. Summaries are ordered
// by ledger sequence and deduplicated by project id; the lowest sequence wins.
func (d *Driver) listAll(ctx context.Context) ([]project.Summary, error) {
	var all []project.Summary

	for page := 0; page < d.opts.MaxPages; page++ {
		offset := page * d.opts.PageSize
		batch, err := d.lister.ListProjects(ctx, offset, d.opts.PageSize)
		if err != nil {
			return nil, fmt.Errorf("listing projects at offset %d: %w", offset, err)
		}
		all = append(all, batch...)
		if len(batch) < d.opts.PageSize {
			break
		}
		if page == d.opts.MaxPages-1 {
			d.logger.Warn("project listing truncated", "max_pages", d.opts.MaxPages, "page_size", d.opts.PageSize)
		}
	}

	slices.SortStableFunc(all, func(a, b project.Summary) int {
		return cmp.Compare(a.Sequence, b.Sequence)
	})

	seen := make(map[string]struct{}, len(all))
	unique := all[:0]
	for _, s := range all {
		if _, dup := seen[s.ProjectAddress]; dup {
			continue
		}
		seen[s.ProjectAddress] = struct{}{}
		unique = append(unique, s)
	}
	return unique, nil
}

func (d *Driver) finish(ctx context.Context, span trace.Span, report Report) {
	defer span.End()
	span.SetAttributes(
		attribute.Int("cairn.listed", report.Listed),
		attribute.Int("cairn.published", report.Published),
		attribute.Int("cairn.dropped", report.Dropped),
	)

	d.metrics.PassFinished(report.Outcome(), report.Elapsed, report.Published, report.Dropped)

	switch {
	case report.Err != nil:
		span.SetStatus(codes.Error, report.Err.Error())
		d.logger.Error("reconciliation failed", "pass", report.Pass, "error", report.Err)
	case report.Stale:
		d.logger.Info("reconciliation superseded", "pass", report.Pass, "published", report.Published)
	default:
		d.logger.Info("reconciliation complete",
			"pass", report.Pass,
			"listed", report.Listed,
			"published", report.Published,
			"dropped", report.Dropped,
			"elapsed", report.Elapsed,
		)
	}

	if d.journal != nil {
		if err := d.journal.RecordPass(context.WithoutCancel(ctx), report); err != nil {
			d.logger.Warn("recording pass", "pass", report.Pass, "error", err)
		}
	}
}
