// Package pipeline runs the end-to-end engine: deduplicate, validate the
// survivors, filter by quality score and summarize, recording each run in
// the ledger.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-dedup/internal/cache"
	"github.com/sells-group/lead-dedup/internal/cluster"
	"github.com/sells-group/lead-dedup/internal/config"
	"github.com/sells-group/lead-dedup/internal/dedup"
	"github.com/sells-group/lead-dedup/internal/match"
	"github.com/sells-group/lead-dedup/internal/model"
	"github.com/sells-group/lead-dedup/internal/quality"
	"github.com/sells-group/lead-dedup/internal/store"
	"github.com/sells-group/lead-dedup/internal/validation"
)

// Options configures a Pipeline.
type Options struct {
	MinQualityScore int
	// Store records runs. May be nil.
	Store store.Store
}

// Output is the result of one pipeline run.
type Output struct {
	RunID        string
	Deduplicated []model.Record
	Clusters     []cluster.Cluster
	Failures     []*model.BatchFailure
	Annotated    []validation.Annotated
	Filtered     []validation.Annotated
	Stats        model.Stats
	Report       quality.Report
}

// Records returns the filtered, annotated records ready for export.
func (o *Output) Records() []model.Record {
	return validation.Records(o.Filtered)
}

// Pipeline composes a Resolver and a Validator.
type Pipeline struct {
	resolver  *dedup.Resolver
	validator *validation.Validator
	minScore  int
	store     store.Store
}

// New creates a Pipeline. resolver may be nil for validation-only use.
func New(resolver *dedup.Resolver, validator *validation.Validator, opts Options) *Pipeline {
	return &Pipeline{
		resolver:  resolver,
		validator: validator,
		minScore:  opts.MinQualityScore,
		store:     opts.Store,
	}
}

// FromConfig builds the resolver and validator described by cfg. verdicts
// may be nil to disable memoization.
func FromConfig(cfg *config.Config, st store.Store, verdicts *cache.Cache[validation.Verdict]) (*Pipeline, error) {
	mopts, err := cfg.Dedup.MatchOptions()
	if err != nil {
		return nil, err
	}
	rules, err := match.Build(mopts)
	if err != nil {
		return nil, err
	}
	resolver, err := dedup.NewResolver(rules, dedup.Options{
		BatchSize:   cfg.Dedup.BatchSize,
		UseParallel: cfg.Dedup.UseParallel,
		MaxWorkers:  cfg.Dedup.MaxWorkers,
	})
	if err != nil {
		return nil, err
	}

	mode, err := validation.ParseMode(cfg.Validation.ValidMode)
	if err != nil {
		return nil, err
	}
	validator, err := validation.New(validation.Options{
		Mode:           mode,
		DefaultCountry: cfg.Validation.DefaultCountry,
		Weights:        quality.Weights(cfg.Validation.Weights),
		Cache:          verdicts,
	})
	if err != nil {
		return nil, err
	}

	return New(resolver, validator, Options{
		MinQualityScore: cfg.Validation.MinQualityScore,
		Store:           st,
	}), nil
}

// WithMinQualityScore returns a copy of p filtering at minScore.
func (p *Pipeline) WithMinQualityScore(minScore int) *Pipeline {
	cp := *p
	cp.minScore = minScore
	return &cp
}

// Rules returns the match rules in use, or nil without a resolver.
func (p *Pipeline) Rules() match.RuleSet {
	if p.resolver == nil {
		return nil
	}
	return p.resolver.Rules()
}

// Run deduplicates records, validates the survivors and filters them by
// quality score. input labels the run in the ledger. A cancelled context
// yields a partial result with Stats.Truncated set rather than an error.
func (p *Pipeline) Run(ctx context.Context, input string, records []model.Record) (*Output, error) {
	if p.resolver == nil {
		return nil, eris.New("pipeline: no resolver configured")
	}
	return p.run(ctx, input, records, true)
}

// Validate runs validation and filtering only.
func (p *Pipeline) Validate(ctx context.Context, input string, records []model.Record) (*Output, error) {
	return p.run(ctx, input, records, false)
}

func (p *Pipeline) run(ctx context.Context, input string, records []model.Record, withDedup bool) (*Output, error) {
	start := time.Now()
	log := zap.L().With(zap.String("input", input), zap.Int("records", len(records)))

	out := &Output{}
	if p.store != nil {
		// The ledger row is written even for an already cancelled ctx so a
		// truncated run is still recorded.
		run, err := p.store.CreateRun(context.WithoutCancel(ctx), input)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		out.RunID = run.ID
		log = log.With(zap.String("run_id", run.ID))
	}

	survivors := records
	if withDedup {
		res, err := p.resolver.Resolve(ctx, records)
		if err != nil {
			p.fail(ctx, log, out.RunID, err)
			return nil, eris.Wrap(err, "pipeline: dedup")
		}
		survivors = res.Records
		out.Clusters = res.Clusters
		out.Failures = res.Failures
		out.Stats = res.Stats
	} else {
		out.Stats = model.Stats{
			InputCount:  len(records),
			OutputCount: len(records),
		}
	}
	out.Deduplicated = survivors

	out.Annotated = p.validator.Process(survivors)
	out.Filtered = validation.FilterByQualityScore(out.Annotated, p.minScore)
	out.Report = quality.BuildReport(validation.Observations(out.Annotated))

	for _, a := range out.Annotated {
		if !a.Result.IsValid {
			out.Stats.InvalidRecordCount++
		}
	}
	out.Stats.FilteredCount = len(out.Annotated) - len(out.Filtered)

	if p.store != nil {
		// The ledger write outlives a cancelled run so truncation is recorded.
		if err := p.store.CompleteRun(context.WithoutCancel(ctx), out.RunID, out.Stats); err != nil {
			log.Warn("pipeline: failed to record run", zap.Error(err))
		}
	}

	log.Info("pipeline: complete",
		zap.Bool("dedup", withDedup),
		zap.Int("survivors", len(survivors)),
		zap.Int("kept", len(out.Filtered)),
		zap.Int("invalid", out.Stats.InvalidRecordCount),
		zap.Int("filtered", out.Stats.FilteredCount),
		zap.Bool("truncated", out.Stats.Truncated),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, runID string, cause error) {
	if p.store == nil {
		return
	}
	if err := p.store.FailRun(context.WithoutCancel(ctx), runID, cause); err != nil {
		log.Warn("pipeline: failed to record run failure", zap.Error(err))
	}
}
