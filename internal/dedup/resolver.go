// Package dedup finds and collapses duplicate lead records: an exact-key
// pre-pass, batch-local pairwise matching on a worker pool, then
// connected-component clustering over all edges.
package dedup

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-dedup/internal/cluster"
	"github.com/sells-group/lead-dedup/internal/match"
	"github.com/sells-group/lead-dedup/internal/model"
)

// DefaultBatchSize bounds the records compared pairwise in one batch.
const DefaultBatchSize = 5000

// Options configures a Resolver.
type Options struct {
	BatchSize   int
	UseParallel bool
	MaxWorkers  int
	// Pool overrides the pool chosen from UseParallel and MaxWorkers. The
	// caller keeps ownership and must close it.
	Pool Pool
}

// Result is the outcome of one Resolve call.
type Result struct {
	Records  []model.Record
	Clusters []cluster.Cluster
	Stats    model.Stats
	Failures []*model.BatchFailure
}

// Resolver deduplicates record sets with a fixed rule set.
type Resolver struct {
	rules match.RuleSet
	opts  Options
}

// NewResolver validates rules and opts. An empty rule set uses the
// default rules.
func NewResolver(rules match.RuleSet, opts Options) (*Resolver, error) {
	if len(rules) == 0 {
		rules = match.DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		return nil, &model.ConfigurationError{Setting: "batch_size", Reason: "must be positive"}
	}
	return &Resolver{rules: rules, opts: opts}, nil
}

// Rules returns the rule set in use.
func (r *Resolver) Rules() match.RuleSet { return r.rules }

// Resolve clusters records and returns one survivor per cluster in
// survivor index order. The input slice is not modified.
//
// Fuzzy comparison is batch-local: duplicates that fall in different
// batches are only merged if some other edge links them. For the same
// reason Resolve is idempotent only when its input fits in one batch: a
// rerun over multi-batch output can place a surviving cross-batch pair in
// the same batch and merge it.
//
// A failed batch leaves its records unclustered. When ctx is cancelled no
// further batches are dispatched and the partial result is flagged
// Truncated; records of undispatched batches pass through as singletons.
func (r *Resolver) Resolve(ctx context.Context, records []model.Record) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.Int("records", len(records)), zap.Int("batch_size", r.opts.BatchSize))

	edges, remaining, groups := exactPrepass(records, r.rules.PrepassFields())

	batches := chunk(remaining, r.opts.BatchSize)
	pool, owned := r.pool()

	type pending struct {
		task   Task
		future Future
	}
	var (
		submitted []pending
		truncated bool
	)
	for i, idx := range batches {
		if err := ctx.Err(); err != nil {
			truncated = true
			log.Warn("dedup: cancelled, stopping batch dispatch",
				zap.Int("dispatched", i),
				zap.Int("remaining_batches", len(batches)-i),
				zap.Error(err))
			break
		}
		t := Task{Batch: i, Indices: idx, Run: compareTask(records, idx, r.rules)}
		submitted = append(submitted, pending{task: t, future: pool.Submit(ctx, t)})
		log.Debug("dedup: batch dispatched", zap.Int("batch", i), zap.Int("size", len(idx)))
	}

	var failures []*model.BatchFailure
	for _, p := range submitted {
		res := p.future.Wait()
		if res.Err != nil {
			bf := &model.BatchFailure{Batch: p.task.Batch, Indices: p.task.Indices, Cause: res.Err}
			failures = append(failures, bf)
			log.Error("dedup: batch failed, records left unclustered",
				zap.Int("batch", bf.Batch),
				zap.Int("size", len(bf.Indices)),
				zap.Error(res.Err))
			continue
		}
		edges = append(edges, res.Edges...)
	}
	if owned {
		if err := pool.Close(); err != nil {
			return nil, eris.Wrap(err, "dedup: close pool")
		}
	}

	clusters := cluster.Resolve(records, edges)
	out := cluster.Merge(records, clusters)

	stats := model.Stats{
		InputCount:           len(records),
		OutputCount:          len(out),
		RemovedCount:         len(records) - len(out),
		RemovedPercentage:    model.RemovedPercent(len(records), len(records)-len(out)),
		ClusterSizeHistogram: cluster.Histogram(clusters),
		ExactGroups:          groups,
		BatchesDispatched:    len(submitted),
		UnclusteredBatches:   len(failures),
		Truncated:            truncated,
	}

	log.Info("dedup: complete",
		zap.Int("output", stats.OutputCount),
		zap.Int("removed", stats.RemovedCount),
		zap.Int("exact_groups", groups),
		zap.Int("batches", stats.BatchesDispatched),
		zap.Int("failed_batches", stats.UnclusteredBatches),
		zap.Bool("truncated", truncated),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{Records: out, Clusters: clusters, Stats: stats, Failures: failures}, nil
}

func (r *Resolver) pool() (Pool, bool) {
	switch {
	case r.opts.Pool != nil:
		return r.opts.Pool, false
	case r.opts.UseParallel:
		return NewWorkerPool(r.opts.MaxWorkers), true
	default:
		return SyncPool{}, true
	}
}

// exactPrepass groups records sharing a normalized key on fields. Each
// group of two or more becomes a chain of edges, and only its provisional
// survivor goes on to fuzzy comparison. It returns those edges, the
// indices left for batching in ascending order, and the group count.
func exactPrepass(records []model.Record, fields []string) ([]cluster.Edge, []int, int) {
	remaining := make([]int, 0, len(records))
	if len(fields) == 0 {
		for i := range records {
			remaining = append(remaining, i)
		}
		return nil, remaining, 0
	}

	byKey := make(map[string][]int)
	var order []string
	for i, rec := range records {
		key, ok := match.Key(rec, fields)
		if !ok {
			continue
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], i)
	}

	excluded := make(map[int]bool)
	var (
		edges  []cluster.Edge
		groups int
	)
	for _, key := range order {
		members := byKey[key]
		if len(members) < 2 {
			continue
		}
		groups++
		edges = append(edges, cluster.Clique(members)...)
		keep := cluster.SelectSurvivor(records, members)
		for _, m := range members {
			if m != keep {
				excluded[m] = true
			}
		}
	}

	for i := range records {
		if !excluded[i] {
			remaining = append(remaining, i)
		}
	}
	return edges, remaining, groups
}

func chunk(indices []int, size int) [][]int {
	var out [][]int
	for start := 0; start < len(indices); start += size {
		end := min(start+size, len(indices))
		out = append(out, indices[start:end:end])
	}
	return out
}

// compareTask evaluates rules over every unordered pair within one batch.
// It only reads records, so batches can run concurrently.
func compareTask(records []model.Record, indices []int, rules match.RuleSet) func(context.Context) ([]cluster.Edge, error) {
	return func(context.Context) ([]cluster.Edge, error) {
		var edges []cluster.Edge
		for i := 0; i < len(indices); i++ {
			a := records[indices[i]]
			for j := i + 1; j < len(indices); j++ {
				if rules.Evaluate(a, records[indices[j]]) {
					edges = append(edges, cluster.Edge{A: indices[i], B: indices[j]})
				}
			}
		}
		return edges, nil
	}
}
