package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-dedup/internal/cache"
	"github.com/sells-group/lead-dedup/internal/pipeline"
	"github.com/sells-group/lead-dedup/internal/store"
	"github.com/sells-group/lead-dedup/internal/validation"
)

// pipelineEnv holds the engine and the resources it owns.
type pipelineEnv struct {
	Store    store.Store
	Verdicts *cache.Cache[validation.Verdict]
	Pipeline *pipeline.Pipeline
}

// Close releases the ledger connection, if any.
func (e *pipelineEnv) Close() {
	if e.Store == nil {
		return
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("failed to close store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open run ledger")
	}
	return st, nil
}

// initPipeline builds the engine from cfg. The ledger is skipped when
// withStore is false.
func initPipeline(ctx context.Context, withStore bool) (*pipelineEnv, error) {
	env := &pipelineEnv{
		Verdicts: cache.New[validation.Verdict](cache.Options{
			TTL:      cfg.Cache.TTL(),
			MaxItems: cfg.Cache.MaxItems,
		}),
	}

	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}

	p, err := pipeline.FromConfig(cfg, env.Store, env.Verdicts)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "build pipeline")
	}
	env.Pipeline = p

	zap.L().Debug("pipeline initialized",
		zap.Stringer("rules", p.Rules()),
		zap.Bool("ledger", withStore),
	)
	return env, nil
}
