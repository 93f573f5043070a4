// Package store persists the run ledger: one row per engine invocation
// with its status and summary statistics. Records themselves are never
// stored.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-dedup/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Input  string          `json:"input,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// defaultListLimit caps ListRuns when the filter sets no limit.
const defaultListLimit = 100

// Store defines the persistence interface for the run ledger.
type Store interface {
	CreateRun(ctx context.Context, input string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, stats model.Stats) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the ledger for driver ("sqlite" or "postgres") and
// applies the schema.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "lead-dedup.db"
		}
		st, err = NewSQLite(dsn)
	case "postgres":
		st, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, &model.ConfigurationError{Setting: "store.driver", Reason: "unsupported driver " + driver}
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func errorText(cause error) string {
	if cause == nil {
		return "unknown error"
	}
	return cause.Error()
}

func notFound(id string) error {
	return eris.Errorf("run not found: %s", id)
}
