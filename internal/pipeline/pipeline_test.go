package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-dedup/internal/cache"
	"github.com/sells-group/lead-dedup/internal/config"
	"github.com/sells-group/lead-dedup/internal/dedup"
	"github.com/sells-group/lead-dedup/internal/match"
	"github.com/sells-group/lead-dedup/internal/model"
	"github.com/sells-group/lead-dedup/internal/store"
	"github.com/sells-group/lead-dedup/internal/validation"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, input string) (*model.Run, error) {
	args := m.Called(ctx, input)
	run, _ := args.Get(0).(*model.Run)
	return run, args.Error(1)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, stats model.Stats) error {
	return m.Called(ctx, runID, stats).Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID string, cause error) error {
	return m.Called(ctx, runID, cause).Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	run, _ := args.Get(0).(*model.Run)
	return run, args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	runs, _ := args.Get(0).([]model.Run)
	return runs, args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *mockStore) Close() error { return m.Called().Error(0) }

func newPipeline(t *testing.T, st store.Store, minScore int) *Pipeline {
	t.Helper()
	resolver, err := dedup.NewResolver(nil, dedup.Options{BatchSize: dedup.DefaultBatchSize})
	require.NoError(t, err)
	validator, err := validation.New(validation.Options{})
	require.NoError(t, err)
	return New(resolver, validator, Options{MinQualityScore: minScore, Store: st})
}

func scenarioA() []model.Record {
	return []model.Record{
		model.RecordFromStrings("business_name", "Café Sol", "phone", "+52 55 1234 5678", "email", "a@sol.com"),
		model.RecordFromStrings("business_name", "Cafe Sol", "phone", "5255 12345678", "email", "a@sol.com"),
		model.RecordFromStrings("business_name", "Ferretería Norte", "phone", "+57 300 123 4567", "email", "ventas@norte.co", "location", "Bogotá"),
	}
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	st, err := store.Open(context.Background(), "sqlite", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	p := newPipeline(t, st, 0)
	records := scenarioA()

	out, err := p.Run(context.Background(), "leads.csv", records)
	require.NoError(t, err)

	require.Len(t, out.Deduplicated, 2)
	assert.Equal(t, "Café Sol", out.Deduplicated[0].Text("business_name"))
	require.Len(t, out.Clusters, 2)
	assert.Equal(t, []int{0, 1}, out.Clusters[0].Members)

	assert.Equal(t, 3, out.Stats.InputCount)
	assert.Equal(t, 2, out.Stats.OutputCount)
	assert.Equal(t, 1, out.Stats.RemovedCount)
	assert.Equal(t, 0, out.Stats.FilteredCount)
	assert.Len(t, out.Annotated, 2)
	assert.Len(t, out.Records(), 2)
	assert.Equal(t, 2, out.Report.Total)
	assert.Equal(t, "true", out.Records()[0].Text(validation.FieldIsValid))

	assert.Equal(t, 3, records[1].Len(), "input records are not modified")

	run, err := st.GetRun(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Stats)
	assert.Equal(t, 2, run.Stats.OutputCount)
}

func TestPipeline_Run_FiltersByScore(t *testing.T) {
	records := append(scenarioA(),
		model.RecordFromStrings("business_name", "Solo Nombre"),
		model.RecordFromStrings("email", "bad"),
	)

	out, err := newPipeline(t, nil, 70).Run(context.Background(), "api", records)
	require.NoError(t, err)

	assert.Empty(t, out.RunID)
	assert.Len(t, out.Deduplicated, 4)
	assert.Len(t, out.Filtered, 2)
	assert.Equal(t, 2, out.Stats.FilteredCount)
	assert.Equal(t, 2, out.Stats.InvalidRecordCount)
	for _, a := range out.Filtered {
		assert.GreaterOrEqual(t, a.Result.QualityScore, 70)
	}
}

func TestPipeline_Validate_SkipsDedup(t *testing.T) {
	out, err := newPipeline(t, nil, 0).Validate(context.Background(), "api", scenarioA())
	require.NoError(t, err)

	assert.Len(t, out.Deduplicated, 3)
	assert.Len(t, out.Annotated, 3)
	assert.Equal(t, 3, out.Stats.InputCount)
	assert.Equal(t, 3, out.Stats.OutputCount)
	assert.Zero(t, out.Stats.RemovedCount)
	assert.Nil(t, out.Clusters)
}

func TestPipeline_ValidateOnlyHasNoResolver(t *testing.T) {
	validator, err := validation.New(validation.Options{})
	require.NoError(t, err)
	p := New(nil, validator, Options{})

	_, err = p.Run(context.Background(), "api", scenarioA())
	assert.Error(t, err)
	assert.Nil(t, p.Rules())

	out, err := p.Validate(context.Background(), "api", scenarioA())
	require.NoError(t, err)
	assert.Len(t, out.Annotated, 3)
}

func TestPipeline_Run_CreateRunError(t *testing.T) {
	st := &mockStore{}
	st.On("CreateRun", mock.Anything, "leads.csv").Return(nil, errors.New("disk full"))

	_, err := newPipeline(t, st, 0).Run(context.Background(), "leads.csv", scenarioA())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: create run")
	st.AssertExpectations(t)
}

func TestPipeline_Run_CompleteRunErrorIsLogged(t *testing.T) {
	st := &mockStore{}
	st.On("CreateRun", mock.Anything, "leads.csv").Return(&model.Run{ID: "run-1"}, nil)
	st.On("CompleteRun", mock.Anything, "run-1", mock.AnythingOfType("model.Stats")).Return(errors.New("locked"))

	out, err := newPipeline(t, st, 0).Run(context.Background(), "leads.csv", scenarioA())
	require.NoError(t, err)
	assert.Equal(t, "run-1", out.RunID)
	st.AssertExpectations(t)
}

func TestPipeline_Run_CancelledIsRecordedTruncated(t *testing.T) {
	st := &mockStore{}
	live := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	st.On("CreateRun", live, "leads.csv").Return(&model.Run{ID: "run-2"}, nil)
	st.On("CompleteRun", mock.Anything, "run-2", mock.MatchedBy(func(s model.Stats) bool {
		return s.Truncated && s.BatchesDispatched == 0
	})).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := newPipeline(t, st, 0).Run(ctx, "leads.csv", scenarioA())
	require.NoError(t, err)
	assert.True(t, out.Stats.Truncated)
	assert.Len(t, out.Deduplicated, 2, "the exact pre-pass still merges the shared email")
	st.AssertExpectations(t)
}

func TestPipeline_Run_CancelledBeforeStartWritesLedger(t *testing.T) {
	st, err := store.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := newPipeline(t, st, 0).Run(ctx, "leads.csv", scenarioA())
	require.NoError(t, err)
	require.NotEmpty(t, out.RunID)
	assert.True(t, out.Stats.Truncated)

	run, err := st.GetRun(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Stats)
	assert.True(t, run.Stats.Truncated)
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		Dedup: config.DedupConfig{
			Exact:       true,
			Fuzzy:       false,
			Threshold:   90,
			BatchSize:   100,
			MatchFields: []string{"email"},
		},
		Validation: config.ValidationConfig{
			ValidMode:       "either",
			DefaultCountry:  "MX",
			MinQualityScore: 50,
		},
	}

	p, err := FromConfig(cfg, nil, cache.New[validation.Verdict](cache.Options{}))
	require.NoError(t, err)
	assert.Equal(t, "exact(email)", p.Rules().String())
	assert.Equal(t, 50, p.minScore)
	assert.Equal(t, 10, p.WithMinQualityScore(10).minScore)
	assert.Equal(t, 50, p.minScore, "WithMinQualityScore copies")
}

func TestFromConfig_Errors(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{Dedup: config.DedupConfig{Exact: true, Fuzzy: true, Threshold: 80, BatchSize: 10}}
	}

	cfg := base()
	cfg.Dedup.BatchSize = 0
	_, err := FromConfig(cfg, nil, nil)
	var cfgErr *model.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	cfg = base()
	cfg.Dedup.Rules = []match.RuleConfig{{Type: "phonetic"}}
	_, err = FromConfig(cfg, nil, nil)
	assert.ErrorAs(t, err, &cfgErr)

	cfg = base()
	cfg.Validation.ValidMode = "sometimes"
	_, err = FromConfig(cfg, nil, nil)
	assert.ErrorAs(t, err, &cfgErr)
}
