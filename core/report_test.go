package core

import (
	"context"
	"testing"
	"time"

	"github.com/huangsam/perfwatch/internal/iostore"
	"github.com/huangsam/perfwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T, records ...schema.MetricRecord) *iostore.MemoryStore {
	t.Helper()
	store := iostore.NewMemoryStore()
	require.NoError(t, store.StoreMetrics(context.Background(), records))
	return store
}

func TestGenerateReportWithoutBaseline(t *testing.T) {
	later := newRecord(t, schema.BuildDuration, 2, baseTime.Add(time.Hour), "c2")
	earlier := newRecord(t, schema.BuildDuration, 1, baseTime, "c1")
	outside := newRecord(t, schema.BuildDuration, 3, baseTime.Add(72*time.Hour), "c3")
	store := seedStore(t, later, earlier, outside)

	cfg := newTestConfig()
	report, err := NewReportEngine(cfg, store, nil).GenerateReport(context.Background(), cfg.TimeRange())
	require.NoError(t, err)
	assert.Equal(t, "demo", report.ProjectName)
	require.Len(t, report.Metrics, 2)
	assert.Equal(t, earlier.ID, report.Metrics[0].ID)
	assert.Equal(t, later.ID, report.Metrics[1].ID)
	assert.Nil(t, report.Baseline)
	assert.False(t, report.HasRegressions())
}

func TestGenerateReportWithBaseline(t *testing.T) {
	store := seedStore(t,
		newRecord(t, schema.BuildDuration, 10, baseTime, "base"),
		newRecord(t, schema.BuildDuration, 13, baseTime.Add(time.Hour), "head"),
	)
	cfg := newTestConfig()
	cfg.BaselineCommit = "base"

	report, err := NewReportEngine(cfg, store, nil).GenerateReport(context.Background(), cfg.TimeRange())
	require.NoError(t, err)
	require.NotNil(t, report.Baseline)
	assert.Equal(t, "base", report.Baseline.BaselineID)
	// The window includes the baseline's own records: mean(10, 13) vs 10
	require.Len(t, report.Baseline.Regressions, 1)
	assert.InDelta(t, 15.0, report.Baseline.Regressions[0].PercentChange, 1e-9)
	assert.True(t, report.HasRegressions())
}

func TestGenerateReportBaselineWithoutRecords(t *testing.T) {
	store := seedStore(t, newRecord(t, schema.BuildDuration, 10, baseTime, "head"))
	cfg := newTestConfig()
	cfg.BaselineCommit = "unknown"

	report, err := NewReportEngine(cfg, store, nil).GenerateReport(context.Background(), cfg.TimeRange())
	require.NoError(t, err)
	assert.Nil(t, report.Baseline)
	assert.Len(t, report.Metrics, 1)
}

func TestGenerateReportEmptyWindow(t *testing.T) {
	cfg := newTestConfig()
	report, err := NewReportEngine(cfg, iostore.NewMemoryStore(), nil).GenerateReport(context.Background(), cfg.TimeRange())
	require.NoError(t, err)
	assert.NotNil(t, report.Metrics)
	assert.Empty(t, report.Metrics)
}

func TestGenerateReportIsIdempotent(t *testing.T) {
	store := seedStore(t,
		newRecord(t, schema.BuildDuration, 10, baseTime, "base"),
		newRecord(t, schema.TestDuration, 4, baseTime, "base"),
		newRecord(t, schema.BuildDuration, 9, baseTime.Add(time.Hour), "head"),
		newRecord(t, schema.TestDuration, 4.5, baseTime.Add(time.Hour), "head"),
	)
	cfg := newTestConfig()
	cfg.BaselineCommit = "base"
	engine := NewReportEngine(cfg, store, nil)
	engine.now = func() time.Time { return baseTime }

	first, err := engine.GenerateReport(context.Background(), cfg.TimeRange())
	require.NoError(t, err)
	second, err := engine.GenerateReport(context.Background(), cfg.TimeRange())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateReportErrors(t *testing.T) {
	t.Run("missing project", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.ProjectName = ""
		_, err := NewReportEngine(cfg, iostore.NewMemoryStore(), nil).GenerateReport(context.Background(), cfg.TimeRange())
		assert.ErrorIs(t, err, schema.ErrConfiguration)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &iostore.MockMetricStore{}
		store.On("RetrieveMetrics", mock.Anything, "demo", mock.Anything).Return(nil, schema.NewStorageFailure("read", nil))
		cfg := newTestConfig()
		_, err := NewReportEngine(cfg, store, nil).GenerateReport(context.Background(), cfg.TimeRange())
		assert.ErrorIs(t, err, schema.ErrStorageFailure)
		store.AssertExpectations(t)
	})
}
