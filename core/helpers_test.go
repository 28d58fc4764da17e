package core

import (
	"context"
	"testing"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// fakeCollector is a hand-rolled collector for scenarios a mock cannot express, like blocking or panicking.
type fakeCollector struct {
	id        string
	types     []schema.MetricType
	available bool
	collect   func(ctx context.Context, projectPath, projectName string) ([]schema.MetricRecord, error)
}

var _ contract.Collector = &fakeCollector{}

func (f *fakeCollector) ID() string                                { return f.id }
func (f *fakeCollector) SupportedMetricTypes() []schema.MetricType { return f.types }
func (f *fakeCollector) IsAvailable() bool                         { return f.available }
func (f *fakeCollector) CollectMetrics(ctx context.Context, projectPath, projectName string) ([]schema.MetricRecord, error) {
	return f.collect(ctx, projectPath, projectName)
}

// returning builds a collector that always emits the given records.
func returning(id string, records ...schema.MetricRecord) *fakeCollector {
	return &fakeCollector{id: id, available: true, collect: func(context.Context, string, string) ([]schema.MetricRecord, error) {
		return records, nil
	}}
}

// failing builds a collector that always fails with err.
func failing(id string, err error) *fakeCollector {
	return &fakeCollector{id: id, available: true, collect: func(context.Context, string, string) ([]schema.MetricRecord, error) {
		return nil, err
	}}
}

func newTestConfig(collectors ...string) *contract.Config {
	return &contract.Config{
		ProjectName:       "demo",
		EnabledCollectors: collectors,
		Storage:           contract.StorageConfig{Backend: schema.MemoryBackend},
		Precision:         2,
		ResultLimit:       contract.DefaultResultLimit,
		Output:            schema.JSONOut,
		StartTime:         baseTime.Add(-24 * time.Hour),
		EndTime:           baseTime.Add(24 * time.Hour),
	}
}

func newRecord(t *testing.T, metricType schema.MetricType, value float64, ts time.Time, commit string) schema.MetricRecord {
	t.Helper()
	r, err := schema.NewMetricRecord(schema.BuildSource, metricType, value, "demo",
		schema.WithTimestamp(ts),
		schema.WithProvenance(commit, "main"))
	require.NoError(t, err)
	return r
}
