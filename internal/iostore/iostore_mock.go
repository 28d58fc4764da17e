package iostore

import (
	"context"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"github.com/stretchr/testify/mock"
)

// MockMetricStore is a mock implementation of MetricStore for testing.
type MockMetricStore struct {
	mock.Mock
}

var _ contract.MetricStore = &MockMetricStore{} // Compile-time check

func mockRecords(args mock.Arguments) []schema.MetricRecord {
	out, _ := args.Get(0).([]schema.MetricRecord)
	return out
}

// StoreMetrics implements the MetricStore interface.
func (m *MockMetricStore) StoreMetrics(ctx context.Context, records []schema.MetricRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

// RetrieveMetrics implements the MetricStore interface.
func (m *MockMetricStore) RetrieveMetrics(ctx context.Context, project string, tr schema.TimeRange) ([]schema.MetricRecord, error) {
	args := m.Called(ctx, project, tr)
	return mockRecords(args), args.Error(1)
}

// RetrieveMetricsForCommit implements the MetricStore interface.
func (m *MockMetricStore) RetrieveMetricsForCommit(ctx context.Context, commitHash, project string) ([]schema.MetricRecord, error) {
	args := m.Called(ctx, commitHash, project)
	return mockRecords(args), args.Error(1)
}

// RetrieveMetricsByType implements the MetricStore interface.
func (m *MockMetricStore) RetrieveMetricsByType(ctx context.Context, metricType schema.MetricType, project string, tr schema.TimeRange) ([]schema.MetricRecord, error) {
	args := m.Called(ctx, metricType, project, tr)
	return mockRecords(args), args.Error(1)
}

// RetrieveLatestMetrics implements the MetricStore interface.
func (m *MockMetricStore) RetrieveLatestMetrics(ctx context.Context, project string, limit int) ([]schema.MetricRecord, error) {
	args := m.Called(ctx, project, limit)
	return mockRecords(args), args.Error(1)
}

// DeleteMetrics implements the MetricStore interface.
func (m *MockMetricStore) DeleteMetrics(ctx context.Context, olderThan time.Time) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

// Status implements the MetricStore interface.
func (m *MockMetricStore) Status(ctx context.Context) (schema.StoreStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the MetricStore interface.
func (m *MockMetricStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
