package contract

import (
	"context"

	"github.com/huangsam/perfwatch/schema"
	"github.com/stretchr/testify/mock"
)

// MockCollector is a mock implementation of Collector for testing.
type MockCollector struct {
	mock.Mock
}

var _ Collector = &MockCollector{} // Compile-time check

// ID implements the Collector interface.
func (m *MockCollector) ID() string {
	return m.Called().String(0)
}

// SupportedMetricTypes implements the Collector interface.
func (m *MockCollector) SupportedMetricTypes() []schema.MetricType {
	ret := m.Called()
	types, _ := ret.Get(0).([]schema.MetricType)
	return types
}

// IsAvailable implements the Collector interface.
func (m *MockCollector) IsAvailable() bool {
	return m.Called().Bool(0)
}

// CollectMetrics implements the Collector interface.
func (m *MockCollector) CollectMetrics(ctx context.Context, projectPath, projectName string) ([]schema.MetricRecord, error) {
	args := m.Called(ctx, projectPath, projectName)
	records, _ := args.Get(0).([]schema.MetricRecord)
	return records, args.Error(1)
}

// MockGitClient is a mock implementation of GitClient for testing.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	ret := m.Called(ctx, repoPath, args)
	out, _ := ret.Get(0).([]byte)
	return out, ret.Error(1)
}

// GetRepoHash implements the GitClient interface.
func (m *MockGitClient) GetRepoHash(ctx context.Context, repoPath string) (string, error) {
	args := m.Called(ctx, repoPath)
	return args.String(0), args.Error(1)
}

// GetBranchName implements the GitClient interface.
func (m *MockGitClient) GetBranchName(ctx context.Context, repoPath string) (string, error) {
	args := m.Called(ctx, repoPath)
	return args.String(0), args.Error(1)
}

// GetRepoRoot implements the GitClient interface.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	args := m.Called(ctx, contextPath)
	return args.String(0), args.Error(1)
}

// MockCommandRunner is a mock implementation of CommandRunner for testing.
type MockCommandRunner struct {
	mock.Mock
}

var _ CommandRunner = &MockCommandRunner{} // Compile-time check

// LookPath implements the CommandRunner interface.
func (m *MockCommandRunner) LookPath(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

// Run implements the CommandRunner interface.
func (m *MockCommandRunner) Run(ctx context.Context, dir string, name string, args ...string) (*RunResult, error) {
	ret := m.Called(ctx, dir, name, args)
	res, _ := ret.Get(0).(*RunResult)
	return res, ret.Error(1)
}
