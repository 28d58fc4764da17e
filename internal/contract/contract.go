// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/perfwatch/schema"
)

// Collector is a pluggable producer of metric records from one measurement source.
type Collector interface {
	// ID is the stable key used for enablement lookups.
	ID() string

	// SupportedMetricTypes declares the metric types the collector can emit.
	// The result never changes at runtime.
	SupportedMetricTypes() []schema.MetricType

	// IsAvailable probes the environment for the collector's tooling.
	// It has no side effects and returns quickly.
	IsAvailable() bool

	// CollectMetrics measures the project. It enforces its own timeout and
	// returns a *schema.CollectorError on failure.
	CollectMetrics(ctx context.Context, projectPath, projectName string) ([]schema.MetricRecord, error)
}

// MetricStore persists metric records and answers queries over them.
// Records are append-only: there is no update operation.
type MetricStore interface {
	// StoreMetrics bulk inserts records.
	StoreMetrics(ctx context.Context, records []schema.MetricRecord) error

	// RetrieveMetrics returns the project's records inside the window, ends included.
	RetrieveMetrics(ctx context.Context, project string, tr schema.TimeRange) ([]schema.MetricRecord, error)

	// RetrieveMetricsForCommit returns the project's records taken at the commit.
	RetrieveMetricsForCommit(ctx context.Context, commitHash, project string) ([]schema.MetricRecord, error)

	// RetrieveMetricsByType returns the project's records of one type inside the window.
	RetrieveMetricsByType(ctx context.Context, metricType schema.MetricType, project string, tr schema.TimeRange) ([]schema.MetricRecord, error)

	// RetrieveLatestMetrics returns up to limit records, newest first.
	RetrieveLatestMetrics(ctx context.Context, project string, limit int) ([]schema.MetricRecord, error)

	// DeleteMetrics removes every record older than the cutoff across all projects
	// and returns how many were removed.
	DeleteMetrics(ctx context.Context, olderThan time.Time) (int, error)

	// Status returns summary information about the store.
	Status(ctx context.Context) (schema.StoreStatus, error)

	// Close releases the store's resources.
	Close() error
}

// RunResult captures the outcome of one subprocess.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
	PeakRSS  uint64 // bytes, 0 when sampling was not possible
	ExitCode int
}

// CommandRunner executes external tools on behalf of collectors.
// This allows collectors to be tested without the real toolchain.
type CommandRunner interface {
	// LookPath resolves a tool name to an executable path.
	LookPath(name string) (string, error)

	// Run executes the command in dir and waits for it. A non-zero exit is
	// reported through RunResult.ExitCode, not as an error.
	Run(ctx context.Context, dir string, name string, args ...string) (*RunResult, error)
}

// GitClient resolves provenance for collected records.
// This allows collectors to be tested without needing a real git executable.
type GitClient interface {
	// Run executes a git command and returns its output.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// GetRepoHash returns the current HEAD commit hash of the repository.
	GetRepoHash(ctx context.Context, repoPath string) (string, error)

	// GetBranchName returns the checked out branch, or "HEAD" when detached.
	GetBranchName(ctx context.Context, repoPath string) (string, error)

	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)
}
