// Package collector has the built-in metric collectors for Go projects.
package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"go.uber.org/zap"
)

// goTool is the executable every built-in collector drives.
const goTool = "go"

// maxStderrExcerpt bounds how much stderr lands in an error message.
const maxStderrExcerpt = 512

// Deps holds what the built-in collectors need from their environment.
type Deps struct {
	Config *contract.Config
	Runner contract.CommandRunner
	Git    contract.GitClient
	Logger *zap.Logger
}

// Builtins returns every known collector in registration order.
// One command collector is added per configured command.
func Builtins(deps Deps) []contract.Collector {
	collectors := []contract.Collector{
		NewBuildCollector(deps),
		NewTestCollector(deps),
		NewBenchmarkCollector(deps),
	}
	for _, spec := range deps.Config.Commands {
		collectors = append(collectors, NewCommandCollector(deps, spec))
	}
	return collectors
}

// base carries the plumbing shared by the built-in collectors.
type base struct {
	id      string
	tool    string
	timeout time.Duration
	runner  contract.CommandRunner
	git     contract.GitClient
	logger  *zap.Logger
}

func newBase(id, tool string, deps Deps) base {
	timeout := contract.DefaultCollectorTimeout
	if deps.Config != nil && deps.Config.CollectorTimeout > 0 {
		timeout = deps.Config.CollectorTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{
		id:      id,
		tool:    tool,
		timeout: timeout,
		runner:  deps.Runner,
		git:     deps.Git,
		logger:  logger.With(zap.String("collector", id)),
	}
}

// ID implements the Collector interface.
func (b *base) ID() string {
	return b.id
}

// IsAvailable implements the Collector interface.
func (b *base) IsAvailable() bool {
	_, err := b.runner.LookPath(b.tool)
	return err == nil
}

// fail tags a collector error with this collector's ID.
func (b *base) fail(err *schema.CollectorError) error {
	return err.WithCollector(b.id)
}

// run executes the tool under the collector's private timeout.
// Only a missing tool, an expired budget or a failure to start are errors;
// callers inspect the exit code themselves.
func (b *base) run(ctx context.Context, dir, operation string, args ...string) (*contract.RunResult, error) {
	if _, err := b.runner.LookPath(b.tool); err != nil {
		return nil, b.fail(schema.NewToolNotFound(b.tool))
	}

	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	b.logger.Debug("running", zap.String("operation", operation), zap.Strings("args", args))
	res, err := b.runner.Run(runCtx, dir, b.tool, args...)
	if runCtx.Err() != nil {
		return nil, b.fail(schema.NewTimeout(operation))
	}
	if err != nil {
		return nil, b.fail(schema.NewExecutionFailed(operation, err))
	}
	b.logger.Debug("finished", zap.String("operation", operation), zap.Duration("duration", res.Duration), zap.Int("exit", res.ExitCode))
	return res, nil
}

// exitFailure describes a non-zero exit with an excerpt of stderr.
func (b *base) exitFailure(operation string, res *contract.RunResult) error {
	detail := fmt.Sprintf("%s exited with status %d", operation, res.ExitCode)
	if excerpt := stderrExcerpt(res.Stderr); excerpt != "" {
		detail += ": " + excerpt
	}
	return b.fail(schema.NewExecutionFailed(detail, nil))
}

// provenance resolves commit and branch once per collection.
// Projects outside Git simply get records without provenance.
func (b *base) provenance(ctx context.Context, projectPath string) schema.RecordOption {
	if b.git == nil {
		return func(*schema.MetricRecord) {}
	}
	hash, err := b.git.GetRepoHash(ctx, projectPath)
	if err != nil {
		b.logger.Debug("no commit provenance", zap.Error(err))
		return func(*schema.MetricRecord) {}
	}
	branch, err := b.git.GetBranchName(ctx, projectPath)
	if err != nil {
		branch = ""
	}
	return schema.WithProvenance(hash, branch)
}

// requireGoModule rejects directories that are not Go modules.
func requireGoModule(projectPath string) *schema.CollectorError {
	info, err := os.Stat(filepath.Join(projectPath, "go.mod"))
	if err != nil || info.IsDir() {
		return schema.NewUnsupportedProject(fmt.Sprintf("no go.mod in %s", projectPath))
	}
	return nil
}

// stderrExcerpt returns the tail of stderr, trimmed to a readable size.
func stderrExcerpt(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > maxStderrExcerpt {
		s = "..." + s[len(s)-maxStderrExcerpt:]
	}
	return s
}

// newRecord builds a record and converts construction failures into parsing errors.
func newRecord(source schema.MetricSource, metricType schema.MetricType, value float64, project string, opts ...schema.RecordOption) (schema.MetricRecord, error) {
	r, err := schema.NewMetricRecord(source, metricType, value, project, opts...)
	if err != nil {
		var se *schema.StorageError
		if errors.As(err, &se) {
			return r, schema.NewDataParsingFailed(se.Reason, nil)
		}
		return r, schema.NewDataParsingFailed("invalid record", err)
	}
	return r, nil
}
