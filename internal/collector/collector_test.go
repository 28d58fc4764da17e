package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newGoProject creates a directory that looks like a Go module.
func newGoProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/demo\n"), 0o644))
	return dir
}

// newDeps returns collector deps backed by mocks.
func newDeps(timeout time.Duration) (Deps, *contract.MockCommandRunner, *contract.MockGitClient) {
	runner := &contract.MockCommandRunner{}
	git := &contract.MockGitClient{}
	cfg := &contract.Config{CollectorTimeout: timeout, BenchPattern: "."}
	return Deps{Config: cfg, Runner: runner, Git: git, Logger: zap.NewNop()}, runner, git
}

func TestBuildCollectorCollectMetrics(t *testing.T) {
	dir := newGoProject(t)
	deps, runner, git := newDeps(time.Minute)
	runner.On("LookPath", "go").Return("/usr/bin/go", nil)
	runner.On("Run", mock.Anything, dir, "go", mock.Anything).
		Run(func(args mock.Arguments) {
			goArgs := args.Get(3).([]string)
			require.Equal(t, "build", goArgs[0])
			require.NoError(t, os.WriteFile(filepath.Join(goArgs[2], "demo"), make([]byte, 1024), 0o755))
		}).
		Return(&contract.RunResult{Duration: 12 * time.Second, PeakRSS: 1 << 20}, nil)
	git.On("GetRepoHash", mock.Anything, dir).Return("abc123", nil)
	git.On("GetBranchName", mock.Anything, dir).Return("main", nil)

	c := NewBuildCollector(deps)
	records, err := c.CollectMetrics(context.Background(), dir, "demo")
	require.NoError(t, err)
	require.Len(t, records, 3)

	byType := make(map[schema.MetricType]schema.MetricRecord)
	for _, r := range records {
		byType[r.Type] = r
		assert.Equal(t, "abc123", r.CommitHash)
		assert.Equal(t, "main", r.BranchName)
		assert.Equal(t, "demo", r.ProjectName)
	}
	assert.InDelta(t, 12.0, byType[schema.BuildDuration].Value, 1e-9)
	assert.Equal(t, schema.UnitSeconds, byType[schema.BuildDuration].Unit)
	assert.InDelta(t, float64(1<<20), byType[schema.MemoryUsage].Value, 1e-9)
	assert.InDelta(t, 1024.0, byType[schema.BinarySize].Value, 1e-9)
	assert.Equal(t, "demo", byType[schema.BinarySize].FilePath)
	assert.Equal(t, schema.BinarySource, byType[schema.BinarySize].Source)
}

func TestCollectorUnsupportedProject(t *testing.T) {
	deps, _, _ := newDeps(time.Minute)
	dir := t.TempDir()

	for _, c := range []contract.Collector{NewBuildCollector(deps), NewTestCollector(deps), NewBenchmarkCollector(deps)} {
		_, err := c.CollectMetrics(context.Background(), dir, "demo")
		assert.ErrorIs(t, err, schema.ErrUnsupportedProject, c.ID())
	}
}

func TestCollectorToolNotFound(t *testing.T) {
	dir := newGoProject(t)
	deps, runner, _ := newDeps(time.Minute)
	runner.On("LookPath", "go").Return("", errors.New("executable file not found in $PATH"))

	c := NewTestCollector(deps)
	assert.False(t, c.IsAvailable())

	_, err := c.CollectMetrics(context.Background(), dir, "demo")
	assert.ErrorIs(t, err, schema.ErrToolNotFound)

	var cerr *schema.CollectorError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "tests", cerr.Collector)
}

func TestCollectorTimeout(t *testing.T) {
	dir := newGoProject(t)
	deps, runner, _ := newDeps(20 * time.Millisecond)
	runner.On("LookPath", "go").Return("/usr/bin/go", nil)
	runner.On("Run", mock.Anything, dir, "go", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	_, err := NewTestCollector(deps).CollectMetrics(context.Background(), dir, "demo")
	assert.ErrorIs(t, err, schema.ErrTimeout)
}

func TestCollectorNonZeroExit(t *testing.T) {
	dir := newGoProject(t)
	deps, runner, _ := newDeps(time.Minute)
	runner.On("LookPath", "go").Return("/usr/bin/go", nil)
	runner.On("Run", mock.Anything, dir, "go", mock.Anything).
		Return(&contract.RunResult{ExitCode: 2, Stderr: []byte("main.go:3: syntax error")}, nil)

	_, err := NewBenchmarkCollector(deps).CollectMetrics(context.Background(), dir, "demo")
	assert.ErrorIs(t, err, schema.ErrExecutionFailed)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestTestCollectorCollectMetrics(t *testing.T) {
	dir := newGoProject(t)
	deps, runner, git := newDeps(time.Minute)
	out := `{"Action":"start","Package":"example.com/demo/a"}
{"Action":"run","Package":"example.com/demo/a","Test":"TestOne"}
{"Action":"pass","Package":"example.com/demo/a","Test":"TestOne","Elapsed":0.1}
{"Action":"pass","Package":"example.com/demo/a","Elapsed":0.25}
{"Action":"fail","Package":"example.com/demo/b","Test":"TestTwo","Elapsed":0.2}
{"Action":"fail","Package":"example.com/demo/b","Elapsed":0.5}
{"Action":"skip","Package":"example.com/demo/c","Elapsed":0}
`
	runner.On("LookPath", "go").Return("/usr/bin/go", nil)
	runner.On("Run", mock.Anything, dir, "go", []string{"test", "-json", "-count=1", "./..."}).
		Return(&contract.RunResult{Stdout: []byte(out), ExitCode: 1}, nil)
	git.On("GetRepoHash", mock.Anything, dir).Return("", errors.New("not a git repository"))

	records, err := NewTestCollector(deps).CollectMetrics(context.Background(), dir, "demo")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "example.com/demo/a", records[0].Metadata["package"])
	assert.InDelta(t, 0.25, records[0].Value, 1e-9)
	assert.Equal(t, "1", records[0].Metadata["passed"])
	assert.Equal(t, "fail", records[1].Metadata["outcome"])
	assert.Equal(t, "1", records[1].Metadata["failed"])
	assert.Empty(t, records[0].CommitHash)
}

func TestTestCollectorBuildFailure(t *testing.T) {
	dir := newGoProject(t)
	deps, runner, _ := newDeps(time.Minute)
	runner.On("LookPath", "go").Return("/usr/bin/go", nil)
	runner.On("Run", mock.Anything, dir, "go", mock.Anything).
		Return(&contract.RunResult{Stdout: []byte("# example.com/demo\n"), Stderr: []byte("undefined: x"), ExitCode: 1}, nil)

	_, err := NewTestCollector(deps).CollectMetrics(context.Background(), dir, "demo")
	assert.ErrorIs(t, err, schema.ErrExecutionFailed)
}

func TestParseTestEventsMalformed(t *testing.T) {
	packages, malformed := parseTestEvents([]byte("not json\n{\"Action\":\"output\"}\n"))
	assert.Empty(t, packages)
	assert.Equal(t, 2, malformed)
}

func TestCommandCollector(t *testing.T) {
	dir := t.TempDir()
	deps, runner, git := newDeps(time.Minute)
	runner.On("LookPath", "golangci-lint").Return("/usr/bin/golangci-lint", nil)
	runner.On("Run", mock.Anything, dir, "golangci-lint", []string{"run"}).
		Return(&contract.RunResult{Duration: 3 * time.Second}, nil)
	git.On("GetRepoHash", mock.Anything, dir).Return("abc", nil)
	git.On("GetBranchName", mock.Anything, dir).Return("", errors.New("detached"))

	c := NewCommandCollector(deps, contract.CommandSpec{Name: "lint", Args: []string{"golangci-lint", "run"}})
	assert.Equal(t, "lint", c.ID())
	assert.True(t, c.IsAvailable())

	records, err := c.CollectMetrics(context.Background(), dir, "demo")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, schema.ExecutionTime, records[0].Type)
	assert.Equal(t, schema.CommandSource, records[0].Source)
	assert.Equal(t, "golangci-lint run", records[0].Metadata["command"])
	assert.Equal(t, "abc", records[0].CommitHash)
	assert.Empty(t, records[0].BranchName)
}

func TestBuiltins(t *testing.T) {
	deps, _, _ := newDeps(time.Minute)
	deps.Config.Commands = []contract.CommandSpec{{Name: "lint", Args: []string{"go", "vet"}}}

	var ids []string
	for _, c := range Builtins(deps) {
		ids = append(ids, c.ID())
		assert.NotEmpty(t, c.SupportedMetricTypes())
	}
	assert.Equal(t, []string{"build", "tests", "benchmark", "lint"}, ids)
}
