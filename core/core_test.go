package core

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/internal/iostore"
	"github.com/huangsam/perfwatch/internal/outwriter"
	"github.com/huangsam/perfwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEnv wires mocks for the runner and git client around a store.
func testEnv(store contract.MetricStore) (*Env, *contract.MockCommandRunner, *contract.MockGitClient) {
	runner := &contract.MockCommandRunner{}
	git := &contract.MockGitClient{}
	return &Env{
		Store:  store,
		Runner: runner,
		Git:    git,
		Logger: zap.NewNop(),
		Writer: outwriter.NewOutWriter(),
		Now:    func() time.Time { return baseTime },
	}, runner, git
}

// readJSON decodes the file an executor wrote.
func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestExecuteCollectWithCommandCollector(t *testing.T) {
	store := iostore.NewMemoryStore()
	env, runner, git := testEnv(store)

	cfg := newTestConfig("smoke")
	cfg.ProjectPath = t.TempDir()
	cfg.Commands = []contract.CommandSpec{{Name: "smoke", Args: []string{"echo", "hello"}}}
	cfg.OutputFile = filepath.Join(t.TempDir(), "round.json")

	runner.On("LookPath", "echo").Return("/bin/echo", nil)
	runner.On("Run", mock.Anything, cfg.ProjectPath, "echo", []string{"hello"}).
		Return(&contract.RunResult{Duration: 1500 * time.Millisecond, PeakRSS: 4096}, nil)
	git.On("GetRepoHash", mock.Anything, cfg.ProjectPath).Return("deadbeef", nil)
	git.On("GetBranchName", mock.Anything, cfg.ProjectPath).Return("main", nil)

	require.NoError(t, ExecuteCollect(context.Background(), cfg, env))

	var round schema.CollectionRound
	readJSON(t, cfg.OutputFile, &round)
	require.Len(t, round.Outcomes, 1)
	assert.Equal(t, "smoke", round.Outcomes[0].CollectorID)
	assert.Equal(t, 2, round.Outcomes[0].RecordCount)

	stored, err := store.RetrieveMetricsForCommit(context.Background(), "deadbeef", "demo")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, r := range stored {
		assert.Equal(t, "smoke", r.FunctionName)
		assert.Equal(t, "main", r.BranchName)
	}
	runner.AssertExpectations(t)
	git.AssertExpectations(t)
}

func TestExecuteCollectAppliesRetention(t *testing.T) {
	old := newRecord(t, schema.ExecutionTime, 1, baseTime.AddDate(0, 0, -10), "old")
	store := seedStore(t, old)
	env, runner, git := testEnv(store)

	cfg := newTestConfig("smoke")
	cfg.ProjectPath = t.TempDir()
	cfg.Storage.RetentionDays = 7
	cfg.Commands = []contract.CommandSpec{{Name: "smoke", Args: []string{"true"}}}
	cfg.OutputFile = filepath.Join(t.TempDir(), "round.json")

	runner.On("LookPath", "true").Return("/bin/true", nil)
	runner.On("Run", mock.Anything, cfg.ProjectPath, "true", []string{}).Return(&contract.RunResult{Duration: time.Second}, nil)
	git.On("GetRepoHash", mock.Anything, mock.Anything).Return("", errors.New("not a repository"))

	require.NoError(t, ExecuteCollect(context.Background(), cfg, env))

	all, err := store.RetrieveMetrics(context.Background(), "demo", schema.AllTime())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotEqual(t, old.ID, all[0].ID)
	assert.Empty(t, all[0].CommitHash)
}

func TestExecuteCollectAllFailStillPrintsRound(t *testing.T) {
	env, runner, _ := testEnv(iostore.NewMemoryStore())
	cfg := newTestConfig("smoke")
	cfg.ProjectPath = t.TempDir()
	cfg.Commands = []contract.CommandSpec{{Name: "smoke", Args: []string{"missing-tool"}}}
	cfg.OutputFile = filepath.Join(t.TempDir(), "round.json")

	runner.On("LookPath", "missing-tool").Return("", errors.New("not found"))

	err := ExecuteCollect(context.Background(), cfg, env)
	assert.ErrorIs(t, err, schema.ErrCollectionFailed)

	var round schema.CollectionRound
	readJSON(t, cfg.OutputFile, &round)
	assert.Equal(t, 1, round.FailedCount())
}

func TestExecuteReportAndLatest(t *testing.T) {
	store := seedStore(t,
		newRecord(t, schema.BuildDuration, 10, baseTime, "base"),
		newRecord(t, schema.BuildDuration, 12, baseTime.Add(time.Minute), "head"),
	)
	env, _, _ := testEnv(store)

	t.Run("report", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.BaselineCommit = "base"
		cfg.OutputFile = filepath.Join(t.TempDir(), "report.json")
		require.NoError(t, ExecuteReport(context.Background(), cfg, env))

		var report schema.Report
		readJSON(t, cfg.OutputFile, &report)
		assert.Len(t, report.Metrics, 2)
		require.NotNil(t, report.Baseline)
		assert.Len(t, report.Baseline.Regressions, 1)
		assert.True(t, report.GeneratedAt.Equal(baseTime))
	})

	t.Run("latest", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.ResultLimit = 1
		cfg.OutputFile = filepath.Join(t.TempDir(), "latest.json")
		require.NoError(t, ExecuteLatest(context.Background(), cfg, env))

		var records []schema.MetricRecord
		readJSON(t, cfg.OutputFile, &records)
		require.Len(t, records, 1)
		assert.Equal(t, "head", records[0].CommitHash)
	})

	t.Run("latest without project", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.ProjectName = ""
		assert.ErrorIs(t, ExecuteLatest(context.Background(), cfg, env), schema.ErrConfiguration)
	})
}

func TestExecuteCheck(t *testing.T) {
	env, _, _ := testEnv(regressionStore(t))

	cfg := newTestConfig()
	cfg.BaselineCommit = "base"
	cfg.OutputFile = filepath.Join(t.TempDir(), "check.json")

	err := ExecuteCheck(context.Background(), cfg, env)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCheckFailed)

	var result schema.CheckResult
	readJSON(t, cfg.OutputFile, &result)
	assert.False(t, result.Passed)

	cfg.MaxRegressions = 2
	assert.NoError(t, ExecuteCheck(context.Background(), cfg, env))
}

func TestGetCollectorInfos(t *testing.T) {
	env, runner, _ := testEnv(iostore.NewMemoryStore())
	runner.On("LookPath", "go").Return("/usr/local/go/bin/go", nil)
	runner.On("LookPath", "hyperfine").Return("", errors.New("not found"))

	cfg := newTestConfig("build", "timing")
	cfg.Commands = []contract.CommandSpec{{Name: "timing", Args: []string{"hyperfine", "make"}}}

	infos := GetCollectorInfos(cfg, env)
	require.Len(t, infos, 4)

	byID := make(map[string]schema.CollectorInfo)
	for _, info := range infos {
		byID[info.ID] = info
	}
	assert.True(t, byID["build"].Enabled)
	assert.True(t, byID["build"].Available)
	assert.False(t, byID["tests"].Enabled)
	assert.True(t, byID["timing"].Enabled)
	assert.False(t, byID["timing"].Available)
	assert.Contains(t, byID["build"].SupportedTypes, schema.BuildDuration)
}

func TestExecutePrune(t *testing.T) {
	store := seedStore(t,
		newRecord(t, schema.BuildDuration, 1, baseTime.AddDate(0, 0, -40), "c1"),
		newRecord(t, schema.BuildDuration, 1, baseTime, "c2"),
	)
	env, _, _ := testEnv(store)

	cfg := newTestConfig()
	assert.ErrorIs(t, ExecutePrune(context.Background(), cfg, env), schema.ErrConfiguration)

	cfg.Storage.RetentionDays = 30
	require.NoError(t, ExecutePrune(context.Background(), cfg, env))
	status, err := store.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status.TotalRecords)
}
