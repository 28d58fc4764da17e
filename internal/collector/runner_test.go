package collector

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "PERFWATCH_HELPER_PROCESS"

// TestHelperProcess is not a real test. It is the child process driven by the runner tests.
func TestHelperProcess(t *testing.T) {
	switch os.Getenv(helperEnv) {
	case "sleep":
		time.Sleep(30 * time.Second)
	case "fail":
		_, _ = os.Stderr.WriteString("helper failed")
		os.Exit(3)
	case "echo":
		_, _ = os.Stdout.WriteString("hello")
	default:
		return
	}
	os.Exit(0)
}

// runHelper re-executes the test binary as a child in the given mode.
func runHelper(ctx context.Context, t *testing.T, mode string) (*contract.RunResult, error) {
	t.Helper()
	t.Setenv(helperEnv, mode)
	return NewExecRunner().Run(ctx, t.TempDir(), os.Args[0], "-test.run=^TestHelperProcess$")
}

func TestExecRunnerSuccess(t *testing.T) {
	res, err := runHelper(context.Background(), t, "echo")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, string(res.Stdout), "hello")
	assert.Positive(t, res.Duration)
}

func TestExecRunnerExitCode(t *testing.T) {
	res, err := runHelper(context.Background(), t, "fail")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, string(res.Stderr), "helper failed")
}

func TestExecRunnerKillsOnTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := runHelper(ctx, t, "sleep")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecRunnerLookPath(t *testing.T) {
	_, err := NewExecRunner().LookPath("perfwatch-definitely-not-installed")
	assert.Error(t, err)
}
