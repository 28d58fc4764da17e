package collector

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/shirou/gopsutil/v4/process"
)

// Defaults for the subprocess runner.
const (
	DefaultSampleInterval = 100 * time.Millisecond
	DefaultWaitDelay      = 2 * time.Second
)

// ExecRunner implements CommandRunner with os/exec.
// When the context ends the child's process group is killed, and after
// WaitDelay its output pipes are closed even if a straggler still holds them.
type ExecRunner struct {
	SampleInterval time.Duration
	WaitDelay      time.Duration
}

var _ contract.CommandRunner = &ExecRunner{} // Compile-time check

// NewExecRunner creates a runner with default sampling and wait settings.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{SampleInterval: DefaultSampleInterval, WaitDelay: DefaultWaitDelay}
}

// LookPath implements the CommandRunner interface.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run implements the CommandRunner interface.
func (r *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (*contract.RunResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = r.WaitDelay
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var peak atomic.Uint64
	done := make(chan struct{})
	sampled := make(chan struct{})
	go func() {
		defer close(sampled)
		r.samplePeakRSS(int32(cmd.Process.Pid), &peak, done)
	}()

	waitErr := cmd.Wait()
	close(done)
	<-sampled

	res := &contract.RunResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
		PeakRSS:  peak.Load(),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if waitErr != nil {
		return res, waitErr
	}
	return res, nil
}

// samplePeakRSS polls the resident memory of the process tree until done closes.
func (r *ExecRunner) samplePeakRSS(pid int32, peak *atomic.Uint64, done <-chan struct{}) {
	interval := r.SampleInterval
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	proc, err := process.NewProcess(pid)
	if err != nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if rss := treeRSS(proc); rss > peak.Load() {
			peak.Store(rss)
		}
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

// treeRSS sums the resident memory of a process and its descendants.
// Processes that exit mid-walk are ignored.
func treeRSS(proc *process.Process) uint64 {
	var total uint64
	if info, err := proc.MemoryInfo(); err == nil {
		total += info.RSS
	}
	children, err := proc.Children()
	if err != nil {
		return total
	}
	for _, child := range children {
		total += treeRSS(child)
	}
	return total
}
