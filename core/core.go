// Package core has core logic for collection, reporting and regression checks.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/perfwatch/internal/collector"
	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/internal/outwriter"
	"github.com/huangsam/perfwatch/schema"
	"go.uber.org/zap"
)

// Env carries the long-lived dependencies every executor needs.
type Env struct {
	Store  contract.MetricStore
	Runner contract.CommandRunner
	Git    contract.GitClient
	Logger *zap.Logger
	Writer *outwriter.OutWriter
	Now    func() time.Time
}

// NewEnv creates an environment backed by the real runner and git client.
func NewEnv(store contract.MetricStore, logger *zap.Logger) *Env {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Env{
		Store:  store,
		Runner: collector.NewExecRunner(),
		Git:    contract.NewLocalGitClient(),
		Logger: logger,
		Writer: outwriter.NewOutWriter(),
		Now:    time.Now,
	}
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Env) writer() *outwriter.OutWriter {
	if e.Writer == nil {
		return outwriter.NewOutWriter()
	}
	return e.Writer
}

// collectorDeps builds the dependencies handed to the built-in collectors.
func (e *Env) collectorDeps(cfg *contract.Config) collector.Deps {
	return collector.Deps{Config: cfg, Runner: e.Runner, Git: e.Git, Logger: e.Logger}
}

// ExecutorFunc defines the function signature for executing the different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, env *Env) error

// GetCollectionRound registers the enabled collectors, runs one aggregation round
// and applies the retention sweep when one is configured.
func GetCollectionRound(ctx context.Context, cfg *contract.Config, env *Env) (*schema.CollectionRound, error) {
	registry := NewRegistry(cfg, env.Logger)
	registry.RegisterDefaultCollectors(env.collectorDeps(cfg))

	round, err := NewAggregator(registry, env.Store, env.Logger).CollectRound(ctx, cfg.ProjectPath)
	if err != nil {
		return round, err
	}

	// A failed sweep never fails the round that already persisted
	if _, err := SweepRetention(ctx, env.Store, cfg.Storage.RetentionDays, env.now(), env.Logger); err != nil {
		env.Logger.Warn("retention sweep failed", zap.Error(err))
	}
	return round, nil
}

// ExecuteCollect runs one aggregation round and prints its per-collector outcomes.
// It serves as the main entry point for the 'collect' command.
func ExecuteCollect(ctx context.Context, cfg *contract.Config, env *Env) error {
	round, err := GetCollectionRound(ctx, cfg, env)
	if round != nil {
		if printErr := env.writer().WriteRound(round, cfg); printErr != nil {
			return errors.Join(err, printErr)
		}
	}
	return err
}

// GetReport builds a report over the configured window.
func GetReport(ctx context.Context, cfg *contract.Config, env *Env) (*schema.Report, error) {
	engine := NewReportEngine(cfg, env.Store, env.Logger)
	engine.now = env.now
	return engine.GenerateReport(ctx, cfg.TimeRange())
}

// ExecuteReport builds a report over the configured window and prints it.
func ExecuteReport(ctx context.Context, cfg *contract.Config, env *Env) error {
	start := time.Now()
	report, err := GetReport(ctx, cfg, env)
	if err != nil {
		return err
	}
	return env.writer().WriteReport(report, cfg, time.Since(start))
}

// GetLatestMetrics returns the newest cfg.ResultLimit records of the project.
func GetLatestMetrics(ctx context.Context, cfg *contract.Config, env *Env) ([]schema.MetricRecord, error) {
	if cfg.ProjectName == "" {
		return nil, schema.NewConfigurationError("project name is required to list metrics")
	}
	return env.Store.RetrieveLatestMetrics(ctx, cfg.ProjectName, cfg.ResultLimit)
}

// ExecuteLatest prints the newest records of the project.
func ExecuteLatest(ctx context.Context, cfg *contract.Config, env *Env) error {
	start := time.Now()
	records, err := GetLatestMetrics(ctx, cfg, env)
	if err != nil {
		return err
	}
	return env.writer().WriteRecords(records, cfg, time.Since(start))
}

// ExecuteCheck runs the regression gate and prints the outcome.
// It returns ErrCheckFailed when the gate does not pass so CI sees a non-zero exit.
func ExecuteCheck(ctx context.Context, cfg *contract.Config, env *Env) error {
	start := time.Now()
	result, err := RunCheck(ctx, cfg, env.Store, env.Logger)
	if err != nil {
		return err
	}
	if err := env.writer().WriteCheck(result, cfg, time.Since(start)); err != nil {
		return err
	}
	if !result.Passed {
		return fmt.Errorf("%w: %d regressions against %s", ErrCheckFailed, len(result.Regressions), contract.ShortHash(result.BaselineID))
	}
	return nil
}

// GetCollectorInfos describes every built-in collector with its availability and enablement.
func GetCollectorInfos(cfg *contract.Config, env *Env) []schema.CollectorInfo {
	builtins := collector.Builtins(env.collectorDeps(cfg))
	infos := make([]schema.CollectorInfo, 0, len(builtins))
	for _, c := range builtins {
		infos = append(infos, schema.CollectorInfo{
			ID:             c.ID(),
			SupportedTypes: c.SupportedMetricTypes(),
			Available:      c.IsAvailable(),
			Enabled:        cfg.IsCollectorEnabled(c.ID()),
		})
	}
	return infos
}

// ExecuteCollectors prints every built-in collector.
func ExecuteCollectors(_ context.Context, cfg *contract.Config, env *Env) error {
	return env.writer().WriteCollectors(GetCollectorInfos(cfg, env), cfg)
}

// ExecutePrune applies the configured retention immediately.
func ExecutePrune(ctx context.Context, cfg *contract.Config, env *Env) error {
	if cfg.Storage.RetentionDays <= 0 {
		return schema.NewConfigurationError("prune requires --retention-days greater than 0")
	}
	removed, err := SweepRetention(ctx, env.Store, cfg.Storage.RetentionDays, env.now(), env.Logger)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d records older than %s\n", removed,
		RetentionCutoff(env.now(), cfg.Storage.RetentionDays).Format(contract.DateTimeFormat))
	return nil
}
