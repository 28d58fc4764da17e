package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"go.uber.org/zap"
)

// ErrCheckFailed is returned when a check finds more regressions than allowed.
var ErrCheckFailed = errors.New("regression check failed")

// RunCheck compares the configured window against the baseline commit and decides
// whether the regression count stays within cfg.MaxRegressions.
func RunCheck(ctx context.Context, cfg *contract.Config, store contract.MetricStore, logger *zap.Logger) (*schema.CheckResult, error) {
	if cfg.BaselineCommit == "" {
		return nil, schema.NewConfigurationError("check requires a baseline commit (--baseline)")
	}
	if cfg.MaxRegressions < 0 {
		return nil, schema.NewConfigurationError(fmt.Sprintf("max regressions cannot be negative (received %d)", cfg.MaxRegressions))
	}

	report, err := NewReportEngine(cfg, store, logger).GenerateReport(ctx, cfg.TimeRange())
	if err != nil {
		return nil, err
	}
	if report.Baseline == nil {
		return nil, schema.NewDataNotFound(fmt.Sprintf("no metrics stored for baseline commit %s", contract.ShortHash(cfg.BaselineCommit)))
	}

	result := &schema.CheckResult{
		ProjectName:    report.ProjectName,
		BaselineID:     report.Baseline.BaselineID,
		MaxRegressions: cfg.MaxRegressions,
		Regressions:    report.Baseline.Regressions,
		Improvements:   len(report.Baseline.Improvements),
		Unchanged:      len(report.Baseline.Unchanged),
		MetricCount:    len(report.Metrics),
	}
	result.Passed = len(result.Regressions) <= cfg.MaxRegressions
	return result, nil
}
