package core

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"go.uber.org/zap"
)

// ReportEngine builds reports for the configured project.
type ReportEngine struct {
	cfg    *contract.Config
	store  contract.MetricStore
	logger *zap.Logger
	now    func() time.Time
}

// NewReportEngine creates a report engine reading from store.
func NewReportEngine(cfg *contract.Config, store contract.MetricStore, logger *zap.Logger) *ReportEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportEngine{cfg: cfg, store: store, logger: logger.Named("report"), now: time.Now}
}

// GenerateReport returns the project's metrics inside tr. When a baseline commit is
// configured and has stored metrics, the report carries a comparison against it.
func (e *ReportEngine) GenerateReport(ctx context.Context, tr schema.TimeRange) (*schema.Report, error) {
	project := e.cfg.ProjectName
	if project == "" {
		return nil, schema.NewConfigurationError("project name is required to generate a report")
	}

	metrics, err := e.store.RetrieveMetrics(ctx, project, tr)
	if err != nil {
		return nil, err
	}
	sortByTimestamp(metrics)
	if metrics == nil {
		metrics = []schema.MetricRecord{}
	}

	report := &schema.Report{
		ProjectName: project,
		TimeRange:   tr,
		Metrics:     metrics,
		GeneratedAt: e.now().UTC(),
	}

	if e.cfg.BaselineCommit == "" {
		return report, nil
	}
	baseline, err := e.store.RetrieveMetricsForCommit(ctx, e.cfg.BaselineCommit, project)
	if err != nil {
		return nil, err
	}
	if len(baseline) == 0 {
		e.logger.Info("baseline commit has no stored metrics", zap.String("baseline", e.cfg.BaselineCommit))
		return report, nil
	}
	report.Baseline = compareToBaseline(e.cfg.BaselineCommit, metrics, baseline, e.logger)
	e.logger.Debug("generated report", zap.String("summary", report.Summary()))
	return report, nil
}

// sortByTimestamp orders records by timestamp, then ID.
func sortByTimestamp(records []schema.MetricRecord) {
	slices.SortFunc(records, func(a, b schema.MetricRecord) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
