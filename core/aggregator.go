package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"go.uber.org/zap"
)

// Aggregator runs every registered collector concurrently and persists the merged result.
type Aggregator struct {
	registry *Registry
	store    contract.MetricStore
	logger   *zap.Logger
}

// NewAggregator creates an aggregation engine over the registry's collectors.
func NewAggregator(registry *Registry, store contract.MetricStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{registry: registry, store: store, logger: logger.Named("aggregator")}
}

// collectorOutcome is what one fan-out unit reports back. Units write nothing else.
type collectorOutcome struct {
	index    int
	id       string
	records  []schema.MetricRecord
	err      error
	duration time.Duration
}

// CollectMetrics runs one aggregation round and returns the persisted records.
func (a *Aggregator) CollectMetrics(ctx context.Context, projectPath string) ([]schema.MetricRecord, error) {
	round, err := a.CollectRound(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	return round.Records, nil
}

// CollectRound runs one aggregation round and returns its diagnostic view.
// The round is returned even on error so callers can report per-collector outcomes.
func (a *Aggregator) CollectRound(ctx context.Context, projectPath string) (*schema.CollectionRound, error) {
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, schema.NewInvalidProjectPath(fmt.Sprintf("%s: %v", projectPath, err))
	}
	info, err := os.Stat(absPath)
	if err != nil || !info.IsDir() {
		return nil, schema.NewInvalidProjectPath(fmt.Sprintf("%s is not a directory", absPath))
	}

	collectors := a.registry.Collectors()
	if len(collectors) == 0 {
		return nil, schema.NewConfigurationError("no collectors are enabled")
	}

	projectName := a.registry.cfg.ProjectName
	if projectName == "" {
		projectName = filepath.Base(absPath)
	}

	round := &schema.CollectionRound{ProjectName: projectName, StartedAt: time.Now().UTC()}
	a.logger.Info("starting collection round",
		zap.String("project", projectName),
		zap.String("path", absPath),
		zap.Strings("collectors", a.registry.IDs()))

	// Fan out, one unit per collector, then wait for all of them
	outcomeCh := make(chan collectorOutcome, len(collectors))
	var wg sync.WaitGroup
	for i, c := range collectors {
		wg.Go(func() {
			outcomeCh <- runCollector(ctx, i, c, absPath, projectName)
		})
	}
	wg.Wait()
	close(outcomeCh)

	outcomes := make([]collectorOutcome, len(collectors))
	for o := range outcomeCh {
		outcomes[o.index] = o
	}

	// Merge in registration order
	var errs []error
	succeeded := 0
	for _, o := range outcomes {
		summary := schema.CollectorOutcome{CollectorID: o.id, RecordCount: len(o.records), Duration: o.duration}
		if o.err != nil {
			summary.RecordCount = 0
			summary.Error = o.err.Error()
			errs = append(errs, o.err)
			a.logger.Warn("collector failed", zap.String("collector", o.id), zap.Duration("duration", o.duration), zap.Error(o.err))
		} else {
			succeeded++
			round.Records = append(round.Records, o.records...)
			a.logger.Debug("collector finished", zap.String("collector", o.id), zap.Int("records", len(o.records)), zap.Duration("duration", o.duration))
		}
		round.Outcomes = append(round.Outcomes, summary)
	}
	round.Duration = time.Since(round.StartedAt)

	if succeeded == 0 {
		return round, schema.NewCollectionFailed(errs)
	}

	if len(round.Records) > 0 {
		if err := a.store.StoreMetrics(ctx, round.Records); err != nil {
			a.logger.Error("failed to persist collected records", zap.Int("records", len(round.Records)), zap.Error(err))
			return round, schema.NewAggregatorStorageError(err)
		}
	}
	a.logger.Info("collection round complete",
		zap.Int("records", len(round.Records)),
		zap.Int("failed", len(errs)),
		zap.Duration("duration", round.Duration))
	return round, nil
}

// runCollector invokes one collector and normalizes whatever it returns into a CollectorError.
func runCollector(ctx context.Context, index int, c contract.Collector, projectPath, projectName string) (out collectorOutcome) {
	start := time.Now()
	out = collectorOutcome{index: index, id: c.ID()}
	defer func() {
		if r := recover(); r != nil {
			out.records = nil
			out.err = schema.NewExecutionFailed(fmt.Sprintf("collector panicked: %v", r), nil).WithCollector(out.id)
		}
		out.duration = time.Since(start)
	}()

	if !c.IsAvailable() {
		out.err = schema.NewToolNotFound(out.id).WithCollector(out.id)
		return out
	}

	records, err := c.CollectMetrics(ctx, projectPath, projectName)
	if err != nil {
		out.err = normalizeCollectorError(out.id, err)
		return out
	}
	out.records = records
	return out
}

// normalizeCollectorError keeps typed collector errors and maps anything else onto the taxonomy.
func normalizeCollectorError(id string, err error) error {
	var ce *schema.CollectorError
	if errors.As(err, &ce) {
		if ce.Collector == "" {
			return ce.WithCollector(id)
		}
		return ce
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &schema.CollectorError{Kind: schema.Timeout, Collector: id, Detail: "collect", Err: err}
	}
	return schema.NewExecutionFailed("collect", err).WithCollector(id)
}
