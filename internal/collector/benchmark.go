package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/perfwatch/schema"
	"go.uber.org/zap"
	"golang.org/x/perf/benchfmt"
)

// benchUnits maps tidied benchfmt units to metric types and units.
// Throughput units are left out because higher is better for them.
var benchUnits = map[string]struct {
	metricType schema.MetricType
	unit       string
}{
	"sec/op":    {schema.ExecutionTime, schema.UnitSeconds},
	"B/op":      {schema.MemoryUsage, schema.UnitBytes},
	"allocs/op": {schema.Allocations, schema.UnitCount},
}

// BenchmarkCollector runs Go benchmarks and records per-benchmark measurements.
type BenchmarkCollector struct {
	base
	pattern string
}

// NewBenchmarkCollector creates the "benchmark" collector.
func NewBenchmarkCollector(deps Deps) *BenchmarkCollector {
	pattern := "."
	if deps.Config != nil && deps.Config.BenchPattern != "" {
		pattern = deps.Config.BenchPattern
	}
	return &BenchmarkCollector{base: newBase("benchmark", goTool, deps), pattern: pattern}
}

// SupportedMetricTypes implements the Collector interface.
func (c *BenchmarkCollector) SupportedMetricTypes() []schema.MetricType {
	return []schema.MetricType{schema.ExecutionTime, schema.MemoryUsage, schema.Allocations}
}

// CollectMetrics implements the Collector interface.
func (c *BenchmarkCollector) CollectMetrics(ctx context.Context, projectPath, projectName string) ([]schema.MetricRecord, error) {
	if cerr := requireGoModule(projectPath); cerr != nil {
		return nil, c.fail(cerr)
	}

	res, err := c.run(ctx, projectPath, "go test -bench", "test", "-run=^$", "-bench="+c.pattern, "-benchmem", "./...")
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, c.exitFailure("go test -bench", res)
	}

	records, err := parseBenchmarks(res.Stdout, projectName, c.provenance(ctx, projectPath), c.logger)
	if err != nil {
		var cerr *schema.CollectorError
		if errors.As(err, &cerr) {
			return nil, c.fail(cerr)
		}
		return nil, c.fail(schema.NewDataParsingFailed("benchmark output", err))
	}

	c.logger.Info("benchmarks measured", zap.Int("records", len(records)), zap.Duration("duration", res.Duration))
	return records, nil
}

// parseBenchmarks converts Go benchmark output into metric records.
// Output that contains only malformed benchmark lines is a parsing failure.
func parseBenchmarks(out []byte, projectName string, prov schema.RecordOption, logger *zap.Logger) ([]schema.MetricRecord, error) {
	reader := benchfmt.NewReader(bytes.NewReader(out), "go test")
	var records []schema.MetricRecord
	var syntaxErrs []error

	for reader.Scan() {
		switch rec := reader.Result().(type) {
		case *benchfmt.SyntaxError:
			syntaxErrs = append(syntaxErrs, rec)
			logger.Debug("skipping benchmark line", zap.Error(rec))
		case *benchfmt.Result:
			name := "Benchmark" + rec.Name.String()
			md := map[string]string{
				"pkg":    rec.GetConfig("pkg"),
				"goos":   rec.GetConfig("goos"),
				"goarch": rec.GetConfig("goarch"),
				"iters":  fmt.Sprint(rec.Iters),
			}
			for _, v := range rec.Values {
				mapping, ok := benchUnits[v.Unit]
				if !ok {
					continue
				}
				r, err := newRecord(schema.BenchmarkSource, mapping.metricType, v.Value, projectName, prov,
					schema.WithUnit(mapping.unit),
					schema.WithLocation("", name, 0),
					schema.WithMetadata(md))
				if err != nil {
					return nil, err
				}
				records = append(records, r)
			}
		}
	}
	if err := reader.Err(); err != nil {
		return nil, schema.NewDataParsingFailed("read benchmark output", err)
	}
	if len(records) == 0 && len(syntaxErrs) > 0 {
		return nil, schema.NewDataParsingFailed(fmt.Sprintf("%d malformed benchmark lines", len(syntaxErrs)), errors.Join(syntaxErrs...))
	}
	return records, nil
}
