package collector

import (
	"context"
	"os"
	"path/filepath"

	"github.com/huangsam/perfwatch/schema"
	"go.uber.org/zap"
)

// BuildCollector times `go build` and measures the binaries it produces.
type BuildCollector struct {
	base
	target string
}

// NewBuildCollector creates the "build" collector.
func NewBuildCollector(deps Deps) *BuildCollector {
	return &BuildCollector{base: newBase("build", goTool, deps), target: "./..."}
}

// SupportedMetricTypes implements the Collector interface.
func (c *BuildCollector) SupportedMetricTypes() []schema.MetricType {
	return []schema.MetricType{schema.BuildDuration, schema.MemoryUsage, schema.BinarySize}
}

// CollectMetrics implements the Collector interface.
func (c *BuildCollector) CollectMetrics(ctx context.Context, projectPath, projectName string) ([]schema.MetricRecord, error) {
	if cerr := requireGoModule(projectPath); cerr != nil {
		return nil, c.fail(cerr)
	}

	outDir, err := os.MkdirTemp("", "perfwatch-build-*")
	if err != nil {
		return nil, c.fail(schema.NewExecutionFailed("create build output directory", err))
	}
	defer func() { _ = os.RemoveAll(outDir) }()

	// A trailing separator makes go build write every main package into the directory
	res, err := c.run(ctx, projectPath, "go build", "build", "-o", outDir+string(os.PathSeparator), c.target)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, c.exitFailure("go build", res)
	}

	prov := c.provenance(ctx, projectPath)
	md := map[string]string{"target": c.target}
	var records []schema.MetricRecord

	r, err := newRecord(schema.BuildSource, schema.BuildDuration, res.Duration.Seconds(), projectName, prov, schema.WithMetadata(md))
	if err != nil {
		return nil, err
	}
	records = append(records, r)

	if res.PeakRSS > 0 {
		r, err := newRecord(schema.BuildSource, schema.MemoryUsage, float64(res.PeakRSS), projectName, prov,
			schema.WithMetadata(map[string]string{"target": c.target, "measure": "peak-rss"}))
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, c.fail(schema.NewDataParsingFailed("read build output", err))
	}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		r, err := newRecord(schema.BinarySource, schema.BinarySize, float64(info.Size()), projectName, prov,
			schema.WithLocation(filepath.ToSlash(entry.Name()), "", 0))
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	c.logger.Info("build measured", zap.Int("records", len(records)), zap.Duration("duration", res.Duration))
	return records, nil
}
