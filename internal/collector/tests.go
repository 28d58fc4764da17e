package collector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/huangsam/perfwatch/schema"
	"go.uber.org/zap"
)

// testEvent is one line of `go test -json` output.
type testEvent struct {
	Action  string  `json:"Action"`
	Package string  `json:"Package"`
	Test    string  `json:"Test"`
	Elapsed float64 `json:"Elapsed"`
}

// packageResult accumulates the outcome of one test package.
type packageResult struct {
	elapsed float64
	passed  int
	failed  int
	skipped int
	outcome string
}

// TestCollector times `go test` per package.
type TestCollector struct {
	base
}

// NewTestCollector creates the "tests" collector.
func NewTestCollector(deps Deps) *TestCollector {
	return &TestCollector{base: newBase("tests", goTool, deps)}
}

// SupportedMetricTypes implements the Collector interface.
func (c *TestCollector) SupportedMetricTypes() []schema.MetricType {
	return []schema.MetricType{schema.TestDuration}
}

// CollectMetrics implements the Collector interface.
func (c *TestCollector) CollectMetrics(ctx context.Context, projectPath, projectName string) ([]schema.MetricRecord, error) {
	if cerr := requireGoModule(projectPath); cerr != nil {
		return nil, c.fail(cerr)
	}

	res, err := c.run(ctx, projectPath, "go test", "test", "-json", "-count=1", "./...")
	if err != nil {
		return nil, err
	}

	packages, malformed := parseTestEvents(res.Stdout)
	if len(packages) == 0 {
		if res.ExitCode != 0 {
			return nil, c.exitFailure("go test", res)
		}
		if malformed > 0 {
			return nil, c.fail(schema.NewDataParsingFailed("no test2json events in go test output", nil))
		}
		return nil, nil
	}

	names := make([]string, 0, len(packages))
	for name := range packages {
		names = append(names, name)
	}
	sort.Strings(names)

	prov := c.provenance(ctx, projectPath)
	records := make([]schema.MetricRecord, 0, len(names))
	failedPackages := 0
	for _, name := range names {
		pkg := packages[name]
		if pkg.outcome == "fail" {
			failedPackages++
		}
		md := map[string]string{
			"package": name,
			"outcome": pkg.outcome,
			"passed":  strconv.Itoa(pkg.passed),
			"failed":  strconv.Itoa(pkg.failed),
			"skipped": strconv.Itoa(pkg.skipped),
		}
		r, err := newRecord(schema.TestsSource, schema.TestDuration, pkg.elapsed, projectName, prov, schema.WithMetadata(md))
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	if failedPackages > 0 {
		c.logger.Warn("test failures", zap.Int("packages", failedPackages))
	}
	c.logger.Info("tests measured", zap.Int("records", len(records)), zap.Duration("duration", res.Duration))
	return records, nil
}

// parseTestEvents folds test2json events into per-package results.
// Packages without test files are left out. Lines that are not JSON are counted.
func parseTestEvents(out []byte) (map[string]*packageResult, int) {
	packages := make(map[string]*packageResult)
	malformed := 0

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev testEvent
		if err := json.Unmarshal(line, &ev); err != nil || ev.Package == "" {
			malformed++
			continue
		}

		if ev.Test != "" {
			pkg := packages[ev.Package]
			if pkg == nil {
				pkg = &packageResult{}
				packages[ev.Package] = pkg
			}
			switch ev.Action {
			case "pass":
				pkg.passed++
			case "fail":
				pkg.failed++
			case "skip":
				pkg.skipped++
			}
			continue
		}

		switch ev.Action {
		case "pass", "fail":
			pkg := packages[ev.Package]
			if pkg == nil {
				pkg = &packageResult{}
				packages[ev.Package] = pkg
			}
			pkg.elapsed = ev.Elapsed
			pkg.outcome = ev.Action
		}
	}

	// Drop packages that never reported a package-level outcome
	for name, pkg := range packages {
		if pkg.outcome == "" {
			delete(packages, name)
		}
	}
	return packages, malformed
}
