package collector

import (
	"context"
	"strings"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
)

// CommandCollector times an arbitrary configured command.
// Its ID is the command name, so it is enabled like any other collector.
type CommandCollector struct {
	base
	args []string
}

// NewCommandCollector creates a collector for one configured command.
func NewCommandCollector(deps Deps, spec contract.CommandSpec) *CommandCollector {
	tool := ""
	var args []string
	if len(spec.Args) > 0 {
		tool = spec.Args[0]
		args = spec.Args[1:]
	}
	return &CommandCollector{base: newBase(spec.Name, tool, deps), args: args}
}

// SupportedMetricTypes implements the Collector interface.
func (c *CommandCollector) SupportedMetricTypes() []schema.MetricType {
	return []schema.MetricType{schema.ExecutionTime, schema.MemoryUsage}
}

// CollectMetrics implements the Collector interface.
func (c *CommandCollector) CollectMetrics(ctx context.Context, projectPath, projectName string) ([]schema.MetricRecord, error) {
	if c.tool == "" {
		return nil, c.fail(schema.NewUnsupportedProject("command has nothing to run"))
	}

	res, err := c.run(ctx, projectPath, c.tool, c.args...)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, c.exitFailure(c.tool, res)
	}

	prov := c.provenance(ctx, projectPath)
	md := map[string]string{"command": strings.Join(append([]string{c.tool}, c.args...), " ")}

	r, err := newRecord(schema.CommandSource, schema.ExecutionTime, res.Duration.Seconds(), projectName, prov,
		schema.WithMetadata(md), schema.WithLocation("", c.id, 0))
	if err != nil {
		return nil, err
	}
	records := []schema.MetricRecord{r}

	if res.PeakRSS > 0 {
		r, err := newRecord(schema.CommandSource, schema.MemoryUsage, float64(res.PeakRSS), projectName, prov,
			schema.WithMetadata(md), schema.WithLocation("", c.id, 0))
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}
