package core

import (
	"cmp"
	"math"
	"slices"

	"github.com/aclements/go-moremath/stats"
	"github.com/huangsam/perfwatch/schema"
	"go.uber.org/zap"
)

// unchangedBand is the absolute percent change treated as noise.
const unchangedBand = 1.0

// metricGroup collects the values of one metric type.
type metricGroup struct {
	values []float64
	unit   string
}

// groupByType buckets record values by metric type.
func groupByType(records []schema.MetricRecord) map[schema.MetricType]*metricGroup {
	groups := make(map[schema.MetricType]*metricGroup)
	for _, r := range records {
		g, ok := groups[r.Type]
		if !ok {
			g = &metricGroup{unit: r.Unit}
			groups[r.Type] = g
		}
		g.values = append(g.values, r.Value)
	}
	return groups
}

// classifyChange applies the unchanged band. Lower values are always better.
func classifyChange(percentChange float64) schema.ComparisonStatus {
	switch {
	case percentChange > unchangedBand:
		return schema.Regression
	case percentChange < -unchangedBand:
		return schema.Improvement
	default:
		return schema.Unchanged
	}
}

// compareToBaseline compares the mean of every metric type present in both sets.
// Types missing from the baseline are skipped. A zero baseline mean is only
// comparable against a zero current mean; otherwise the type is skipped.
func compareToBaseline(baselineID string, current, baseline []schema.MetricRecord, logger *zap.Logger) *schema.BaselineComparison {
	if logger == nil {
		logger = zap.NewNop()
	}
	comparison := &schema.BaselineComparison{
		BaselineID:   baselineID,
		Improvements: []schema.ComparisonEntry{},
		Regressions:  []schema.ComparisonEntry{},
		Unchanged:    []schema.ComparisonEntry{},
	}
	currentGroups := groupByType(current)
	baselineGroups := groupByType(baseline)

	types := make([]schema.MetricType, 0, len(currentGroups))
	for t := range currentGroups {
		types = append(types, t)
	}
	slices.Sort(types)

	for _, t := range types {
		base, ok := baselineGroups[t]
		if !ok {
			logger.Debug("metric type has no baseline", zap.String("type", string(t)))
			continue
		}
		cur := currentGroups[t]
		baseAvg := stats.Mean(base.values)
		curAvg := stats.Mean(cur.values)

		var pct float64
		if baseAvg == 0 {
			if curAvg != 0 {
				logger.Debug("skipping metric type with zero baseline", zap.String("type", string(t)), zap.Float64("current", curAvg))
				continue
			}
		} else {
			pct = (curAvg - baseAvg) / baseAvg * 100
		}

		entry := schema.ComparisonEntry{
			MetricID:      string(t),
			BaselineValue: baseAvg,
			CurrentValue:  curAvg,
			PercentChange: pct,
			Status:        classifyChange(pct),
			Unit:          cur.unit,
		}
		switch entry.Status {
		case schema.Regression:
			comparison.Regressions = append(comparison.Regressions, entry)
		case schema.Improvement:
			comparison.Improvements = append(comparison.Improvements, entry)
		default:
			comparison.Unchanged = append(comparison.Unchanged, entry)
		}
	}

	sortEntries(comparison.Regressions)
	sortEntries(comparison.Improvements)
	sortEntries(comparison.Unchanged)
	return comparison
}

// sortEntries orders entries by magnitude of change, largest first, then by metric ID.
func sortEntries(entries []schema.ComparisonEntry) {
	slices.SortFunc(entries, func(a, b schema.ComparisonEntry) int {
		if c := cmp.Compare(math.Abs(b.PercentChange), math.Abs(a.PercentChange)); c != 0 {
			return c
		}
		return cmp.Compare(a.MetricID, b.MetricID)
	})
}
