package outwriter

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/aclements/go-moremath/stats"
	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintReport outputs a report to stdout or the configured output file.
func PrintReport(report *schema.Report, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		return writeParquetRecords(report.Metrics, cfg.OutputFile)
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteReport(w, report, cfg, duration)
	}, "Wrote report")
}

// WriteReport writes a report, dispatching based on the output format configured.
// CSV carries the comparison entries when a baseline exists and the raw records otherwise.
func WriteReport(w io.Writer, report *schema.Report, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, report); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		var err error
		if report.Baseline != nil {
			err = writeCSVComparison(w, report.Baseline, fmtFloat)
		} else {
			err = writeCSVRecords(w, report.Metrics, fmtFloat)
		}
		if err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeReportText(w, report, cfg, duration)
	}
	return nil
}

// writeCSVComparison writes one row per comparison entry.
func writeCSVComparison(w io.Writer, comparison *schema.BaselineComparison, fmtFloat func(float64) string) error {
	header := []string{"metric", "status", "baseline", "current", "percent_change", "unit", "baseline_commit"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, e := range comparison.Entries() {
			row := []string{
				e.MetricID,
				string(e.Status),
				fmtFloat(e.BaselineValue),
				fmtFloat(e.CurrentValue),
				fmtFloat(e.PercentChange),
				e.Unit,
				comparison.BaselineID,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// typeSummary holds the descriptive statistics of one metric type in the window.
type typeSummary struct {
	metricType schema.MetricType
	unit       string
	sample     stats.Sample
}

// summarizeByType computes per-type statistics in a stable order.
func summarizeByType(records []schema.MetricRecord) []typeSummary {
	index := make(map[schema.MetricType]int)
	var out []typeSummary
	for _, r := range records {
		i, ok := index[r.Type]
		if !ok {
			i = len(out)
			index[r.Type] = i
			out = append(out, typeSummary{metricType: r.Type, unit: r.Unit})
		}
		out[i].sample.Xs = append(out[i].sample.Xs, r.Value)
	}
	slices.SortFunc(out, func(a, b typeSummary) int {
		return cmp.Compare(a.metricType, b.metricType)
	})
	return out
}

// writeReportText renders the report header, a per-type summary and the baseline comparison.
func writeReportText(w io.Writer, report *schema.Report, cfg *contract.Config, duration time.Duration) error {
	if _, err := fmt.Fprintln(w, "Performance Report:"); err != nil {
		return err
	}
	baseline := "none"
	if report.Baseline != nil {
		baseline = contract.ShortHash(report.Baseline.BaselineID)
	} else if cfg.BaselineCommit != "" {
		baseline = contract.ShortHash(cfg.BaselineCommit) + " (no stored metrics)"
	}
	labels := []string{"Project:", "Window:", "Metrics:", "Baseline:"}
	values := []any{
		report.ProjectName,
		fmt.Sprintf("%s to %s", report.TimeRange.Start.Local().Format(timeLayout), report.TimeRange.End.Local().Format(timeLayout)),
		len(report.Metrics),
		baseline,
	}
	if err := printLabeledValues(w, labels, values); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	if len(report.Metrics) > 0 {
		if err := writeSummaryTable(w, summarizeByType(report.Metrics), cfg); err != nil {
			return err
		}
	}
	if report.Baseline != nil {
		if err := writeComparisonTable(w, report.Baseline, cfg); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Regressions: %d, Improvements: %d, Unchanged: %d\n",
			len(report.Baseline.Regressions), len(report.Baseline.Improvements), len(report.Baseline.Unchanged)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Report generated in %v. Storage backend: %s\n", duration.Round(time.Millisecond), cfg.Storage.Backend); err != nil {
		return err
	}
	return nil
}

// writeSummaryTable renders count, mean, min, max and standard deviation per metric type.
func writeSummaryTable(w io.Writer, summaries []typeSummary, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Type", "Count", "Mean", "Min", "Max", "StdDev"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		lo, hi := s.sample.Bounds()
		stddev := 0.0
		if len(s.sample.Xs) > 1 {
			stddev = s.sample.StdDev()
		}
		data = append(data, []string{
			string(s.metricType),
			strconv.Itoa(len(s.sample.Xs)),
			formatValue(s.sample.Mean(), s.unit, cfg.Precision),
			formatValue(lo, s.unit, cfg.Precision),
			formatValue(hi, s.unit, cfg.Precision),
			formatValue(stddev, s.unit, cfg.Precision),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writeComparisonTable renders every comparison entry with a coloured change column.
func writeComparisonTable(w io.Writer, comparison *schema.BaselineComparison, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Metric", "Baseline", "Current", "Change", "Status"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	entries := comparison.Entries()
	data := make([][]string, 0, len(entries))
	for _, e := range entries {
		colorize := statusColorizer(e.Status, cfg.UseColors)
		data = append(data, []string{
			e.MetricID,
			formatValue(e.BaselineValue, e.Unit, cfg.Precision),
			formatValue(e.CurrentValue, e.Unit, cfg.Precision),
			colorize(formatPercentChange(e.PercentChange, cfg.Precision)),
			statusLabel(e.Status, cfg.UseColors),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
