package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintRecords outputs metric records to stdout or the configured output file.
func PrintRecords(records []schema.MetricRecord, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		return writeParquetRecords(records, cfg.OutputFile)
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteRecords(w, records, cfg, duration)
	}, fmt.Sprintf("Wrote %d records", len(records)))
}

// WriteRecords writes metric records, dispatching based on the output format configured.
func WriteRecords(w io.Writer, records []schema.MetricRecord, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if records == nil {
			records = []schema.MetricRecord{}
		}
		if err := writeJSON(w, records); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVRecords(w, records, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeRecordsTable(w, records, cfg, duration)
	}
	return nil
}

// writeCSVRecords writes one row per record with every field flattened.
func writeCSVRecords(w io.Writer, records []schema.MetricRecord, fmtFloat func(float64) string) error {
	header := []string{
		"id", "project", "timestamp", "source", "type", "value", "unit",
		"file_path", "function_name", "line_number", "commit", "branch", "metadata",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range records {
			row := []string{
				r.ID,
				r.ProjectName,
				r.Timestamp.Format(time.RFC3339Nano),
				string(r.Source),
				string(r.Type),
				fmtFloat(r.Value),
				r.Unit,
				r.FilePath,
				r.FunctionName,
				strconv.Itoa(r.LineNumber),
				r.CommitHash,
				r.BranchName,
				formatMetadata(r.Metadata),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// formatMetadata flattens metadata into sorted key=value pairs.
func formatMetadata(md map[string]string) string {
	keys := slices.Sorted(maps.Keys(md))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + md[k]
	}
	return strings.Join(parts, ";")
}

// writeRecordsTable renders records as a human-readable table.
func writeRecordsTable(w io.Writer, records []schema.MetricRecord, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"#", "Time", "Type", "Source", "Label", "Value", "Commit"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.PerColumn = []tw.Align{
			tw.AlignRight, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignLeft,
		}
	})

	labelWidth := GetMaxTableLabelWidth(cfg)
	data := make([][]string, 0, len(records))
	for i, r := range records {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			r.Timestamp.Local().Format(timeLayout),
			string(r.Type),
			string(r.Source),
			contract.TruncatePath(recordLabel(r), labelWidth),
			formatValue(r.Value, r.Unit, cfg.Precision),
			orDash(contract.ShortHash(r.CommitHash)),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Showing %d records for %s\n", len(records), cfg.ProjectName); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Completed in %v. Storage backend: %s\n", duration.Round(time.Millisecond), cfg.Storage.Backend); err != nil {
		return err
	}
	return nil
}
