package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/internal/parquet"
	"github.com/huangsam/perfwatch/schema"
)

// timeLayout is how timestamps appear in tables.
const timeLayout = "2006-01-02 15:04:05"

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := writeRows(csvWriter); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// writeParquetRecords writes records to the configured output file in Parquet format.
func writeParquetRecords(records []schema.MetricRecord, outputFile string) error {
	if outputFile == "" {
		return errors.New("parquet output requires --output-file")
	}
	rows, err := parquet.ConvertMetricRecords(records)
	if err != nil {
		return err
	}
	if err := parquet.WriteMetricRowsParquet(rows, outputFile); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stderr, "💾 Wrote %d records to %s\n", len(rows), outputFile)
	return nil
}

// createFormatters creates the common formatter closures used across multiple output types.
func createFormatters(precision int) (fmtFloat func(float64) string, intFmt string) {
	numFmt := "%.*f"
	intFmt = "%d"
	fmtFloat = func(v float64) string {
		return fmt.Sprintf(numFmt, precision, v)
	}
	return fmtFloat, intFmt
}

// formatValue renders a measurement in a human-friendly magnitude for its unit.
func formatValue(value float64, unit string, precision int) string {
	switch unit {
	case schema.UnitSeconds:
		return formatSeconds(value, precision)
	case schema.UnitBytes:
		return formatBytes(value, precision)
	case schema.UnitPercent:
		return fmt.Sprintf("%.*f%%", precision, value)
	case "":
		return fmt.Sprintf("%.*f", precision, value)
	default:
		return fmt.Sprintf("%.*f %s", precision, value, unit)
	}
}

func formatSeconds(v float64, precision int) string {
	abs := math.Abs(v)
	switch {
	case abs == 0:
		return fmt.Sprintf("%.*fs", precision, 0.0)
	case abs < 1e-6:
		return fmt.Sprintf("%.*fns", precision, v*1e9)
	case abs < 1e-3:
		return fmt.Sprintf("%.*fµs", precision, v*1e6)
	case abs < 1:
		return fmt.Sprintf("%.*fms", precision, v*1e3)
	default:
		return fmt.Sprintf("%.*fs", precision, v)
	}
}

func formatBytes(v float64, precision int) string {
	const unit = 1024.0
	abs := math.Abs(v)
	if abs < unit {
		return fmt.Sprintf("%.0fB", v)
	}
	suffixes := []string{"KiB", "MiB", "GiB", "TiB"}
	i := 0
	for abs >= unit*unit && i < len(suffixes)-1 {
		abs /= unit
		v /= unit
		i++
	}
	return fmt.Sprintf("%.*f%s", precision, v/unit, suffixes[i])
}

// formatPercentChange renders a signed percentage with a direction marker.
func formatPercentChange(pct float64, precision int) string {
	switch {
	case pct > 0:
		return fmt.Sprintf("+%.*f%% ▲", precision, pct)
	case pct < 0:
		return fmt.Sprintf("%.*f%% ▼", precision, pct)
	default:
		return fmt.Sprintf("%.*f%%", precision, 0.0)
	}
}

// statusColorizer returns the colour function for a comparison status.
func statusColorizer(status schema.ComparisonStatus, useColors bool) func(...any) string {
	if !useColors {
		return fmt.Sprint
	}
	switch status {
	case schema.Regression:
		return contract.RegressionColor.SprintFunc()
	case schema.Improvement:
		return contract.ImprovementColor.SprintFunc()
	default:
		return contract.UnchangedColor.SprintFunc()
	}
}

// statusLabel returns a coloured or plain label for a comparison status.
func statusLabel(status schema.ComparisonStatus, useColors bool) string {
	if useColors {
		return contract.GetColorLabel(status)
	}
	return contract.GetPlainLabel(status)
}

// okLabel renders a success flag.
func okLabel(ok bool, useColors bool) string {
	text := "FAILED"
	if ok {
		text = "OK"
	}
	if !useColors {
		return text
	}
	if ok {
		return color.New(color.FgGreen).Sprint(text)
	}
	return color.New(color.FgRed).Sprint(text)
}

// recordLabel picks the most specific description of what a record measured.
func recordLabel(r schema.MetricRecord) string {
	switch {
	case r.FunctionName != "":
		return r.FunctionName
	case r.FilePath != "":
		return r.FilePath
	}
	for _, key := range []string{"package", "command", "pkg"} {
		if v, ok := r.MetadataValue(key); ok && v != "" {
			return v
		}
	}
	return "-"
}

// orDash replaces an empty string with a dash.
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// printLabeledValues prints label-value pairs padded to the longest label.
func printLabeledValues(w io.Writer, labels []string, values []any) error {
	maxLabelLen := 0
	for _, label := range labels {
		maxLabelLen = max(maxLabelLen, len(label))
	}
	for i, label := range labels {
		if _, err := fmt.Fprintf(w, "  %-*s %v\n", maxLabelLen+1, label, values[i]); err != nil {
			return err
		}
	}
	return nil
}
