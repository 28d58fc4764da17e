package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"github.com/olekukonko/tablewriter"
)

// maxErrorWidth bounds how much of a collector error appears in a table cell.
const maxErrorWidth = 60

// PrintCollectionRound outputs an aggregation round to stdout or the configured output file.
func PrintCollectionRound(round *schema.CollectionRound, cfg *contract.Config) error {
	if cfg.Output == schema.ParquetOut {
		return writeParquetRecords(round.Records, cfg.OutputFile)
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteCollectionRound(w, round, cfg)
	}, fmt.Sprintf("Wrote collection round with %d records", len(round.Records)))
}

// WriteCollectionRound writes an aggregation round, dispatching based on the output format configured.
func WriteCollectionRound(w io.Writer, round *schema.CollectionRound, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, round); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		header := []string{"collector", "succeeded", "records", "duration_ms", "error"}
		err := writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
			for _, o := range round.Outcomes {
				row := []string{
					o.CollectorID,
					strconv.FormatBool(o.Succeeded()),
					strconv.Itoa(o.RecordCount),
					strconv.FormatInt(o.Duration.Milliseconds(), 10),
					o.Error,
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeRoundTable(w, round, cfg)
	}
	return nil
}

// writeRoundTable renders per-collector outcomes followed by a summary.
func writeRoundTable(w io.Writer, round *schema.CollectionRound, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Collector", "Status", "Records", "Duration", "Error"})
	data := make([][]string, 0, len(round.Outcomes))
	for _, o := range round.Outcomes {
		data = append(data, []string{
			o.CollectorID,
			okLabel(o.Succeeded(), cfg.UseColors),
			strconv.Itoa(o.RecordCount),
			o.Duration.Round(time.Millisecond).String(),
			orDash(truncateEnd(o.Error, maxErrorWidth)),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Collected %d records for %s from %d collectors (%d failed)\n",
		len(round.Records), round.ProjectName, len(round.Outcomes), round.FailedCount()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Round completed in %v. Storage backend: %s\n", round.Duration.Round(time.Millisecond), cfg.Storage.Backend); err != nil {
		return err
	}
	return nil
}

// truncateEnd shortens s to at most width runes, ending in an ellipsis.
func truncateEnd(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width || width <= 3 {
		return s
	}
	return string(runes[:width-3]) + "..."
}
