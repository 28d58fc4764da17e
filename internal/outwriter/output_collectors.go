package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"github.com/olekukonko/tablewriter"
)

// PrintCollectors outputs the known collectors to stdout or the configured output file.
func PrintCollectors(infos []schema.CollectorInfo, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteCollectors(w, infos, cfg)
	}, "Wrote collectors")
}

// WriteCollectors writes the known collectors, dispatching based on the output format configured.
func WriteCollectors(w io.Writer, infos []schema.CollectorInfo, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeJSON(w, infos)
	case schema.CSVOut:
		header := []string{"id", "supported_types", "available", "enabled"}
		return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
			for _, info := range infos {
				row := []string{info.ID, joinTypes(info.SupportedTypes, "|"), strconv.FormatBool(info.Available), strconv.FormatBool(info.Enabled)}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
			return nil
		})
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Header([]string{"Collector", "Metric Types", "Available", "Enabled"})
	data := make([][]string, 0, len(infos))
	for _, info := range infos {
		data = append(data, []string{
			info.ID,
			joinTypes(info.SupportedTypes, ", "),
			yesNo(info.Available),
			yesNo(info.Enabled),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Enable collectors with --collectors or the 'collectors' config key\n")
	return err
}

func joinTypes(types []schema.MetricType, sep string) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, sep)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
