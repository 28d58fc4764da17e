package iostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/internal/parquet"
	"github.com/huangsam/perfwatch/schema"
)

// ExportParquet writes a project's records inside the window to a Parquet file
// and returns how many rows were written.
func ExportParquet(ctx context.Context, store contract.MetricStore, project string, tr schema.TimeRange, outputFile string) (int, error) {
	if outputFile == "" {
		return 0, errors.New("--output-file is required for export command")
	}
	if project == "" {
		return 0, errors.New("a project name is required for export")
	}

	records, err := store.RetrieveMetrics(ctx, project, tr)
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve metrics: %w", err)
	}
	if len(records) == 0 {
		return 0, schema.NewDataNotFound(fmt.Sprintf("no metrics found for project %s in the selected window", project))
	}

	rows, err := parquet.ConvertMetricRecords(records)
	if err != nil {
		return 0, err
	}
	if err := parquet.WriteMetricRowsParquet(rows, outputFile); err != nil {
		return 0, fmt.Errorf("failed to write metrics: %w", err)
	}
	return len(rows), nil
}
