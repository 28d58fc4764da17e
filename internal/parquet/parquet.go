// Package parquet provides data structures and functions for exporting perfwatch
// metric records to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/perfwatch/schema"
	"github.com/parquet-go/parquet-go"
)

// MetricRow represents one metric record as a Parquet row.
// This struct maps to the perfwatch_metric_records database table.
type MetricRow struct {
	// ID is the unique identifier of the measurement
	ID string `parquet:"id,snappy"`

	// ProjectName is the project the measurement belongs to
	ProjectName string `parquet:"project_name,snappy,dict"`

	// Source is the component that produced the measurement
	Source string `parquet:"source,snappy,dict"`

	// MetricType is the kind of measurement
	MetricType string `parquet:"metric_type,snappy,dict"`

	Value float64 `parquet:"value,snappy"`
	Unit  string  `parquet:"unit,snappy,dict"`

	// RecordedAt is when the measurement was taken (stored as TIMESTAMP with nanosecond precision)
	RecordedAt time.Time `parquet:"recorded_at,snappy"`

	// Metadata contains the JSON-encoded metadata map (nullable)
	Metadata *string `parquet:"metadata,optional,snappy"`

	FilePath     *string `parquet:"file_path,optional,snappy"`
	FunctionName *string `parquet:"function_name,optional,snappy"`
	LineNumber   *int32  `parquet:"line_number,optional,snappy"`
	CommitHash   *string `parquet:"commit_hash,optional,snappy"`
	BranchName   *string `parquet:"branch_name,optional,snappy"`
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ConvertMetricRecords converts schema.MetricRecord to MetricRow for Parquet export.
func ConvertMetricRecords(records []schema.MetricRecord) ([]MetricRow, error) {
	result := make([]MetricRow, len(records))
	for i, record := range records {
		row := MetricRow{
			ID:           record.ID,
			ProjectName:  record.ProjectName,
			Source:       string(record.Source),
			MetricType:   string(record.Type),
			Value:        record.Value,
			Unit:         record.Unit,
			RecordedAt:   record.Timestamp,
			FilePath:     optionalString(record.FilePath),
			FunctionName: optionalString(record.FunctionName),
			CommitHash:   optionalString(record.CommitHash),
			BranchName:   optionalString(record.BranchName),
		}
		if record.LineNumber != 0 {
			line := int32(record.LineNumber)
			row.LineNumber = &line
		}
		if len(record.Metadata) > 0 {
			raw, err := json.Marshal(record.Metadata)
			if err != nil {
				return nil, fmt.Errorf("failed to encode metadata of record %s: %w", record.ID, err)
			}
			row.Metadata = optionalString(string(raw))
		}
		result[i] = row
	}
	return result, nil
}

// ToMetricRecords converts Parquet rows back into metric records.
func ToMetricRecords(rows []MetricRow) ([]schema.MetricRecord, error) {
	result := make([]schema.MetricRecord, len(rows))
	for i, row := range rows {
		record := schema.MetricRecord{
			ID:           row.ID,
			ProjectName:  row.ProjectName,
			Source:       schema.MetricSource(row.Source),
			Type:         schema.MetricType(row.MetricType),
			Value:        row.Value,
			Unit:         row.Unit,
			Timestamp:    row.RecordedAt.UTC(),
			FilePath:     derefString(row.FilePath),
			FunctionName: derefString(row.FunctionName),
			CommitHash:   derefString(row.CommitHash),
			BranchName:   derefString(row.BranchName),
		}
		if row.LineNumber != nil {
			record.LineNumber = int(*row.LineNumber)
		}
		if row.Metadata != nil {
			if err := json.Unmarshal([]byte(*row.Metadata), &record.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata of row %s: %w", row.ID, err)
			}
		}
		result[i] = record
	}
	return result, nil
}

// WriteMetricRowsParquet writes a slice of MetricRow structs to a Parquet file.
func WriteMetricRowsParquet(data []MetricRow, outputPath string) (err error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { err = errors.Join(err, file.Close()) }()

	// The schema is derived from the MetricRow struct tags
	writer := parquet.NewGenericWriter[MetricRow](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ReadMetricRowsParquet reads every MetricRow from a Parquet file.
func ReadMetricRowsParquet(inputPath string) ([]MetricRow, error) {
	rows, err := parquet.ReadFile[MetricRow](inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file: %w", err)
	}
	return rows, nil
}
