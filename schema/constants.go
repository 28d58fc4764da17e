package schema

import "strings"

// Custom string types for type safety.
type (
	// MetricType represents the kind of measurement a record holds.
	MetricType string

	// MetricSource represents where a measurement came from.
	MetricSource string

	// OutputMode represents the format of the output.
	OutputMode string

	// StorageBackend represents the storage implementation for metric records.
	StorageBackend string

	// ComparisonStatus represents how a metric moved relative to its baseline.
	ComparisonStatus string
)

// customPrefix marks metric types and sources outside the built-in enumerations.
const customPrefix = "custom:"

// All built-in metric types.
const (
	ExecutionTime MetricType = "executionTime"
	MemoryUsage   MetricType = "memoryUsage"
	CPUUsage      MetricType = "cpuUsage"
	BuildDuration MetricType = "buildDuration"
	TestDuration  MetricType = "testDuration"
	BinarySize    MetricType = "binarySize"
	Allocations   MetricType = "allocations"
	FrameRate     MetricType = "frameRate"
)

// Canonical units.
const (
	UnitSeconds = "seconds"
	UnitBytes   = "bytes"
	UnitPercent = "percent"
	UnitCount   = "count"
	UnitFPS     = "fps"
)

// All built-in metric sources.
const (
	BuildSource     MetricSource = "build"
	TestsSource     MetricSource = "tests"
	BenchmarkSource MetricSource = "benchmark"
	ProfilerSource  MetricSource = "profiler"
	BinarySource    MetricSource = "binary"
	CommandSource   MetricSource = "command"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All storage backends supported.
const (
	MemoryBackend     StorageBackend = "memory"
	FileBackend       StorageBackend = "file" // default
	SQLiteBackend     StorageBackend = "sqlite"
	MySQLBackend      StorageBackend = "mysql"
	PostgreSQLBackend StorageBackend = "postgresql"
)

// All comparison statuses.
const (
	Improvement ComparisonStatus = "improvement"
	Regression  ComparisonStatus = "regression"
	Unchanged   ComparisonStatus = "unchanged"
)

// canonicalUnits maps each built-in metric type to its default unit.
var canonicalUnits = map[MetricType]string{
	ExecutionTime: UnitSeconds,
	MemoryUsage:   UnitBytes,
	CPUUsage:      UnitPercent,
	BuildDuration: UnitSeconds,
	TestDuration:  UnitSeconds,
	BinarySize:    UnitBytes,
	Allocations:   UnitCount,
	FrameRate:     UnitFPS,
}

// AllMetricTypes lists the built-in metric types in display order.
var AllMetricTypes = []MetricType{
	ExecutionTime, MemoryUsage, CPUUsage, BuildDuration,
	TestDuration, BinarySize, Allocations, FrameRate,
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidStorageBackends lists all valid storage backends.
var ValidStorageBackends = map[StorageBackend]struct{}{
	MemoryBackend:     {},
	FileBackend:       {},
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
}

// CustomMetricType returns a metric type outside the built-in set.
func CustomMetricType(name string) MetricType {
	return MetricType(customPrefix + name)
}

// CustomMetricSource returns a metric source outside the built-in set.
func CustomMetricSource(name string) MetricSource {
	return MetricSource(customPrefix + name)
}

// IsCustom reports whether the type was created with CustomMetricType.
func (t MetricType) IsCustom() bool {
	return strings.HasPrefix(string(t), customPrefix)
}

// CanonicalUnit returns the default unit of a metric type.
// Custom types have no canonical unit.
func (t MetricType) CanonicalUnit() string {
	return canonicalUnits[t]
}

// IsValid reports whether the type is built-in or a well-formed custom type.
func (t MetricType) IsValid() bool {
	if _, ok := canonicalUnits[t]; ok {
		return true
	}
	return t.IsCustom() && len(t) > len(customPrefix)
}

// IsCustom reports whether the source was created with CustomMetricSource.
func (s MetricSource) IsCustom() bool {
	return strings.HasPrefix(string(s), customPrefix)
}

// IsDatabase reports whether the backend is SQL based.
func (b StorageBackend) IsDatabase() bool {
	switch b {
	case SQLiteBackend, MySQLBackend, PostgreSQLBackend:
		return true
	default:
		return false
	}
}
