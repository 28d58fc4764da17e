// Package schema has the records, reports and errors shared across perfwatch.
package schema

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// MetricRecord is one immutable measurement. Two records are the same
// measurement exactly when their IDs match.
type MetricRecord struct {
	ID           string            `json:"id"`
	Source       MetricSource      `json:"source"`
	Type         MetricType        `json:"type"`
	Value        float64           `json:"value"`
	Unit         string            `json:"unit"`
	Timestamp    time.Time         `json:"timestamp"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	FilePath     string            `json:"filePath,omitempty"`
	FunctionName string            `json:"functionName,omitempty"`
	LineNumber   int               `json:"lineNumber,omitempty"`
	CommitHash   string            `json:"commitHash,omitempty"`
	BranchName   string            `json:"branchName,omitempty"`
	ProjectName  string            `json:"projectName"`
}

// RecordOption customizes a record at construction time.
type RecordOption func(*MetricRecord)

// WithID overrides the generated record ID.
func WithID(id string) RecordOption {
	return func(r *MetricRecord) { r.ID = id }
}

// WithUnit overrides the canonical unit of the record's type.
func WithUnit(unit string) RecordOption {
	return func(r *MetricRecord) { r.Unit = unit }
}

// WithTimestamp overrides the creation time.
func WithTimestamp(ts time.Time) RecordOption {
	return func(r *MetricRecord) { r.Timestamp = ts.UTC() }
}

// WithMetadata adds metadata entries. The map is copied.
func WithMetadata(md map[string]string) RecordOption {
	return func(r *MetricRecord) {
		if len(md) == 0 {
			return
		}
		if r.Metadata == nil {
			r.Metadata = make(map[string]string, len(md))
		}
		maps.Copy(r.Metadata, md)
	}
}

// WithLocation sets the source location a measurement refers to.
func WithLocation(filePath, functionName string, lineNumber int) RecordOption {
	return func(r *MetricRecord) {
		r.FilePath = filePath
		r.FunctionName = functionName
		r.LineNumber = lineNumber
	}
}

// WithProvenance sets the commit and branch the measurement was taken at.
func WithProvenance(commitHash, branchName string) RecordOption {
	return func(r *MetricRecord) {
		r.CommitHash = commitHash
		r.BranchName = branchName
	}
}

// NewMetricRecord creates a record with a fresh ID and the current time.
// The unit defaults to the canonical unit of the metric type.
func NewMetricRecord(source MetricSource, metricType MetricType, value float64, projectName string, opts ...RecordOption) (MetricRecord, error) {
	if projectName == "" {
		return MetricRecord{}, NewInvalidData("metric record requires a project name")
	}
	if !metricType.IsValid() {
		return MetricRecord{}, NewInvalidData(fmt.Sprintf("unknown metric type %q", metricType))
	}
	r := MetricRecord{
		ID:          uuid.NewString(),
		Source:      source,
		Type:        metricType,
		Value:       value,
		Unit:        metricType.CanonicalUnit(),
		Timestamp:   time.Now().UTC(),
		ProjectName: projectName,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r, nil
}

// Equal reports whether both records are the same measurement.
func (r MetricRecord) Equal(other MetricRecord) bool {
	return r.ID == other.ID
}

// MetadataValue returns a metadata entry and whether it exists.
func (r MetricRecord) MetadataValue(key string) (string, bool) {
	v, ok := r.Metadata[key]
	return v, ok
}

// Validate checks the fields every stored record must carry.
func (r MetricRecord) Validate() error {
	switch {
	case r.ID == "":
		return NewInvalidData("metric record has no id")
	case r.ProjectName == "":
		return NewInvalidData(fmt.Sprintf("metric record %s has no project name", r.ID))
	case !r.Type.IsValid():
		return NewInvalidData(fmt.Sprintf("metric record %s has unknown type %q", r.ID, r.Type))
	case r.Timestamp.IsZero():
		return NewInvalidData(fmt.Sprintf("metric record %s has no timestamp", r.ID))
	}
	return nil
}

// TimeRange is a window of time. Both ends are inclusive.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// farFuture is the upper bound used by AllTime.
var farFuture = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// NewTimeRange validates that start does not come after end.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.After(end) {
		return TimeRange{}, fmt.Errorf("time range start %s is after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeRange{Start: start, End: end}, nil
}

// LastDuration returns the window [now-d, now].
func LastDuration(d time.Duration, now time.Time) TimeRange {
	return TimeRange{Start: now.Add(-d), End: now}
}

// AllTime returns a window covering every plausible timestamp.
func AllTime() TimeRange {
	return TimeRange{Start: time.Time{}, End: farFuture}
}

// Contains reports whether t falls inside the window, ends included.
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && !t.After(tr.End)
}

// ComparisonEntry compares the mean value of one metric type against the baseline.
type ComparisonEntry struct {
	MetricID      string           `json:"metricId"`
	BaselineValue float64          `json:"baselineValue"`
	CurrentValue  float64          `json:"currentValue"`
	PercentChange float64          `json:"percentChange"`
	Status        ComparisonStatus `json:"status"`
	Unit          string           `json:"unit,omitempty"`
}

// BaselineComparison holds classified entries against one baseline commit.
type BaselineComparison struct {
	BaselineID   string            `json:"baselineId"`
	Improvements []ComparisonEntry `json:"improvements"`
	Regressions  []ComparisonEntry `json:"regressions"`
	Unchanged    []ComparisonEntry `json:"unchanged"`
}

// Entries returns every entry in regressions, improvements, unchanged order.
func (b *BaselineComparison) Entries() []ComparisonEntry {
	if b == nil {
		return nil
	}
	out := make([]ComparisonEntry, 0, len(b.Regressions)+len(b.Improvements)+len(b.Unchanged))
	out = append(out, b.Regressions...)
	out = append(out, b.Improvements...)
	out = append(out, b.Unchanged...)
	return out
}

// Report is the set of metrics for a project window plus an optional baseline comparison.
type Report struct {
	ProjectName string              `json:"projectName"`
	TimeRange   TimeRange           `json:"timeRange"`
	Metrics     []MetricRecord      `json:"metrics"`
	GeneratedAt time.Time           `json:"generatedAt"`
	Baseline    *BaselineComparison `json:"baselineComparison,omitempty"`
}

// HasRegressions reports whether the baseline comparison found any regression.
func (r *Report) HasRegressions() bool {
	return r.Baseline != nil && len(r.Baseline.Regressions) > 0
}

// Summary returns a one-line description of the report.
func (r *Report) Summary() string {
	if r.Baseline == nil {
		return fmt.Sprintf("%d metrics for %s, no baseline comparison", len(r.Metrics), r.ProjectName)
	}
	return fmt.Sprintf("%d metrics for %s vs %s: %d regressions, %d improvements, %d unchanged",
		len(r.Metrics), r.ProjectName, r.Baseline.BaselineID,
		len(r.Baseline.Regressions), len(r.Baseline.Improvements), len(r.Baseline.Unchanged))
}
