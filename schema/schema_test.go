package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricRecordDefaults(t *testing.T) {
	r, err := NewMetricRecord(BuildSource, BuildDuration, 12.0, "demo")
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, UnitSeconds, r.Unit)
	assert.Equal(t, "demo", r.ProjectName)
	assert.False(t, r.Timestamp.IsZero())
	assert.Equal(t, time.UTC, r.Timestamp.Location())
}

func TestNewMetricRecordOptions(t *testing.T) {
	ts := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	md := map[string]string{"pkg": "example.com/x"}
	r, err := NewMetricRecord(BenchmarkSource, ExecutionTime, 0.5, "demo",
		WithUnit("ms"),
		WithTimestamp(ts),
		WithMetadata(md),
		WithLocation("x/x.go", "BenchmarkX", 42),
		WithProvenance("abc123", "main"),
	)
	require.NoError(t, err)

	assert.Equal(t, "ms", r.Unit)
	assert.Equal(t, ts, r.Timestamp)
	assert.Equal(t, "BenchmarkX", r.FunctionName)
	assert.Equal(t, 42, r.LineNumber)
	assert.Equal(t, "abc123", r.CommitHash)

	md["pkg"] = "mutated"
	v, ok := r.MetadataValue("pkg")
	assert.True(t, ok)
	assert.Equal(t, "example.com/x", v)
}

func TestNewMetricRecordRejectsBadInput(t *testing.T) {
	_, err := NewMetricRecord(BuildSource, BuildDuration, 1, "")
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = NewMetricRecord(BuildSource, MetricType("bogus"), 1, "demo")
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestCustomMetricType(t *testing.T) {
	ct := CustomMetricType("lintTime")
	assert.True(t, ct.IsCustom())
	assert.True(t, ct.IsValid())
	assert.Empty(t, ct.CanonicalUnit())
	assert.False(t, CustomMetricType("").IsValid())
	assert.True(t, CustomMetricSource("ci").IsCustom())
	assert.False(t, BuildSource.IsCustom())
}

func TestMetricRecordEqualByID(t *testing.T) {
	a, err := NewMetricRecord(BuildSource, BuildDuration, 1, "demo", WithID("same"))
	require.NoError(t, err)
	b, err := NewMetricRecord(TestsSource, TestDuration, 99, "other", WithID("same"))
	require.NoError(t, err)
	c, err := NewMetricRecord(BuildSource, BuildDuration, 1, "demo")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestTimeRangeInclusive(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	tr, err := NewTimeRange(start, end)
	require.NoError(t, err)

	assert.True(t, tr.Contains(start))
	assert.True(t, tr.Contains(end))
	assert.False(t, tr.Contains(start.Add(-time.Nanosecond)))
	assert.False(t, tr.Contains(end.Add(time.Nanosecond)))

	_, err = NewTimeRange(end, start)
	assert.Error(t, err)

	assert.True(t, AllTime().Contains(time.Now()))
}

func TestMetricRecordJSON(t *testing.T) {
	ts := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	r, err := NewMetricRecord(BuildSource, BinarySize, 2048, "demo", WithID("r1"), WithTimestamp(ts))
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp":"2025-03-01T12:00:00Z"`)
	assert.Contains(t, string(data), `"projectName":"demo"`)
	assert.NotContains(t, string(data), "commitHash")
}

func TestReportSummary(t *testing.T) {
	r := &Report{ProjectName: "demo"}
	assert.False(t, r.HasRegressions())
	assert.Contains(t, r.Summary(), "no baseline")

	r.Baseline = &BaselineComparison{
		BaselineID:  "abc",
		Regressions: []ComparisonEntry{{MetricID: string(BuildDuration)}},
		Unchanged:   []ComparisonEntry{{MetricID: string(BinarySize)}},
	}
	assert.True(t, r.HasRegressions())
	assert.Len(t, r.Baseline.Entries(), 2)
	assert.Equal(t, string(BuildDuration), r.Baseline.Entries()[0].MetricID)
}

func TestCollectionRoundFailedCount(t *testing.T) {
	round := &CollectionRound{Outcomes: []CollectorOutcome{
		{CollectorID: "build", RecordCount: 1},
		{CollectorID: "tests", Error: "timeout"},
	}}
	assert.Equal(t, 1, round.FailedCount())
}
