package schema

import "time"

// CollectorOutcome is the result of one collector within an aggregation round.
type CollectorOutcome struct {
	CollectorID string        `json:"collectorId"`
	RecordCount int           `json:"recordCount"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Succeeded reports whether the collector produced records without error.
func (o CollectorOutcome) Succeeded() bool {
	return o.Error == ""
}

// CollectionRound is the diagnostic view of one aggregation round.
// Records only ever holds records from successful collectors.
type CollectionRound struct {
	ProjectName string             `json:"projectName"`
	StartedAt   time.Time          `json:"startedAt"`
	Duration    time.Duration      `json:"duration"`
	Records     []MetricRecord     `json:"records"`
	Outcomes    []CollectorOutcome `json:"outcomes"`
}

// FailedCount returns the number of collectors that failed in the round.
func (r *CollectionRound) FailedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			n++
		}
	}
	return n
}
