package schema

// CheckResult holds the outcome of a regression check against a baseline.
type CheckResult struct {
	Passed         bool              `json:"passed"`
	ProjectName    string            `json:"projectName"`
	BaselineID     string            `json:"baselineId"`
	MaxRegressions int               `json:"maxRegressions"`
	Regressions    []ComparisonEntry `json:"regressions"`
	Improvements   int               `json:"improvements"`
	Unchanged      int               `json:"unchanged"`
	MetricCount    int               `json:"metricCount"`
}
