package cmd

import (
	"github.com/huangsam/perfwatch/core"
	"github.com/spf13/cobra"
)

// reportCmd summarizes stored metrics.
var reportCmd = &cobra.Command{
	Use:   "report [project-path]",
	Short: "Summarize stored metrics for a time window.",
	Long: `Summarize the project's stored metrics inside a time window.

Every metric type gets count, mean, min, max and standard deviation. With
--baseline, the mean of each type is also compared against the mean of the
records taken at the baseline commit:
- Regression  - more than 1% higher than the baseline
- Improvement - more than 1% lower than the baseline
- Unchanged   - within 1% of the baseline

Examples:
  # Last 30 days
  perfwatch report

  # Compare the last week against main
  perfwatch report --lookback "7 days" --baseline main

  # Export the comparison as CSV
  perfwatch report --baseline v1.2.0 --output csv --output-file report.csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteReport(rootCtx, cfg, env); err != nil {
			fatal("Cannot generate report", err)
		}
	},
}
