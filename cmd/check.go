package cmd

import (
	"github.com/huangsam/perfwatch/core"
	"github.com/spf13/cobra"
)

// checkCmd focused on CI/CD policy enforcement.
var checkCmd = &cobra.Command{
	Use:   "check [project-path]",
	Short: "Fail when metrics regressed against a baseline commit (for CI/CD).",
	Long: `Compare the metrics in the window against a baseline commit and exit with a
non-zero status when more than --max-regressions metric types regressed.

A metric type regresses when its mean rose by more than 1% over the baseline.
Lower is better for every built-in metric.

Use cases:
- Pull request gates - block merges that slow down builds or tests
- Release validation - compare a release candidate against the last release

Examples:
  # Collect on the PR head, then gate against main
  perfwatch collect
  perfwatch check --baseline origin/main --lookback "1 hour"

  # Tolerate one regression
  perfwatch check --baseline v1.4.0 --max-regressions 1`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCheck(rootCtx, cfg, env); err != nil {
			fatal("Regression check failed", err)
		}
	},
}
