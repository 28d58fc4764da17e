package cmd

import (
	"github.com/huangsam/perfwatch/core"
	"github.com/spf13/cobra"
)

// collectCmd runs one aggregation round.
var collectCmd = &cobra.Command{
	Use:   "collect [project-path]",
	Short: "Measure the project with every enabled collector and store the results.",
	Long: `Run the enabled collectors concurrently against a Go project and store every
measurement they produce, tagged with the current commit and branch.

Built-in collectors:
- build     - go build wall time, peak memory and binary sizes
- tests     - go test wall time per package, overall and peak memory
- benchmark - go test -bench ns/op, B/op and allocs/op per benchmark

Extra commands declared under 'commands' in .perfwatch.yaml become collectors
named after the command and are timed as a whole.

A failing collector never stops the others. The round only fails when every
collector fails or when the results cannot be stored.

Examples:
  # Collect with the default collectors (build, tests)
  perfwatch collect

  # Include benchmarks matching a pattern
  perfwatch collect --collectors build,tests,benchmark --bench 'Sort'

  # Store into SQLite and keep 90 days of history
  perfwatch collect --storage-type sqlite --retention-days 90`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCollect(rootCtx, cfg, env); err != nil {
			fatal("Collection failed", err)
		}
	},
}
