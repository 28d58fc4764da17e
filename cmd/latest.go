package cmd

import (
	"github.com/huangsam/perfwatch/core"
	"github.com/spf13/cobra"
)

// latestCmd lists the newest records.
var latestCmd = &cobra.Command{
	Use:   "latest [project-path]",
	Short: "Show the newest stored measurements.",
	Long: `List the project's newest records, newest first, up to --limit.

Examples:
  # Ten newest records
  perfwatch latest --limit 10

  # As JSON for scripting
  perfwatch latest --output json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteLatest(rootCtx, cfg, env); err != nil {
			fatal("Cannot list metrics", err)
		}
	},
}
