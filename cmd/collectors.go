package cmd

import (
	"github.com/huangsam/perfwatch/core"
	"github.com/spf13/cobra"
)

// collectorsCmd lists the known collectors.
var collectorsCmd = &cobra.Command{
	Use:   "collectors [project-path]",
	Short: "List the known collectors and whether they are enabled.",
	Long: `List every built-in collector and configured command with the metric types it
emits, whether its tool is installed, and whether configuration enables it.

Examples:
  perfwatch collectors
  perfwatch collectors --collectors build,benchmark`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCollectors(rootCtx, cfg, env); err != nil {
			fatal("Cannot list collectors", err)
		}
	},
}
