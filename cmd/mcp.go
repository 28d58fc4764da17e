package cmd

import (
	"github.com/huangsam/perfwatch/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp [project-path]",
	Short: "Start the perfwatch MCP server",
	Long:  `Launch an MCP server that allows AI agents to collect metrics, build reports and check regressions via standard tools.`,
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr, so stdio stays free for the protocol
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, env)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
