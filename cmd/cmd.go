// Package cmd defines the command-line interface for perfwatch.
package cmd

import (
	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(collectorsCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeMigrateCmd)
	storeCmd.AddCommand(storePruneCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("project", "", "Project name used to group metrics (defaults to the repository name)")
	rootCmd.PersistentFlags().StringSlice("collectors", nil, "Comma-separated list of collector IDs to enable")
	rootCmd.PersistentFlags().String("storage-type", string(schema.FileBackend), "Storage backend: memory or file or sqlite or mysql or postgresql")
	rootCmd.PersistentFlags().String("storage-path", "", "Directory for the file backend or database file for sqlite")
	rootCmd.PersistentFlags().String("storage-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().Int("retention-days", 0, "Delete records older than this many days after each collection (0 = keep forever)")
	rootCmd.PersistentFlags().String("baseline", "", "Baseline commit or ref to compare against")
	rootCmd.PersistentFlags().String("start", "", "Start date in ISO8601 or time ago")
	rootCmd.PersistentFlags().String("end", "", "End date in ISO8601 or time ago")
	rootCmd.PersistentFlags().String("lookback", contract.DefaultLookback, "Time window ending at --end when --start is not set")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of collectCmd to Viper
	collectCmd.Flags().String("timeout", contract.DefaultCollectorTimeout.String(), "Time budget for each collector")
	collectCmd.Flags().String("bench", contract.DefaultBenchPattern, "Benchmark name pattern passed to go test -bench")
	if err := viper.BindPFlags(collectCmd.Flags()); err != nil {
		contract.LogFatal("Error binding collect flags", err)
	}

	// Bind all flags of checkCmd to Viper
	checkCmd.Flags().Int("max-regressions", 0, "Number of regressions tolerated before the check fails")
	if err := viper.BindPFlags(checkCmd.Flags()); err != nil {
		contract.LogFatal("Error binding check flags", err)
	}

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 = latest, 0 = rollback all)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding migrate flags", err)
	}
}
