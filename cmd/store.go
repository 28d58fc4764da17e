package cmd

import (
	"fmt"
	"strings"

	"github.com/huangsam/perfwatch/core"
	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/internal/iostore"
	"github.com/huangsam/perfwatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeConfigSetup loads only the storage and logging settings.
// This is used by commands that manage the store without a project to measure.
func storeConfigSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	storage, err := contract.ResolveStorageConfig(input)
	if err != nil {
		return err
	}
	cfg.Storage = storage
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(input.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = contract.DefaultLogLevel
	}
	return nil
}

// storeSetupWrapper loads storage settings and opens the store.
func storeSetupWrapper(_ *cobra.Command, _ []string) error {
	if err := storeConfigSetup(); err != nil {
		return err
	}
	return initEnv(cfg.Storage, cfg.LogLevel)
}

// storeConfigSetupWrapper loads storage settings without opening the store.
// Clearing and migrating must work on stores that cannot be opened as they are.
func storeConfigSetupWrapper(_ *cobra.Command, _ []string) error {
	return storeConfigSetup()
}

// storeCmd focused on metric store management.
//
// Note: Store subcommands use minimal initialization (storeConfigSetup) instead of
// the full sharedSetup used by measurement commands. This avoids project validation
// for simple store operations.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the metric store",
	Long: `Manage the store that holds every collected measurement.

Supported backends: file (default), SQLite, MySQL, PostgreSQL, or memory (nothing persists)

Subcommands:
  status  - Show record counts and connection info
  clear   - Remove all stored records
  export  - Export a project's records to Parquet
  migrate - Run database schema migrations
  prune   - Delete records older than --retention-days

Examples:
  # Check store status
  perfwatch store status

  # Use PostgreSQL (set connection string via env variable)
  PERFWATCH_STORAGE_TYPE=postgresql PERFWATCH_STORAGE_DB_CONNECT="host=... dbname=..." perfwatch store status`,
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display store statistics and connection details",
	Long: `Show the backend, its location, whether it is reachable, how many records and
projects it holds, and the oldest and newest record timestamps.

Examples:
  perfwatch store status
  perfwatch store status --storage-type sqlite`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := env.Store.Status(rootCtx)
		if err != nil {
			fatal("Failed to get store status", err)
		}
		iostore.PrintStoreStatus(status)
	},
}

// storeClearCmd clears the store.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored metric records",
	Long: `Delete every stored record from the configured backend.

WARNING: This action cannot be undone. Consider exporting data first.

For file: Removes the store directory
For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the records and migrations tables

Examples:
  # Export before clearing
  perfwatch store export --output-file backup.parquet
  perfwatch store clear`,
	PreRunE: storeConfigSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.ClearStore(cfg.Storage.Backend, cfg.Storage.Path, cfg.Storage.DBConnect); err != nil {
			contract.LogFatal("Failed to clear store", err)
		}
		fmt.Println("Store cleared successfully.")
	},
}

// storeExportCmd exports a project's records to a Parquet file.
var storeExportCmd = &cobra.Command{
	Use:   "export [project-path]",
	Short: "Export stored records to Parquet for BI tools and analytics",
	Long: `Export the project's records inside the time window to a Parquet file.

Parquet format enables:
- Fast querying with DuckDB, Apache Spark, pandas
- Efficient storage with columnar compression

Requires: --output-file parameter

Examples:
  # Export the last 90 days
  perfwatch store export --lookback "90 days" --output-file metrics.parquet

  # Query with DuckDB
  duckdb -c "SELECT metric_type, avg(value) FROM read_parquet('metrics.parquet') GROUP BY 1"`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		n, err := iostore.ExportParquet(rootCtx, env.Store, cfg.ProjectName, cfg.TimeRange(), cfg.OutputFile)
		if err != nil {
			fatal("Failed to export records", err)
		}
		fmt.Printf("Exported %d records for %s to %s\n", n, cfg.ProjectName, cfg.OutputFile)
	},
}

// storeMigrateCmd runs database migrations for the metric store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the SQL metric stores.

Stores migrate to the latest version automatically when opened. Use this to
inspect, roll back, or repair a dirty schema with --target-version.

Examples:
  # Migrate to latest version (default)
  perfwatch store migrate --storage-type sqlite

  # Rollback everything
  perfwatch store migrate --storage-type sqlite --target-version 0`,
	PreRunE: storeConfigSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		connStr := cfg.Storage.DBConnect
		if cfg.Storage.Backend == schema.SQLiteBackend {
			connStr = cfg.Storage.Path
		}
		targetVersion := viper.GetInt("target-version")
		if err := iostore.MigrateStore(cfg.Storage.Backend, connStr, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}

// storePruneCmd applies the retention policy on demand.
var storePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records older than --retention-days",
	Long: `Delete every record, across all projects, older than --retention-days.

Examples:
  perfwatch store prune --retention-days 90`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePrune(rootCtx, cfg, env); err != nil {
			fatal("Failed to prune store", err)
		}
	},
}
