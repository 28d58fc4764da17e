package contract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/perfwatch/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit      = 25
	MaxResultLimit          = 1000
	DefaultPrecision        = 2
	DefaultCollectorTimeout = 5 * time.Minute
	DefaultLookback         = "30 days"
	DefaultBenchPattern     = "."
	DefaultLogLevel         = "warn"
)

// DefaultCollectors lists the collectors enabled when none are configured.
var DefaultCollectors = []string{"build", "tests"}

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// StorageConfig holds the validated storage settings.
type StorageConfig struct {
	Backend       schema.StorageBackend
	Path          string // file store root or sqlite file
	DBConnect     string // Please use env var as this is plaintext
	RetentionDays int    // 0 disables the retention sweep
}

// CommandSpec describes an extra command timed by a command collector.
type CommandSpec struct {
	Name string
	Args []string
}

// Config holds the runtime configuration.
// This struct is the "final, validated" config.
type Config struct {
	ProjectPath       string
	ProjectName       string
	EnabledCollectors []string
	Storage           StorageConfig
	BaselineCommit    string
	CollectorTimeout  time.Duration
	BenchPattern      string
	Commands          []CommandSpec

	StartTime time.Time
	EndTime   time.Time

	ResultLimit    int
	MaxRegressions int
	Precision      int
	Output         schema.OutputMode
	OutputFile     string
	Width          int // Terminal width override (0 = auto-detect)
	UseColors      bool
	LogLevel       string
}

// CommandRawInput holds one command entry from the YAML config file.
type CommandRawInput struct {
	Name string   `mapstructure:"name"`
	Run  []string `mapstructure:"run"`
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	ProjectPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Project          string   `mapstructure:"project"`
	Collectors       []string `mapstructure:"collectors"`
	StorageType      string   `mapstructure:"storage-type"`
	StoragePath      string   `mapstructure:"storage-path"`
	StorageDBConnect string   `mapstructure:"storage-db-connect"`
	RetentionDays    int      `mapstructure:"retention-days"`
	Baseline         string   `mapstructure:"baseline"`
	Start            string   `mapstructure:"start"`
	End              string   `mapstructure:"end"`
	Lookback         string   `mapstructure:"lookback"`
	Limit            int      `mapstructure:"limit"`
	Precision        int      `mapstructure:"precision"`
	Output           string   `mapstructure:"output"`
	OutputFile       string   `mapstructure:"output-file"`
	Width            int      `mapstructure:"width"`
	Color            string   `mapstructure:"color"`
	LogLevel         string   `mapstructure:"log-level"`

	// --- Fields from collectCmd.Flags() ---
	Timeout string `mapstructure:"timeout"`
	Bench   string `mapstructure:"bench"`

	// --- Fields from checkCmd.Flags() ---
	MaxRegressions int `mapstructure:"max-regressions"`

	// --- Extra commands from config file ---
	Commands []CommandRawInput `mapstructure:"commands"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.EnabledCollectors = slices.Clone(c.EnabledCollectors)
	if c.Commands != nil {
		clone.Commands = make([]CommandSpec, len(c.Commands))
		for i, cmd := range c.Commands {
			clone.Commands[i] = CommandSpec{Name: cmd.Name, Args: slices.Clone(cmd.Args)}
		}
	}
	return &clone
}

// CloneWithTimeWindow creates a copy of the Config and sets the new StartTime and EndTime.
func (c *Config) CloneWithTimeWindow(start time.Time, end time.Time) *Config {
	clone := c.Clone()
	clone.StartTime = start
	clone.EndTime = end
	return clone
}

// TimeRange returns the configured report window.
func (c *Config) TimeRange() schema.TimeRange {
	return schema.TimeRange{Start: c.StartTime, End: c.EndTime}
}

// IsCollectorEnabled reports whether the collector ID is enabled.
func (c *Config) IsCollectorEnabled(id string) bool {
	return slices.Contains(c.EnabledCollectors, id)
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateStorageConfig(cfg, input); err != nil {
		return err
	}
	if err := processCollectors(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input, time.Now()); err != nil {
		return err
	}
	if err := resolveProject(ctx, cfg, client, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.StorageBackend, connStr string) error {
	switch backend {
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("storage-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("storage-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ValidateStorageBackend parses a backend name.
func ValidateStorageBackend(s string) (schema.StorageBackend, error) {
	backend := schema.StorageBackend(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schema.ValidStorageBackends[backend]; !ok {
		return "", fmt.Errorf("invalid storage type '%s'. must be memory, file, sqlite, mysql, postgresql", s)
	}
	return backend, nil
}

// validateStorageConfig validates the storage backend, location and retention.
func validateStorageConfig(cfg *Config, input *ConfigRawInput) error {
	storage, err := ResolveStorageConfig(input)
	if err != nil {
		return err
	}
	cfg.Storage = storage
	return nil
}

// ResolveStorageConfig validates the raw storage inputs and fills in default locations.
// Store maintenance commands use it without the full project validation.
func ResolveStorageConfig(input *ConfigRawInput) (StorageConfig, error) {
	backend, err := ValidateStorageBackend(input.StorageType)
	if err != nil {
		return StorageConfig{}, err
	}
	if input.RetentionDays < 0 {
		return StorageConfig{}, fmt.Errorf("retention-days cannot be negative (received %d)", input.RetentionDays)
	}

	storage := StorageConfig{
		Backend:       backend,
		Path:          input.StoragePath,
		DBConnect:     input.StorageDBConnect,
		RetentionDays: input.RetentionDays,
	}
	switch backend {
	case schema.FileBackend:
		if storage.Path == "" {
			storage.Path = GetDataDir()
		}
	case schema.SQLiteBackend:
		if storage.Path == "" {
			storage.Path = storage.DBConnect
		}
		if storage.Path == "" {
			storage.Path = GetDBFilePath()
		}
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		if err := ValidateDatabaseConnectionString(backend, storage.DBConnect); err != nil {
			return StorageConfig{}, err
		}
	}
	return storage, nil
}

// validateSimpleInputs processes and validates all output and limit fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Precision < 0 || input.Precision > 6 {
		return fmt.Errorf("precision must be between 0 and 6 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}

	if input.MaxRegressions < 0 {
		return fmt.Errorf("max-regressions cannot be negative (received %d)", input.MaxRegressions)
	}
	cfg.MaxRegressions = input.MaxRegressions

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(input.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return nil
}

// processCollectors resolves the enabled collector set, timeout and extra commands.
func processCollectors(cfg *Config, input *ConfigRawInput) error {
	var enabled []string
	for _, entry := range input.Collectors {
		// Flags and env vars may arrive as one comma-separated value
		for _, id := range SplitList(entry) {
			if !slices.Contains(enabled, id) {
				enabled = append(enabled, id)
			}
		}
	}
	if len(enabled) == 0 {
		enabled = slices.Clone(DefaultCollectors)
	}
	cfg.EnabledCollectors = enabled

	cfg.CollectorTimeout = DefaultCollectorTimeout
	if input.Timeout != "" {
		timeout, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout value: %w", err)
		}
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive (received %s)", input.Timeout)
		}
		cfg.CollectorTimeout = timeout
	}

	cfg.BenchPattern = input.Bench
	if cfg.BenchPattern == "" {
		cfg.BenchPattern = DefaultBenchPattern
	}

	cfg.Commands = nil
	seen := make(map[string]struct{})
	for _, raw := range input.Commands {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			return fmt.Errorf("every configured command needs a name")
		}
		if len(raw.Run) == 0 {
			return fmt.Errorf("command %q has nothing to run", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("command %q is configured twice", name)
		}
		seen[name] = struct{}{}
		cfg.Commands = append(cfg.Commands, CommandSpec{Name: name, Args: slices.Clone(raw.Run)})
	}
	return nil
}

// processTimeRange handles the date parsing and time range validation.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	lookback := input.Lookback
	if lookback == "" {
		lookback = DefaultLookback
	}
	window, err := ParseLookbackDuration(lookback)
	if err != nil {
		return fmt.Errorf("invalid --lookback value: %w", err)
	}

	cfg.EndTime = now
	if input.End != "" {
		t, err := ParseTimeInput(input.End, now)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		cfg.EndTime = t
	}

	cfg.StartTime = cfg.EndTime.Add(-window)
	if input.Start != "" {
		t, err := ParseTimeInput(input.Start, now)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
		cfg.StartTime = t
	}

	if cfg.StartTime.After(cfg.EndTime) {
		return fmt.Errorf("start time (%s) cannot be after end time (%s)", cfg.StartTime.Format(DateTimeFormat), cfg.EndTime.Format(DateTimeFormat))
	}
	return nil
}

// resolveProject resolves the project directory, its name and the baseline commit.
func resolveProject(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	searchPath := input.ProjectPathStr
	if searchPath == "" {
		searchPath = "."
	}
	absPath, err := filepath.Abs(searchPath)
	if err != nil {
		return err
	}
	absPath = filepath.Clean(absPath)

	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("project path %q: %w", searchPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project path %q is not a directory", searchPath)
	}
	cfg.ProjectPath = absPath

	cfg.ProjectName = strings.TrimSpace(input.Project)
	if cfg.ProjectName == "" {
		name := filepath.Base(absPath)
		if root, err := client.GetRepoRoot(ctx, absPath); err == nil && root != "" {
			name = filepath.Base(root)
		}
		cfg.ProjectName = name
	}

	cfg.BaselineCommit = ResolveCommit(ctx, client, absPath, input.Baseline)
	return nil
}

// ResolveCommit turns a ref or short hash into the full hash records carry.
// Anything git cannot resolve is returned trimmed but otherwise unchanged.
func ResolveCommit(ctx context.Context, client GitClient, repoPath, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || client == nil {
		return ref
	}
	out, err := client.Run(ctx, repoPath, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return ref
	}
	if hash := strings.TrimSpace(string(out)); hash != "" {
		return hash
	}
	return ref
}
