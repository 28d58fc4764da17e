package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/perfwatch/schema"
)

// Color variables for console output.
var (
	RegressionColor  = color.New(color.FgRed, color.Bold) // RegressionColor marks a metric that got worse.
	ImprovementColor = color.New(color.FgGreen)           // ImprovementColor marks a metric that got better.
	UnchangedColor   = color.New(color.FgCyan)            // UnchangedColor marks a metric inside the noise band.
)

// GetPlainLabel returns a plain text label for a comparison status.
func GetPlainLabel(status schema.ComparisonStatus) string {
	switch status {
	case schema.Regression:
		return "Regression"
	case schema.Improvement:
		return "Improvement"
	default:
		return "Unchanged"
	}
}

// GetColorLabel returns a colored label for table output.
func GetColorLabel(status schema.ComparisonStatus) string {
	text := GetPlainLabel(status)
	switch status {
	case schema.Regression:
		return RegressionColor.Sprint(text)
	case schema.Improvement:
		return ImprovementColor.Sprint(text)
	default:
		return UnchangedColor.Sprint(text)
	}
}

// SelectOutputFile returns the file handle for output. An empty path means stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetDataDir returns the default root directory of the file store.
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".perfwatch"
	}
	return filepath.Join(homeDir, ".perfwatch")
}

// GetDBFilePath returns the default path to the SQLite database file.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".perfwatch_metrics.db"
	}
	return filepath.Join(homeDir, ".perfwatch_metrics.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ShortHash shortens a commit hash for display.
func ShortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
