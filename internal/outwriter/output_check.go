package outwriter

import (
	"fmt"
	"io"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
)

// maxRegressionsShown bounds the regressions listed in text output.
const maxRegressionsShown = 5

// PrintCheckResult outputs a check result to stdout or the configured output file.
func PrintCheckResult(result *schema.CheckResult, cfg *contract.Config, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteCheckResult(w, result, cfg, duration)
	}, "Wrote check result")
}

// WriteCheckResult writes a check result in a concise format suitable for CI/CD.
func WriteCheckResult(w io.Writer, result *schema.CheckResult, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.JSONOut {
		return writeJSON(w, result)
	}

	if _, err := fmt.Fprintln(w, "Regression Check Results:"); err != nil {
		return err
	}
	labels := []string{"Project:", "Baseline:", "Allowed:"}
	values := []any{result.ProjectName, contract.ShortHash(result.BaselineID), result.MaxRegressions}
	if err := printLabeledValues(w, labels, values); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\nChecked %d metrics in %v\n\n", result.MetricCount, duration.Round(time.Millisecond)); err != nil {
		return err
	}

	if result.Passed {
		_, err := fmt.Fprintf(w, "✅ Check passed: %d regressions, %d improvements, %d unchanged\n",
			len(result.Regressions), result.Improvements, result.Unchanged)
		return err
	}

	if _, err := fmt.Fprintf(w, "❌ Check failed: %d regressions exceed the allowed %d\n\n", len(result.Regressions), result.MaxRegressions); err != nil {
		return err
	}
	for i, e := range result.Regressions {
		if i == maxRegressionsShown {
			if _, err := fmt.Fprintf(w, "  ... and %d more\n", len(result.Regressions)-i); err != nil {
				return err
			}
			break
		}
		colorize := statusColorizer(e.Status, cfg.UseColors)
		if _, err := fmt.Fprintf(w, "  - %s: %s -> %s (%s)\n",
			e.MetricID,
			formatValue(e.BaselineValue, e.Unit, cfg.Precision),
			formatValue(e.CurrentValue, e.Unit, cfg.Precision),
			colorize(formatPercentChange(e.PercentChange, cfg.Precision))); err != nil {
			return err
		}
	}
	return nil
}
