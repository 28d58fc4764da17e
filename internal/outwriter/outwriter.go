// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteRecords prints metric records using the configured output format.
func (ow *OutWriter) WriteRecords(records []schema.MetricRecord, cfg *contract.Config, duration time.Duration) error {
	return PrintRecords(records, cfg, duration)
}

// WriteRound prints the outcome of an aggregation round using the configured output format.
func (ow *OutWriter) WriteRound(round *schema.CollectionRound, cfg *contract.Config) error {
	return PrintCollectionRound(round, cfg)
}

// WriteReport prints a report using the configured output format.
func (ow *OutWriter) WriteReport(report *schema.Report, cfg *contract.Config, duration time.Duration) error {
	return PrintReport(report, cfg, duration)
}

// WriteCheck prints a check result using the configured output format.
func (ow *OutWriter) WriteCheck(result *schema.CheckResult, cfg *contract.Config, duration time.Duration) error {
	return PrintCheckResult(result, cfg, duration)
}

// WriteCollectors prints the known collectors using the configured output format.
func (ow *OutWriter) WriteCollectors(infos []schema.CollectorInfo, cfg *contract.Config) error {
	return PrintCollectors(infos, cfg)
}
