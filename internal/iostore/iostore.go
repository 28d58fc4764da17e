// Package iostore is for persisting and querying metric records.
package iostore

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"go.uber.org/zap"
)

// NewStore creates the metric store selected by the storage configuration.
func NewStore(cfg contract.StorageConfig, logger *zap.Logger) (contract.MetricStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case schema.MemoryBackend:
		return NewMemoryStore(), nil
	case schema.FileBackend:
		root := cfg.Path
		if root == "" {
			root = contract.GetDataDir()
		}
		return NewFileStore(root, logger)
	case schema.SQLiteBackend:
		return NewSQLStore(cfg.Backend, cfg.Path, logger)
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return NewSQLStore(cfg.Backend, cfg.DBConnect, logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// sortRecords orders records by timestamp, then ID, so equal data reads back identically.
func sortRecords(records []schema.MetricRecord) {
	slices.SortFunc(records, func(a, b schema.MetricRecord) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// latest returns up to limit records, newest first.
func latest(records []schema.MetricRecord, limit int) []schema.MetricRecord {
	sortRecords(records)
	slices.Reverse(records)
	if limit >= 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

// cloneRecord copies the metadata map so callers never share it with the store.
func cloneRecord(r schema.MetricRecord) schema.MetricRecord {
	if r.Metadata != nil {
		r.Metadata = maps.Clone(r.Metadata)
	}
	return r
}

// validateBatch checks every record and rejects IDs repeated inside the batch.
func validateBatch(records []schema.MetricRecord) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.ID]; dup {
			return schema.NewInvalidData(fmt.Sprintf("duplicate record id %s in batch", r.ID))
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// validateLimit rejects negative limits.
func validateLimit(limit int) error {
	if limit < 0 {
		return schema.NewInvalidData(fmt.Sprintf("limit cannot be negative (received %d)", limit))
	}
	return nil
}

// statusFromRecords summarizes records for stores without server-side aggregation.
func statusFromRecords(status *schema.StoreStatus, projects map[string]struct{}, timestamps []time.Time) {
	status.TotalRecords = len(timestamps)
	status.ProjectCount = len(projects)
	for _, ts := range timestamps {
		if status.OldestRecord.IsZero() || ts.Before(status.OldestRecord) {
			status.OldestRecord = ts
		}
		if ts.After(status.NewestRecord) {
			status.NewestRecord = ts
		}
	}
}
