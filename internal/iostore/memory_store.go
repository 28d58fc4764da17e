package iostore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
)

// MemoryStore keeps records in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string][]schema.MetricRecord
	ids      map[string]struct{}
}

var _ contract.MetricStore = &MemoryStore{} // Compile-time check

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[string][]schema.MetricRecord),
		ids:      make(map[string]struct{}),
	}
}

// StoreMetrics implements the MetricStore interface.
func (s *MemoryStore) StoreMetrics(_ context.Context, records []schema.MetricRecord) error {
	if err := validateBatch(records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if _, exists := s.ids[r.ID]; exists {
			return schema.NewInvalidData(fmt.Sprintf("record %s already stored", r.ID))
		}
	}
	for _, r := range records {
		s.projects[r.ProjectName] = append(s.projects[r.ProjectName], cloneRecord(r))
		s.ids[r.ID] = struct{}{}
	}
	return nil
}

// filter returns copies of the project's records that match keep.
func (s *MemoryStore) filter(project string, keep func(schema.MetricRecord) bool) []schema.MetricRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []schema.MetricRecord
	for _, r := range s.projects[project] {
		if keep(r) {
			out = append(out, cloneRecord(r))
		}
	}
	return out
}

// RetrieveMetrics implements the MetricStore interface.
func (s *MemoryStore) RetrieveMetrics(_ context.Context, project string, tr schema.TimeRange) ([]schema.MetricRecord, error) {
	out := s.filter(project, func(r schema.MetricRecord) bool { return tr.Contains(r.Timestamp) })
	sortRecords(out)
	return out, nil
}

// RetrieveMetricsForCommit implements the MetricStore interface.
func (s *MemoryStore) RetrieveMetricsForCommit(_ context.Context, commitHash, project string) ([]schema.MetricRecord, error) {
	out := s.filter(project, func(r schema.MetricRecord) bool { return r.CommitHash == commitHash })
	sortRecords(out)
	return out, nil
}

// RetrieveMetricsByType implements the MetricStore interface.
func (s *MemoryStore) RetrieveMetricsByType(_ context.Context, metricType schema.MetricType, project string, tr schema.TimeRange) ([]schema.MetricRecord, error) {
	out := s.filter(project, func(r schema.MetricRecord) bool {
		return r.Type == metricType && tr.Contains(r.Timestamp)
	})
	sortRecords(out)
	return out, nil
}

// RetrieveLatestMetrics implements the MetricStore interface.
func (s *MemoryStore) RetrieveLatestMetrics(_ context.Context, project string, limit int) ([]schema.MetricRecord, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	out := s.filter(project, func(schema.MetricRecord) bool { return true })
	return latest(out, limit), nil
}

// DeleteMetrics implements the MetricStore interface.
func (s *MemoryStore) DeleteMetrics(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for project, records := range s.projects {
		kept := records[:0]
		for _, r := range records {
			if r.Timestamp.Before(olderThan) {
				delete(s.ids, r.ID)
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(s.projects, project)
		} else {
			s.projects[project] = kept
		}
	}
	return removed, nil
}

// Status implements the MetricStore interface.
func (s *MemoryStore) Status(_ context.Context) (schema.StoreStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := schema.StoreStatus{Backend: string(schema.MemoryBackend), Connected: true}
	projects := make(map[string]struct{}, len(s.projects))
	var timestamps []time.Time
	for project, records := range s.projects {
		projects[project] = struct{}{}
		for _, r := range records {
			timestamps = append(timestamps, r.Timestamp)
		}
	}
	statusFromRecords(&status, projects, timestamps)
	return status, nil
}

// Close implements the MetricStore interface.
func (s *MemoryStore) Close() error {
	return nil
}
