package iostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"go.uber.org/zap"
)

// recordExt is the file extension of a stored record.
const recordExt = ".json"

// FileStore persists each record as its own JSON file under a directory per project:
//
//	<root>/<escaped project>/<escaped id>.json
//
// Directory listing is the only index.
type FileStore struct {
	mu     sync.RWMutex
	root   string
	logger *zap.Logger
}

var _ contract.MetricStore = &FileStore{} // Compile-time check

// NewFileStore creates a file store rooted at dir. The root is created lazily.
func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if root == "" {
		return nil, schema.NewConnectionFailed("file store root cannot be empty", nil)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, schema.NewConnectionFailed("resolve file store root", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{root: abs, logger: logger.With(zap.String("store", "file"))}, nil
}

// Root returns the absolute root directory.
func (s *FileStore) Root() string {
	return s.root
}

// escapeName turns a project name or ID into a single safe path element.
func escapeName(name string) string {
	escaped := url.PathEscape(name)
	// PathEscape leaves dots alone, which would allow "." and ".."
	if strings.Trim(escaped, ".") == "" {
		escaped = strings.ReplaceAll(escaped, ".", "%2E")
	}
	return escaped
}

func (s *FileStore) projectDir(project string) string {
	return filepath.Join(s.root, escapeName(project))
}

// StoreMetrics implements the MetricStore interface.
func (s *FileStore) StoreMetrics(_ context.Context, records []schema.MetricRecord) error {
	if err := validateBatch(records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		path := filepath.Join(s.projectDir(r.ProjectName), escapeName(r.ID)+recordExt)
		if _, err := os.Stat(path); err == nil {
			return schema.NewInvalidData(fmt.Sprintf("record %s already stored", r.ID))
		}
	}
	// A batch lands whole or not at all
	written := make([]string, 0, len(records))
	for _, r := range records {
		path, err := s.writeRecord(r)
		if err != nil {
			for _, p := range written {
				if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
					s.logger.Warn("failed to roll back record", zap.String("path", p), zap.Error(rmErr))
				}
			}
			return err
		}
		written = append(written, path)
	}
	return nil
}

// writeRecord writes one record atomically and returns its path. Callers hold the write lock.
func (s *FileStore) writeRecord(r schema.MetricRecord) (string, error) {
	dir := s.projectDir(r.ProjectName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", schema.NewStorageFailure(fmt.Sprintf("create project directory %s", dir), err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return "", schema.NewInvalidData(fmt.Sprintf("encode record %s: %v", r.ID, err))
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", schema.NewStorageFailure("create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", schema.NewStorageFailure(fmt.Sprintf("write record %s", r.ID), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", schema.NewStorageFailure(fmt.Sprintf("close record %s", r.ID), err)
	}

	final := filepath.Join(dir, escapeName(r.ID)+recordExt)
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return "", schema.NewStorageFailure(fmt.Sprintf("commit record %s", r.ID), err)
	}
	return final, nil
}

// storedRecord pairs a decoded record with the file it came from.
type storedRecord struct {
	path   string
	record schema.MetricRecord
}

// scanDir decodes every record file in one project directory.
// Files that fail to decode are skipped with a warning. Callers hold a lock.
func (s *FileStore) scanDir(dir string) ([]storedRecord, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, schema.NewStorageFailure(fmt.Sprintf("list %s", dir), err)
	}

	out := make([]storedRecord, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable record", zap.String("path", path), zap.Error(err))
			continue
		}
		var r schema.MetricRecord
		if err := json.Unmarshal(data, &r); err != nil {
			s.logger.Warn("skipping corrupt record", zap.String("path", path), zap.Error(err))
			continue
		}
		if err := r.Validate(); err != nil {
			s.logger.Warn("skipping invalid record", zap.String("path", path), zap.Error(err))
			continue
		}
		out = append(out, storedRecord{path: path, record: r})
	}
	return out, nil
}

// scanProject returns the project's records that match keep.
func (s *FileStore) scanProject(project string, keep func(schema.MetricRecord) bool) ([]schema.MetricRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, err := s.scanDir(s.projectDir(project))
	if err != nil {
		return nil, err
	}
	var out []schema.MetricRecord
	for _, sr := range stored {
		// A file copied into the wrong directory must not leak into another project
		if sr.record.ProjectName != project {
			continue
		}
		if keep(sr.record) {
			out = append(out, sr.record)
		}
	}
	return out, nil
}

// RetrieveMetrics implements the MetricStore interface.
func (s *FileStore) RetrieveMetrics(_ context.Context, project string, tr schema.TimeRange) ([]schema.MetricRecord, error) {
	out, err := s.scanProject(project, func(r schema.MetricRecord) bool { return tr.Contains(r.Timestamp) })
	if err != nil {
		return nil, err
	}
	sortRecords(out)
	return out, nil
}

// RetrieveMetricsForCommit implements the MetricStore interface.
func (s *FileStore) RetrieveMetricsForCommit(_ context.Context, commitHash, project string) ([]schema.MetricRecord, error) {
	out, err := s.scanProject(project, func(r schema.MetricRecord) bool { return r.CommitHash == commitHash })
	if err != nil {
		return nil, err
	}
	sortRecords(out)
	return out, nil
}

// RetrieveMetricsByType implements the MetricStore interface.
func (s *FileStore) RetrieveMetricsByType(_ context.Context, metricType schema.MetricType, project string, tr schema.TimeRange) ([]schema.MetricRecord, error) {
	out, err := s.scanProject(project, func(r schema.MetricRecord) bool {
		return r.Type == metricType && tr.Contains(r.Timestamp)
	})
	if err != nil {
		return nil, err
	}
	sortRecords(out)
	return out, nil
}

// RetrieveLatestMetrics implements the MetricStore interface.
func (s *FileStore) RetrieveLatestMetrics(_ context.Context, project string, limit int) ([]schema.MetricRecord, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	out, err := s.scanProject(project, func(schema.MetricRecord) bool { return true })
	if err != nil {
		return nil, err
	}
	return latest(out, limit), nil
}

// projectDirs lists every project directory under the root. Callers hold a lock.
func (s *FileStore) projectDirs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, schema.NewStorageFailure(fmt.Sprintf("list %s", s.root), err)
	}
	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(s.root, entry.Name()))
		}
	}
	return dirs, nil
}

// DeleteMetrics implements the MetricStore interface.
// Records that cannot be decoded are left in place.
func (s *FileStore) DeleteMetrics(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirs, err := s.projectDirs()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, dir := range dirs {
		stored, err := s.scanDir(dir)
		if err != nil {
			return removed, err
		}
		for _, sr := range stored {
			if !sr.record.Timestamp.Before(olderThan) {
				continue
			}
			if err := os.Remove(sr.path); err != nil {
				return removed, schema.NewStorageFailure(fmt.Sprintf("delete %s", sr.path), err)
			}
			removed++
		}
	}
	return removed, nil
}

// Status implements the MetricStore interface.
func (s *FileStore) Status(_ context.Context) (schema.StoreStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := schema.StoreStatus{Backend: string(schema.FileBackend), Location: s.root, Connected: true}
	dirs, err := s.projectDirs()
	if err != nil {
		status.Connected = false
		return status, err
	}

	projects := make(map[string]struct{})
	var timestamps []time.Time
	for _, dir := range dirs {
		stored, err := s.scanDir(dir)
		if err != nil {
			return status, err
		}
		for _, sr := range stored {
			projects[sr.record.ProjectName] = struct{}{}
			timestamps = append(timestamps, sr.record.Timestamp)
		}
	}
	statusFromRecords(&status, projects, timestamps)
	return status, nil
}

// Close implements the MetricStore interface.
func (s *FileStore) Close() error {
	return nil
}
