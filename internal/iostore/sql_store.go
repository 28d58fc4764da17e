package iostore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the sqlite database/sql driver
)

// metricRecordsTable holds one row per metric record.
const metricRecordsTable = "perfwatch_metric_records"

// recordColumns is the column list shared by inserts and selects.
const recordColumns = "id, project_name, source, metric_type, value, unit, recorded_at, " +
	"metadata, file_path, function_name, line_number, commit_hash, branch_name"

// SQLStore keeps records in a SQLite, MySQL or PostgreSQL database.
type SQLStore struct {
	mu       sync.RWMutex
	db       *sql.DB
	backend  schema.StorageBackend
	location string
	table    string
	logger   *zap.Logger
}

var _ contract.MetricStore = &SQLStore{} // Compile-time check

// driverName returns the database/sql driver registered for a backend.
func driverName(backend schema.StorageBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s", backend)
	}
}

// openDB opens a database handle without verifying the connection.
func openDB(backend schema.StorageBackend, connStr string) (*sql.DB, error) {
	name, err := driverName(backend)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, connStr)
	if err != nil {
		return nil, schema.NewConnectionFailed(fmt.Sprintf("failed to open %s database", backend), err)
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// NewSQLStore connects to the database, applies pending migrations and returns the store.
// An empty SQLite path selects the default database file.
func NewSQLStore(backend schema.StorageBackend, connStr string, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backend == schema.SQLiteBackend {
		if connStr == "" {
			connStr = contract.GetDBFilePath()
		}
		if err := ensureSQLiteDir(connStr); err != nil {
			return nil, err
		}
	} else if connStr == "" {
		return nil, schema.NewConnectionFailed(fmt.Sprintf("%s backend requires a connection string", backend), nil)
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "check that MySQL is running and the connection string is correct"
		case schema.PostgreSQLBackend:
			connDetail = "check that PostgreSQL is running and the connection string is correct"
		default:
			connDetail = "check that the database file is writable"
		}
		return nil, schema.NewConnectionFailed(fmt.Sprintf("failed to connect to %s database, %s", backend, connDetail), err)
	}

	if err := applyMigrations(db, backend, connStr); err != nil {
		_ = db.Close()
		return nil, schema.NewStorageFailure("failed to prepare schema", err)
	}

	store := &SQLStore{
		db:       db,
		backend:  backend,
		location: redactLocation(backend, connStr),
		table:    quoteTableName(metricRecordsTable, backend),
		logger:   logger,
	}
	logger.Debug("opened sql metric store", zap.String("backend", string(backend)), zap.String("location", store.location))
	return store, nil
}

// applyMigrations upgrades the schema. SQLite migrates on the store's own handle
// so in-memory databases see the tables; the others use a throwaway handle because
// their migrate drivers close the database they were given.
func applyMigrations(db *sql.DB, backend schema.StorageBackend, connStr string) error {
	if backend == schema.SQLiteBackend {
		m, err := newMigrator(db, backend)
		if err != nil {
			return err
		}
		return migrateUp(m)
	}

	migrationDB, err := openDB(backend, connStr)
	if err != nil {
		return err
	}
	m, err := newMigrator(migrationDB, backend)
	if err != nil {
		_ = migrationDB.Close()
		return err
	}
	defer func() { _, _ = m.Close() }()
	return migrateUp(m)
}

// ensureSQLiteDir creates the parent directory of a SQLite database file.
func ensureSQLiteDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return schema.NewConnectionFailed(fmt.Sprintf("failed to create directory for %s", path), err)
	}
	return nil
}

// redactLocation describes where the store lives without leaking credentials.
func redactLocation(backend schema.StorageBackend, connStr string) string {
	switch backend {
	case schema.MySQLBackend:
		cfg, err := gomysql.ParseDSN(connStr)
		if err != nil {
			return "mysql"
		}
		return fmt.Sprintf("%s@%s(%s)/%s", cfg.User, cfg.Net, cfg.Addr, cfg.DBName)
	case schema.PostgreSQLBackend:
		cfg, err := pgx.ParseConfig(connStr)
		if err != nil {
			return "postgresql"
		}
		return fmt.Sprintf("%s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.Database)
	default:
		return connStr
	}
}

// quoteTableName quotes a table name for the backend's dialect.
func quoteTableName(name string, backend schema.StorageBackend) string {
	if backend == schema.MySQLBackend {
		return fmt.Sprintf("`%s`", name)
	}
	return fmt.Sprintf("%q", name)
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func rebind(backend schema.StorageBackend, query string) string {
	if backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

var (
	minNanosTime = time.Unix(0, math.MinInt64)
	maxNanosTime = time.Unix(0, math.MaxInt64)
)

// toNanos converts a time into the stored integer form, clamped to the int64 range.
func toNanos(t time.Time) int64 {
	switch {
	case t.Before(minNanosTime):
		return math.MinInt64
	case t.After(maxNanosTime):
		return math.MaxInt64
	default:
		return t.UnixNano()
	}
}

// nullString maps the empty string to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// StoreMetrics implements the MetricStore interface. The batch is inserted in one transaction.
func (s *SQLStore) StoreMetrics(ctx context.Context, records []schema.MetricRecord) error {
	if err := validateBatch(records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.NewStorageFailure("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := rebind(s.backend, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, recordColumns))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return schema.NewStorageFailure("failed to prepare insert", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		var metadata sql.NullString
		if len(r.Metadata) > 0 {
			raw, err := json.Marshal(r.Metadata)
			if err != nil {
				return schema.NewInvalidData(fmt.Sprintf("metric record %s has unencodable metadata: %v", r.ID, err))
			}
			metadata = sql.NullString{String: string(raw), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			r.ID, r.ProjectName, string(r.Source), string(r.Type), r.Value, r.Unit,
			toNanos(r.Timestamp), metadata, nullString(r.FilePath), nullString(r.FunctionName),
			sql.NullInt64{Int64: int64(r.LineNumber), Valid: r.LineNumber != 0},
			nullString(r.CommitHash), nullString(r.BranchName),
		)
		if err != nil {
			return schema.NewStorageFailure(fmt.Sprintf("failed to insert record %s", r.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return schema.NewStorageFailure("failed to commit records", err)
	}
	return nil
}

// query runs a select over the records table and decodes every usable row.
func (s *SQLStore) query(ctx context.Context, where string, args ...any) ([]schema.MetricRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := rebind(s.backend, fmt.Sprintf("SELECT %s FROM %s %s", recordColumns, s.table, where))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, schema.NewStorageFailure("failed to query records", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.MetricRecord
	for rows.Next() {
		var (
			r                                schema.MetricRecord
			source, metricType               string
			recordedAt                       int64
			metadata, filePath, functionName sql.NullString
			commitHash, branchName           sql.NullString
			lineNumber                       sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.ProjectName, &source, &metricType, &r.Value, &r.Unit,
			&recordedAt, &metadata, &filePath, &functionName, &lineNumber, &commitHash, &branchName); err != nil {
			return nil, schema.NewStorageFailure("failed to scan record", err)
		}
		r.Source = schema.MetricSource(source)
		r.Type = schema.MetricType(metricType)
		r.Timestamp = time.Unix(0, recordedAt).UTC()
		r.FilePath = filePath.String
		r.FunctionName = functionName.String
		r.LineNumber = int(lineNumber.Int64)
		r.CommitHash = commitHash.String
		r.BranchName = branchName.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
				s.logger.Warn("skipping record with corrupt metadata", zap.String("id", r.ID), zap.Error(err))
				continue
			}
		}
		if err := r.Validate(); err != nil {
			s.logger.Warn("skipping invalid record", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, schema.NewStorageFailure("failed to iterate records", err)
	}
	return out, nil
}

// RetrieveMetrics implements the MetricStore interface.
func (s *SQLStore) RetrieveMetrics(ctx context.Context, project string, tr schema.TimeRange) ([]schema.MetricRecord, error) {
	return s.query(ctx, "WHERE project_name = ? AND recorded_at >= ? AND recorded_at <= ? ORDER BY recorded_at, id",
		project, toNanos(tr.Start), toNanos(tr.End))
}

// RetrieveMetricsForCommit implements the MetricStore interface.
func (s *SQLStore) RetrieveMetricsForCommit(ctx context.Context, commitHash, project string) ([]schema.MetricRecord, error) {
	return s.query(ctx, "WHERE project_name = ? AND commit_hash = ? ORDER BY recorded_at, id", project, commitHash)
}

// RetrieveMetricsByType implements the MetricStore interface.
func (s *SQLStore) RetrieveMetricsByType(ctx context.Context, metricType schema.MetricType, project string, tr schema.TimeRange) ([]schema.MetricRecord, error) {
	return s.query(ctx, "WHERE project_name = ? AND metric_type = ? AND recorded_at >= ? AND recorded_at <= ? ORDER BY recorded_at, id",
		project, string(metricType), toNanos(tr.Start), toNanos(tr.End))
}

// RetrieveLatestMetrics implements the MetricStore interface.
func (s *SQLStore) RetrieveLatestMetrics(ctx context.Context, project string, limit int) ([]schema.MetricRecord, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	if limit == 0 {
		return nil, nil
	}
	// Corrupt rows are dropped during decoding, so the limit applies afterwards
	records, err := s.query(ctx, "WHERE project_name = ?", project)
	if err != nil {
		return nil, err
	}
	return latest(records, limit), nil
}

// DeleteMetrics implements the MetricStore interface.
func (s *SQLStore) DeleteMetrics(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := rebind(s.backend, fmt.Sprintf("DELETE FROM %s WHERE recorded_at < ?", s.table))
	res, err := s.db.ExecContext(ctx, q, toNanos(olderThan))
	if err != nil {
		return 0, schema.NewStorageFailure("failed to delete records", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, schema.NewStorageFailure("failed to count deleted records", err)
	}
	return int(n), nil
}

// Status implements the MetricStore interface.
func (s *SQLStore) Status(ctx context.Context) (schema.StoreStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := schema.StoreStatus{Backend: string(s.backend), Location: s.location}
	if err := s.db.PingContext(ctx); err != nil {
		return status, schema.NewConnectionFailed("failed to reach database", err)
	}
	status.Connected = true

	var oldest, newest sql.NullInt64
	q := fmt.Sprintf("SELECT COUNT(*), COUNT(DISTINCT project_name), MIN(recorded_at), MAX(recorded_at) FROM %s", s.table)
	if err := s.db.QueryRowContext(ctx, q).Scan(&status.TotalRecords, &status.ProjectCount, &oldest, &newest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status, nil
		}
		return status, schema.NewStorageFailure("failed to summarize records", err)
	}
	if oldest.Valid {
		status.OldestRecord = time.Unix(0, oldest.Int64).UTC()
	}
	if newest.Valid {
		status.NewestRecord = time.Unix(0, newest.Int64).UTC()
	}
	return status, nil
}

// Close implements the MetricStore interface.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
