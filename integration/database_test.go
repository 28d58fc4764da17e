//go:build database

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/perfwatch/internal/iostore"
	"github.com/huangsam/perfwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// startMySQL starts a MySQL container and returns its connection string.
func startMySQL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "perfwatch",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mysqlC.Terminate(ctx) })

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)
	return fmt.Sprintf("root:secret123@tcp(%s:%s)/perfwatch?parseTime=true&multiStatements=true", host, port.Port())
}

// startPostgres starts a PostgreSQL container and returns its connection string.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
}

// exerciseSQLStore runs the store contract against a live database.
func exerciseSQLStore(t *testing.T, backend schema.StorageBackend, connStr string) {
	ctx := context.Background()
	store, err := iostore.NewSQLStore(backend, connStr, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	now := time.Now().UTC().Truncate(time.Microsecond)
	var records []schema.MetricRecord
	for i, commit := range []string{"base", "base", "head"} {
		r, err := schema.NewMetricRecord(schema.BuildSource, schema.BuildDuration, float64(10+i), "demo",
			schema.WithTimestamp(now.Add(time.Duration(i)*time.Minute)),
			schema.WithProvenance(commit, "main"),
			schema.WithMetadata(map[string]string{"target": "./..."}))
		require.NoError(t, err)
		records = append(records, r)
	}
	require.NoError(t, store.StoreMetrics(ctx, records))

	window, err := store.RetrieveMetrics(ctx, "demo", schema.TimeRange{Start: now, End: now.Add(2 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, window, 3)
	assert.Equal(t, "./...", window[0].Metadata["target"])

	base, err := store.RetrieveMetricsForCommit(ctx, "base", "demo")
	require.NoError(t, err)
	assert.Len(t, base, 2)

	latest, err := store.RetrieveLatestMetrics(ctx, "demo", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "head", latest[0].CommitHash)

	err = store.StoreMetrics(ctx, records[:1])
	assert.ErrorIs(t, err, schema.ErrStorageFailure, "duplicate IDs are rejected")

	removed, err := store.DeleteMetrics(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.TotalRecords)
	assert.Equal(t, 1, status.ProjectCount)
}

// exerciseCLI runs the main commands against a live database.
func exerciseCLI(t *testing.T, backend schema.StorageBackend, connStr string) {
	project := writeFixtureProject(t)
	env := []string{
		"PERFWATCH_STORAGE_TYPE=" + string(backend),
		"PERFWATCH_STORAGE_DB_CONNECT=" + connStr,
	}

	_, err := runPerfwatch(t, project, env, "store", "clear")
	require.NoError(t, err)

	_, err = runPerfwatch(t, project, env, "store", "migrate")
	require.NoError(t, err)

	_, err = runPerfwatch(t, project, env, "collect", "--collectors", "build,tests")
	require.NoError(t, err)

	out, err := runPerfwatch(t, project, env, "latest", "--output", "json")
	require.NoError(t, err)
	var records []schema.MetricRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.NotEmpty(t, records)

	_, err = runPerfwatch(t, project, env, "store", "status")
	require.NoError(t, err)
}

// TestPerfwatchWithMySQL tests the store and CLI with a MySQL backend.
func TestPerfwatchWithMySQL(t *testing.T) {
	connStr := startMySQL(t)
	t.Run("store", func(t *testing.T) { exerciseSQLStore(t, schema.MySQLBackend, connStr) })
	t.Run("cli", func(t *testing.T) { exerciseCLI(t, schema.MySQLBackend, connStr) })
}

// TestPerfwatchWithPostgres tests the store and CLI with a PostgreSQL backend.
func TestPerfwatchWithPostgres(t *testing.T) {
	connStr := startPostgres(t)
	t.Run("store", func(t *testing.T) { exerciseSQLStore(t, schema.PostgreSQLBackend, connStr) })
	t.Run("cli", func(t *testing.T) { exerciseCLI(t, schema.PostgreSQLBackend, connStr) })
}
