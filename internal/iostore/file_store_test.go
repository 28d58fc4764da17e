package iostore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/perfwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEscapeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"alpha", "alpha"},
		{"my project", "my%20project"},
		{"../etc", "..%2Fetc"},
		{"a/b", "a%2Fb"},
		{".", "%2E"},
		{"..", "%2E%2E"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := escapeName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, filepath.Base(got))
		})
	}
}

func TestFileStoreLayout(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root, nil)
	require.NoError(t, err)

	r := newRecord(t, "rec-1", "team/service", schema.BuildDuration, 3, 0)
	require.NoError(t, store.StoreMetrics(context.Background(), []schema.MetricRecord{r}))

	_, err = os.Stat(filepath.Join(root, "team%2Fservice", "rec-1.json"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "team%2Fservice"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files should not be left behind")
}

func TestFileStoreSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	core, logs := observer.New(zapcore.WarnLevel)
	store, err := NewFileStore(root, zap.New(core))
	require.NoError(t, err)

	require.NoError(t, store.StoreMetrics(ctx, []schema.MetricRecord{
		newRecord(t, "ok", "alpha", schema.BuildDuration, 1, 0),
	}))
	dir := filepath.Join(root, "alpha")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.json"), []byte(`{"id":"x"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	out, err := store.RetrieveMetrics(ctx, "alpha", schema.AllTime())
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, ids(out))
	assert.Equal(t, 1, logs.FilterMessage("skipping corrupt record").Len())
	assert.Equal(t, 1, logs.FilterMessage("skipping invalid record").Len())

	// Corrupt files survive a sweep
	removed, err := store.DeleteMetrics(ctx, baseTime.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = os.Stat(filepath.Join(dir, "broken.json"))
	assert.NoError(t, err)
}

func TestFileStoreIgnoresMisplacedRecords(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFileStore(root, nil)
	require.NoError(t, err)

	require.NoError(t, store.StoreMetrics(ctx, []schema.MetricRecord{
		newRecord(t, "b1", "beta", schema.BuildDuration, 1, 0),
	}))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "alpha"), 0o755))
	data, err := os.ReadFile(filepath.Join(root, "beta", "b1.json"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "alpha", "b1.json"), data, 0o644))

	out, err := store.RetrieveMetrics(ctx, "alpha", schema.AllTime())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNewFileStoreRejectsEmptyRoot(t *testing.T) {
	_, err := NewFileStore("", nil)
	assert.ErrorIs(t, err, schema.ErrConnectionFailed)
}

func TestFileStoreRollsBackPartialBatch(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFileStore(root, zap.NewNop())
	require.NoError(t, err)

	// A plain file where the beta project directory belongs makes its write fail
	require.NoError(t, os.WriteFile(filepath.Join(root, "beta"), []byte("x"), 0o644))

	err = store.StoreMetrics(ctx, []schema.MetricRecord{
		newRecord(t, "a1", "alpha", schema.BuildDuration, 1, 0),
		newRecord(t, "b1", "beta", schema.BuildDuration, 2, time.Minute),
	})
	require.ErrorIs(t, err, schema.ErrStorageFailure)

	out, err := store.RetrieveMetrics(ctx, "alpha", schema.AllTime())
	require.NoError(t, err)
	assert.Empty(t, out)

	// The rolled back record can be stored again
	require.NoError(t, store.StoreMetrics(ctx, []schema.MetricRecord{
		newRecord(t, "a1", "alpha", schema.BuildDuration, 1, 0),
	}))
}
