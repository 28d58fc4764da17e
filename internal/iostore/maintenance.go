package iostore

import (
	"fmt"
	"os"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/schema"
)

// ClearStore wipes every record held by a backend.
// For the file backend, it removes the store root.
// For SQLite, it deletes the database file.
// For MySQL and PostgreSQL, it drops the records and migrations tables.
// The memory backend holds nothing between runs, so it does nothing.
func ClearStore(backend schema.StorageBackend, path, connStr string) error {
	switch backend {
	case schema.MemoryBackend:
		return nil

	case schema.FileBackend:
		if path == "" {
			path = contract.GetDataDir()
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove file store %s: %w", path, err)
		}
		return nil

	case schema.SQLiteBackend:
		if path == "" {
			path = contract.GetDBFilePath()
		}
		// Remove the file; ignore if it doesn't exist
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", path, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return clearSQLTables(backend, connStr, metricRecordsTable, migrationsTable)

	default:
		return fmt.Errorf("unsupported storage backend for clearing: %s", backend)
	}
}

// clearSQLTables connects to the SQL database and drops the tables if they exist.
func clearSQLTables(backend schema.StorageBackend, connStr string, tables ...string) error {
	db, err := openDB(backend, connStr)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", backend, err)
	}

	for _, table := range tables {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

// PrintStoreStatus prints store status information.
func PrintStoreStatus(status schema.StoreStatus) {
	fmt.Printf("Storage Backend: %s\n", status.Backend)
	if status.Location != "" {
		fmt.Printf("Location: %s\n", status.Location)
	}
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Records: %d\n", status.TotalRecords)
	fmt.Printf("Projects: %d\n", status.ProjectCount)
	if status.TotalRecords > 0 {
		fmt.Printf("Newest Record: %s\n", status.NewestRecord.Format("2006-01-02 15:04:05"))
		fmt.Printf("Oldest Record: %s\n", status.OldestRecord.Format("2006-01-02 15:04:05"))
	}
}
