package index_repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DefaultFileName is the index file created in the user's home directory.
const DefaultFileName = ".keymanager-file-db.sqlite"

var sqliteDialect = dialect{
	name: "sqlite",
	createTable: `
		CREATE TABLE IF NOT EXISTS s3_keys (
			id INTEGER PRIMARY KEY,
			bucket TEXT,
			key TEXT,
			last_modified TEXT,
			UNIQUE(bucket, key)
		)`,
	placeholder: func(int) string {
		return "?"
	},
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

func NewSQLiteIndex(db *sql.DB, location string, lg *zap.Logger) *SQLIndex {
	return newSQLIndex(db, location, sqliteDialect, lg)
}

// OpenSQLite opens (creating if needed) the index file at path. ":memory:"
// opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string, lg *zap.Logger) (*SQLIndex, error) {
	if !strings.HasPrefix(path, ":memory:") {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create index directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection: keeps ":memory:" databases alive and serializes writers
	// inside this process. Other processes are handled by the busy timeout.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return NewSQLiteIndex(db, path, lg), nil
}
