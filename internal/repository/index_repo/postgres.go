package index_repo

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var postgresDialect = dialect{
	name: "postgres",
	createTable: `
		CREATE TABLE IF NOT EXISTS s3_keys (
			id BIGSERIAL PRIMARY KEY,
			bucket TEXT,
			key TEXT,
			last_modified TEXT,
			UNIQUE (bucket, key)
		)`,
	placeholder: func(n int) string {
		return "$" + strconv.Itoa(n)
	},
}

func NewPostgresIndex(db *sql.DB, location string, lg *zap.Logger) *SQLIndex {
	return newSQLIndex(db, location, postgresDialect, lg)
}

// OpenPostgres connects to dsn and checks the connection. The reported
// location is the dsn with its password redacted.
func OpenPostgres(ctx context.Context, dsn string, lg *zap.Logger) (*SQLIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	location := dsn
	if u, err := url.Parse(dsn); err == nil {
		location = u.Redacted()
	}

	return NewPostgresIndex(db, location, lg), nil
}
