//go:build sqlite_cgo

package index_repo

// cgo SQLite (github.com/mattn/go-sqlite3). Build command:
//   CGO_ENABLED=1 go build -tags sqlite_cgo ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver used for SQLite indexes.
const DriverName = "sqlite3"
