//go:build !sqlite_cgo

package index_repo

// Pure Go SQLite, no C toolchain required. Build with -tags sqlite_cgo to
// use github.com/mattn/go-sqlite3 instead.

import (
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver used for SQLite indexes.
const DriverName = "sqlite"
