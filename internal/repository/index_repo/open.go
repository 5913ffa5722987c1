package index_repo

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Open picks the backend from storageURL:
//
//	""                       SQLite at DefaultPath()
//	postgres://, postgresql:// Postgres
//	sqlite://<path>          SQLite at <path>
//	a path without a scheme  SQLite at that path
func Open(ctx context.Context, storageURL string, lg *zap.Logger) (*SQLIndex, error) {
	switch {
	case storageURL == "":
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		return OpenSQLite(ctx, path, lg)
	case strings.HasPrefix(storageURL, "postgres://"), strings.HasPrefix(storageURL, "postgresql://"):
		return OpenPostgres(ctx, storageURL, lg)
	case strings.HasPrefix(storageURL, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(storageURL, "sqlite://"), lg)
	case strings.Contains(storageURL, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, storageURL)
	default:
		return OpenSQLite(ctx, storageURL, lg)
	}
}
