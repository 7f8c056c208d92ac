package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// sqliteDefaultParams are appended to SQLite DSNs that carry no pragmas of
// their own. Connections from the worker pool write concurrently.
const sqliteDefaultParams = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

var sqlOpen = sql.Open

// IsPostgresDSN reports whether dsn addresses a PostgreSQL server rather than
// an SQLite file.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects to the store addressed by dsn and returns the matching
// RepositoryManager. Migrations are not run.
func Open(ctx context.Context, dsn string) (*sql.DB, RepositoryManager, error) {
	driver, rm := "sqlite", NewSQLiteRepositoryManager()
	if IsPostgresDSN(dsn) {
		driver, rm = "pgx", NewPostgresRepositoryManager()
	} else {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, rm, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqliteDefaultParams
	}
	return dsn + "?" + sqliteDefaultParams
}
