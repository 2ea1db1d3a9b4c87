package repo

import (
	"context"
	"embed"
	"errors"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var ErrorNotFound = errors.New("not found")

const seededKey = "seeded_at"

// Open picks the backend from the DSN: postgres URLs go to PostgreSQL,
// anything else is treated as a SQLite file path.
func Open(ctx context.Context, dsn string) (TaskRepository, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return OpenPostgres(ctx, dsn)
	}
	return OpenSQLite(ctx, dsn)
}
