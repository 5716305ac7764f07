package database

import (
	"context"
	"embed"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"
)

//go:embed migrations/postgres/*.sql migrations/mysql/*.sql
var migrations embed.FS

// migrationSource returns the goose dialect and embedded directory for a
// sqlx driver name.
func migrationSource(driver string) (dialect, dir string) {
	if driver == "mysql" {
		return "mysql", "migrations/mysql"
	}
	return "postgres", "migrations/postgres"
}

// Migrate applies all pending migrations for the driver db was opened with.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	dialect, dir := migrationSource(db.DriverName())

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return oops.Code("MIGRATION_FAILED").With("dialect", dialect).Wrap(err)
	}
	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return oops.Code("MIGRATION_FAILED").With("dialect", dialect, "dir", dir).Wrap(err)
	}
	return nil
}
