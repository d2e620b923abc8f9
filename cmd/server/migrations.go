package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/nutrilog/nutrilog-api/internal/platform/postgres/migrations"
	"github.com/pressly/goose/v3"
)

// migrationTableName is the name of the table used by goose to track
// migrations.
const migrationTableName = "schema_migrations"

// slogGooseLogger adapts the goose logger interface to use slog.
type slogGooseLogger struct{}

// Printf implements the goose.Logger Printf method by forwarding messages to slog.Info
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	slog.Info(fmt.Sprintf(format, v...))
}

// Fatalf implements the goose.Logger Fatalf method by forwarding error
// messages to slog.Error. Unlike the standard Fatalf behavior, this does
// NOT call os.Exit so the error can be returned to main, which handles the
// exit consistently.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...))
}

// runMigrations applies any pending embedded migrations against the open
// database connection. Migrations run at every startup; goose skips the
// ones already recorded in the schema_migrations table.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	goose.SetLogger(&slogGooseLogger{})
	goose.SetBaseFS(migrations.FS)
	goose.SetTableName(migrationTableName)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	before, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	after, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	if after != before {
		logger.Info("Database migrations applied",
			slog.Int64("from_version", before),
			slog.Int64("to_version", after))
	} else {
		logger.Info("Database schema up to date", slog.Int64("version", after))
	}
	return nil
}
