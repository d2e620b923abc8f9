// Package main implements the entry point for the NutriLog API server,
// which handles meal logging with LLM-backed nutrition analysis, cached
// report generation, and document export.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nutrilog/nutrilog-api/internal/config"
	"github.com/nutrilog/nutrilog-api/internal/platform/logger"
)

// main initializes configuration, logging, the database connection and
// migrations, wires the application dependencies, and starts the HTTP
// server alongside the worker loops.
func main() {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

// run holds the fallible part of startup so main can stay a thin wrapper.
func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("Server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("report_timezone", cfg.Report.Timezone))

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	if err := runMigrations(ctx, db, appLogger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
