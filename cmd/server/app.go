package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/api"
	"github.com/nutrilog/nutrilog-api/internal/config"
	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/export"
	"github.com/nutrilog/nutrilog-api/internal/notify"
	"github.com/nutrilog/nutrilog-api/internal/platform/gemini"
	"github.com/nutrilog/nutrilog-api/internal/platform/postgres"
	"github.com/nutrilog/nutrilog-api/internal/service"
	"github.com/nutrilog/nutrilog-api/internal/store"
	"github.com/nutrilog/nutrilog-api/internal/worker"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	mealStore          store.MealStore
	pendingStore       store.PendingMealStore
	clarificationStore store.ClarificationStore
	reportStore        store.ReportStore
	exportStore        store.ExportJobStore

	// Services
	mealService   *service.MealService
	reportService *service.ReportService
	exportService *service.ExportService

	// Event delivery
	hub *notify.Hub

	// Worker loops and the recovery pass that precedes them
	recovery *worker.StartupRecovery
	loops    []*worker.Loop

	workerCancel context.CancelFunc
	workerWG     sync.WaitGroup
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	location, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load report timezone %q: %w", cfg.Report.Timezone, err)
	}

	// Initialize stores
	app.mealStore = postgres.NewPostgresMealStore(db, logger)
	app.pendingStore = postgres.NewPostgresPendingMealStore(db, logger)
	app.clarificationStore = postgres.NewPostgresClarificationStore(db, logger)
	app.reportStore = postgres.NewPostgresReportStore(db, logger)
	app.exportStore = postgres.NewPostgresExportJobStore(db, logger)

	// Create the LLM analyzer; it serves both meal analysis and report
	// content generation.
	analyzer, err := gemini.NewAnalyzer(ctx, logger.With(slog.String("component", "llm_analyzer")), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM analyzer: %w", err)
	}
	logger.Info("LLM analyzer initialized", slog.String("model", cfg.LLM.ModelName))

	// WebSocket hub for pushing job outcomes to connected clients.
	app.hub = notify.NewHub(logger)

	app.recovery = worker.NewStartupRecovery(
		app.reportStore,
		app.pendingStore,
		app.clarificationStore,
		app.exportStore,
		logger,
	)

	pollInterval := time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second
	errorPause := time.Duration(cfg.Worker.ErrorPauseSeconds) * time.Second

	photoWorker := worker.NewAnalysisWorker(
		domain.MealSourcePhoto,
		app.pendingStore,
		app.clarificationStore,
		app.mealStore,
		analyzer,
		app.hub,
		cfg.Worker.MaxAttempts,
		logger.With(slog.String("worker", "photo_analysis")),
	)
	textWorker := worker.NewAnalysisWorker(
		domain.MealSourceText,
		app.pendingStore,
		app.clarificationStore,
		app.mealStore,
		analyzer,
		app.hub,
		cfg.Worker.MaxAttempts,
		logger.With(slog.String("worker", "text_analysis")),
	)
	reportWorker := worker.NewReportWorker(
		app.reportStore,
		app.mealStore,
		analyzer,
		app.hub,
		location,
		time.Duration(cfg.Report.StaleAfterMinutes)*time.Minute,
		logger.With(slog.String("worker", "report_generation")),
	)
	exportWorker := worker.NewExportWorker(
		app.exportStore,
		app.reportStore,
		map[domain.ExportFormat]export.DocumentRenderer{
			domain.ExportFormatPDF:  export.NewPDFRenderer(logger),
			domain.ExportFormatDOCX: export.NewDOCXRenderer(logger),
		},
		app.hub,
		cfg.Export.Dir,
		logger.With(slog.String("worker", "document_export")),
	)

	photoLoop := worker.NewLoop("photo_analysis", photoWorker.Step, pollInterval, errorPause, logger)
	textLoop := worker.NewLoop("text_analysis", textWorker.Step, pollInterval, errorPause, logger)
	reportLoop := worker.NewLoop("report_generation", reportWorker.Step, pollInterval, errorPause, logger)
	exportLoop := worker.NewLoop("document_export", exportWorker.Step, pollInterval, errorPause, logger)
	app.loops = []*worker.Loop{photoLoop, textLoop, reportLoop, exportLoop}

	// Services wake the loop that owns the queue they write to.
	app.mealService = service.NewMealService(
		app.mealStore,
		app.pendingStore,
		app.clarificationStore,
		photoLoop,
		textLoop,
		logger,
	)
	app.reportService = service.NewReportService(
		app.reportStore,
		app.mealStore,
		reportLoop,
		location,
		logger,
	)
	app.exportService = service.NewExportService(
		app.exportStore,
		app.reportStore,
		exportLoop,
		logger,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the worker loops and the HTTP server, handling lifecycle and
// cleanup. It returns an error if the server fails to start or encounters
// problems.
func (app *application) Run(ctx context.Context) error {
	// Recovery runs before any loop starts so rows stranded by a previous
	// crash are back in a claimable state before anything polls.
	app.recovery.Run(ctx)

	workerCtx, cancel := context.WithCancel(ctx)
	app.workerCancel = cancel
	for _, loop := range app.loops {
		app.workerWG.Add(1)
		go func(l *worker.Loop) {
			defer app.workerWG.Done()
			l.Run(workerCtx)
		}(loop)
	}

	router := api.NewRouter(
		api.NewMealHandler(app.mealService, app.logger),
		api.NewReportHandler(app.reportService, app.logger),
		api.NewExportHandler(app.exportService, app.logger),
		app.hub,
	)

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop worker loops and wait for in-flight steps to finish or requeue.
	if app.workerCancel != nil {
		app.workerCancel()
		app.workerWG.Wait()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("Application shutdown completed")
}
