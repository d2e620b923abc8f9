package worker

import (
	"context"
	"log/slog"

	"github.com/nutrilog/nutrilog-api/internal/store"
)

// StartupRecovery is the one-shot pass run before any loop starts polling.
// It clears state a crashed process left behind: processing reports are
// deleted outright (a fresh start means no worker can legitimately own
// one), while queue rows stuck in processing are returned to queued.
//
// Failures here are logged and swallowed. Recovery must never keep the
// process from becoming ready.
type StartupRecovery struct {
	reports        store.ReportStore
	pendings       store.PendingMealStore
	clarifications store.ClarificationStore
	exports        store.ExportJobStore
	logger         *slog.Logger
}

// NewStartupRecovery creates the recovery pass.
func NewStartupRecovery(
	reports store.ReportStore,
	pendings store.PendingMealStore,
	clarifications store.ClarificationStore,
	exports store.ExportJobStore,
	logger *slog.Logger,
) *StartupRecovery {
	return &StartupRecovery{
		reports:        reports,
		pendings:       pendings,
		clarifications: clarifications,
		exports:        exports,
		logger:         logger,
	}
}

// Run executes the recovery pass.
func (r *StartupRecovery) Run(ctx context.Context) {
	if n, err := r.reports.DeleteAllProcessing(ctx); err != nil {
		r.logger.Error("startup recovery: failed to delete processing reports",
			slog.String("error", err.Error()))
	} else if n > 0 {
		r.logger.Info("startup recovery: deleted abandoned processing reports",
			slog.Int64("count", n))
	}

	if n, err := r.pendings.ResetProcessing(ctx); err != nil {
		r.logger.Error("startup recovery: failed to reset processing pending meals",
			slog.String("error", err.Error()))
	} else if n > 0 {
		r.logger.Info("startup recovery: requeued stuck pending meals",
			slog.Int64("count", n))
	}

	if n, err := r.clarifications.ResetProcessing(ctx); err != nil {
		r.logger.Error("startup recovery: failed to reset processing clarifications",
			slog.String("error", err.Error()))
	} else if n > 0 {
		r.logger.Info("startup recovery: requeued stuck clarifications",
			slog.Int64("count", n))
	}

	if n, err := r.exports.ResetInProgress(ctx); err != nil {
		r.logger.Error("startup recovery: failed to reset in-progress export jobs",
			slog.String("error", err.Error()))
	} else if n > 0 {
		r.logger.Info("startup recovery: requeued stuck export jobs",
			slog.Int64("count", n))
	}
}
