package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/analysis"
	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/notify"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

// ReportWorker drains processing report rows. The rows themselves are the
// queue: the request path inserts them with IsProcessing=true and the worker
// fills in the content. A row whose generation fails is deleted, not marked
// failed, so the next user request regenerates from scratch.
type ReportWorker struct {
	reports    store.ReportStore
	meals      store.MealStore
	generator  analysis.ReportContentGenerator
	notifier   notify.Notifier
	location   *time.Location
	staleAfter time.Duration
	logger     *slog.Logger

	now func() time.Time
}

// NewReportWorker creates the report generation worker.
func NewReportWorker(
	reports store.ReportStore,
	meals store.MealStore,
	generator analysis.ReportContentGenerator,
	notifier notify.Notifier,
	location *time.Location,
	staleAfter time.Duration,
	logger *slog.Logger,
) *ReportWorker {
	return &ReportWorker{
		reports:    reports,
		meals:      meals,
		generator:  generator,
		notifier:   notifier,
		location:   location,
		staleAfter: staleAfter,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Step sweeps stale rows, then generates content for the oldest claimed row.
func (w *ReportWorker) Step(ctx context.Context) (bool, error) {
	// Sweep abandoned rows first so a crashed generation never blocks the
	// cache key forever. Sweep failure is logged but does not stop the
	// claim below.
	cutoff := w.now().Add(-w.staleAfter)
	if n, err := w.reports.DeleteStaleProcessing(ctx, cutoff); err != nil {
		w.logger.Error("failed to sweep stale processing reports",
			slog.String("error", err.Error()))
	} else if n > 0 {
		w.logger.Warn("swept stale processing reports", slog.Int64("count", n))
	}

	report, err := w.reports.ClaimNextProcessing(ctx)
	if store.IsNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim processing report: %w", err)
	}

	if err := w.generate(ctx, report); err != nil {
		if isCancellation(ctx, err) {
			// Leave the row as-is: startup recovery or the staleness
			// sweep reclaims it.
			return false, err
		}
		// A half-written report has no value. Delete the row so the next
		// request starts clean.
		if delErr := w.reports.Delete(ctx, report.ID); delErr != nil {
			return true, errors.Join(err, fmt.Errorf("failed to delete report %d after generation failure: %w", report.ID, delErr))
		}
		w.logger.Error("report generation failed, row deleted",
			slog.Int64("report_id", report.ID),
			slog.Int64("owner_id", report.OwnerID),
			slog.String("error", err.Error()))
		return true, err
	}
	return true, nil
}

func (w *ReportWorker) generate(ctx context.Context, report *domain.Report) error {
	window := domain.WindowForStart(report.Period, report.PeriodStartLocal, w.location)
	mealRows, err := w.meals.ListBetween(ctx, report.OwnerID, window.StartUTC, window.EndUTC)
	if err != nil {
		return fmt.Errorf("failed to list meals for report: %w", err)
	}

	var totals float64
	for _, m := range mealRows {
		totals += m.CaloriesKcal
	}

	markdown, requestJSON, err := w.generator.GenerateReport(ctx, analysis.ReportPayload{
		Period:     report.Period,
		Meals:      mealRows,
		TotalsKcal: totals,
	})
	if err != nil {
		return fmt.Errorf("report content generation failed: %w", err)
	}
	if markdown == "" {
		markdown = fallbackReportContent(report, totals, len(mealRows))
	}

	// Recompute the checksum at completion time: meals logged while the
	// generator ran must invalidate the cache on the next request.
	total, err := w.meals.SumCaloriesBetween(ctx, report.OwnerID, window.StartUTC, window.EndUTC)
	if err != nil {
		return fmt.Errorf("failed to recompute report checksum: %w", err)
	}

	report.Markdown = &markdown
	report.RequestJSON = &requestJSON
	report.CaloriesChecksum = domain.ChecksumCalories(total)
	report.IsProcessing = false
	if err := w.reports.Complete(ctx, report); err != nil {
		return fmt.Errorf("failed to complete report: %w", err)
	}

	w.logger.Info("report generated",
		slog.Int64("report_id", report.ID),
		slog.Int64("owner_id", report.OwnerID),
		slog.String("period", string(report.Period)),
		slog.Int("meals", len(mealRows)))
	w.notifier.ReportReady(ctx, report.OwnerID, report)
	return nil
}

// fallbackReportContent stands in when the generator returns empty text,
// which the contract treats as "use fallback content", not failure.
func fallbackReportContent(report *domain.Report, totals float64, mealCount int) string {
	return fmt.Sprintf("# %s\n\nNo recommendations are available for this period.\n\n"+
		"| Meals | Total calories |\n|-------|----------------|\n| %d | %.0f kcal |\n",
		report.Name, mealCount, totals)
}
