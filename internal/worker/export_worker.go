package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/export"
	"github.com/nutrilog/nutrilog-api/internal/notify"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

// ExportWorker drains the document export queue. Export jobs are not
// retried: rendering or delivery failure marks the job error with a finish
// time and moves on.
type ExportWorker struct {
	jobs      store.ExportJobStore
	reports   store.ReportStore
	renderers map[domain.ExportFormat]export.DocumentRenderer
	notifier  notify.Notifier
	dir       string
	logger    *slog.Logger

	now func() time.Time
}

// NewExportWorker creates the document export worker.
func NewExportWorker(
	jobs store.ExportJobStore,
	reports store.ReportStore,
	renderers map[domain.ExportFormat]export.DocumentRenderer,
	notifier notify.Notifier,
	dir string,
	logger *slog.Logger,
) *ExportWorker {
	return &ExportWorker{
		jobs:      jobs,
		reports:   reports,
		renderers: renderers,
		notifier:  notifier,
		dir:       dir,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Step claims and renders the oldest queued job.
func (w *ExportWorker) Step(ctx context.Context) (bool, error) {
	job, err := w.jobs.PeekOldestQueued(ctx)
	if store.IsNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to peek export queue: %w", err)
	}

	status, err := w.jobs.Claim(ctx, job.ID)
	if err != nil {
		return false, fmt.Errorf("failed to claim export job %d: %w", job.ID, err)
	}
	if status != store.ClaimWon {
		w.logger.Debug("lost claim race for export job",
			slog.Int64("job_id", job.ID),
			slog.String("claim_status", status.String()))
		return true, nil
	}

	filePath, err := w.render(ctx, job)
	if err != nil {
		if isCancellation(ctx, err) {
			// The job stays in_progress; startup recovery requeues it.
			return false, err
		}
		w.logger.Error("export job failed",
			slog.Int64("job_id", job.ID),
			slog.Int64("owner_id", job.OwnerID),
			slog.String("error", err.Error()))
		return true, w.finish(ctx, job, domain.ExportStatusError, "")
	}

	if err := w.finish(ctx, job, domain.ExportStatusDone, filePath); err != nil {
		return true, err
	}

	w.logger.Info("export job finished",
		slog.Int64("job_id", job.ID),
		slog.Int64("owner_id", job.OwnerID),
		slog.String("format", string(job.Format)),
		slog.String("file_path", filePath))
	w.notifier.DocumentReady(ctx, job.OwnerID, job, filePath)
	return true, nil
}

func (w *ExportWorker) render(ctx context.Context, job *domain.ExportJob) (string, error) {
	renderer, ok := w.renderers[job.Format]
	if !ok {
		return "", fmt.Errorf("no renderer for format %q", job.Format)
	}

	markdown, title, err := w.sourceContent(ctx, job)
	if err != nil {
		return "", err
	}

	data, err := renderer.Render(markdown, title)
	if err != nil {
		return "", fmt.Errorf("failed to render %s document: %w", job.Format, err)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	filePath := export.FileName(w.dir, job.ID, title, job.Format)
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return filePath, nil
}

// sourceContent resolves the job source: a single finished report, or every
// finished report whose period start falls in an explicit date range.
func (w *ExportWorker) sourceContent(ctx context.Context, job *domain.ExportJob) (markdown, title string, err error) {
	if job.ReportID != nil {
		report, err := w.reports.GetByID(ctx, job.OwnerID, *job.ReportID)
		if err != nil {
			return "", "", fmt.Errorf("failed to load source report %d: %w", *job.ReportID, err)
		}
		if report.Markdown == nil {
			return "", "", fmt.Errorf("source report %d has no content yet", report.ID)
		}
		return fmt.Sprintf("# %s\n\n%s", report.Name, *report.Markdown), report.Name, nil
	}

	all, err := w.reports.List(ctx, job.OwnerID)
	if err != nil {
		return "", "", fmt.Errorf("failed to list reports for range export: %w", err)
	}
	var inRange []*domain.Report
	// List is newest first; the combined document reads oldest first.
	for i := len(all) - 1; i >= 0; i-- {
		r := all[i]
		if r.IsProcessing || r.Markdown == nil {
			continue
		}
		if r.PeriodStartLocal.Before(*job.From) || r.PeriodStartLocal.After(*job.To) {
			continue
		}
		inRange = append(inRange, r)
	}
	if len(inRange) == 0 {
		return "", "", fmt.Errorf("no finished reports between %s and %s",
			job.From.Format("2006-01-02"), job.To.Format("2006-01-02"))
	}

	title = fmt.Sprintf("reports_%s_%s",
		job.From.Format("2006-01-02"), job.To.Format("2006-01-02"))
	return export.CombineReports(inRange), title, nil
}

func (w *ExportWorker) finish(ctx context.Context, job *domain.ExportJob, status domain.ExportStatus, filePath string) error {
	finishedAt := w.now()
	job.Status = status
	job.FilePath = filePath
	job.FinishedAt = &finishedAt
	if err := w.jobs.Finish(ctx, job); err != nil {
		return fmt.Errorf("failed to finish export job %d: %w", job.ID, err)
	}
	return nil
}
