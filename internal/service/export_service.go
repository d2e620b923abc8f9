package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

// ExportService submits document export jobs. Rendering happens in the
// export worker.
type ExportService struct {
	jobs    store.ExportJobStore
	reports store.ReportStore
	waker   Waker
	logger  *slog.Logger
}

// NewExportService creates an ExportService. The waker belongs to the
// document export loop.
func NewExportService(
	jobs store.ExportJobStore,
	reports store.ReportStore,
	waker Waker,
	logger *slog.Logger,
) *ExportService {
	return &ExportService{
		jobs:    jobs,
		reports: reports,
		waker:   waker,
		logger:  logger,
	}
}

// ExportReport queues an export of an existing report.
func (s *ExportService) ExportReport(ctx context.Context, ownerID, reportID int64, format domain.ExportFormat) (*domain.ExportJob, error) {
	if _, err := s.reports.GetByID(ctx, ownerID, reportID); err != nil {
		return nil, fmt.Errorf("failed to load report %d: %w", reportID, err)
	}

	job, err := domain.NewReportExportJob(ownerID, reportID, format)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue export job: %w", err)
	}

	s.logger.Info("export job queued",
		slog.Int64("job_id", job.ID),
		slog.Int64("owner_id", ownerID),
		slog.Int64("report_id", reportID),
		slog.String("format", string(format)))
	s.waker.Wake()
	return job, nil
}

// ExportRange queues an export combining every finished report whose period
// start falls between from and to.
func (s *ExportService) ExportRange(ctx context.Context, ownerID int64, from, to time.Time, format domain.ExportFormat) (*domain.ExportJob, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid export range: %s is before %s",
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	job, err := domain.NewRangeExportJob(ownerID, from, to, format)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue export job: %w", err)
	}

	s.logger.Info("range export job queued",
		slog.Int64("job_id", job.ID),
		slog.Int64("owner_id", ownerID),
		slog.String("from", from.Format("2006-01-02")),
		slog.String("to", to.Format("2006-01-02")),
		slog.String("format", string(format)))
	s.waker.Wake()
	return job, nil
}

// GetJob returns one export job owned by ownerID.
func (s *ExportService) GetJob(ctx context.Context, ownerID, id int64) (*domain.ExportJob, error) {
	return s.jobs.GetByID(ctx, ownerID, id)
}
