package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

// ReportStartStatus tells the caller what happened to a report request.
type ReportStartStatus string

// Possible report start outcomes
const (
	// ReportStartProcessing means generation is queued or already in
	// flight; the caller polls or waits for the notification.
	ReportStartProcessing ReportStartStatus = "processing"

	// ReportStartNoChanges means the cached report is still valid and is
	// returned as-is, with no generator invocation.
	ReportStartNoChanges ReportStartStatus = "no_changes"
)

// ReportStart is the outcome of a report request.
type ReportStart struct {
	Status ReportStartStatus
	Report *domain.Report
}

// ReportService is the request path of the report cache. It never generates
// content itself: it either returns a cached report, reports an in-flight
// generation, or inserts a processing row for the worker to pick up.
type ReportService struct {
	reports  store.ReportStore
	meals    store.MealStore
	waker    Waker
	location *time.Location
	logger   *slog.Logger

	now func() time.Time
}

// NewReportService creates a ReportService. The waker belongs to the report
// generation loop.
func NewReportService(
	reports store.ReportStore,
	meals store.MealStore,
	waker Waker,
	location *time.Location,
	logger *slog.Logger,
) *ReportService {
	return &ReportService{
		reports:  reports,
		meals:    meals,
		waker:    waker,
		location: location,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// StartReport requests a report for the period containing now.
//
// The cache key is (owner, period, local period start). An in-flight
// generation for the key is returned as "processing" without inserting
// anything. Otherwise the current calories checksum decides: unchanged since
// the last completed report means "no changes" with the cached content;
// changed (or no prior report) inserts a fresh processing row and wakes the
// worker.
func (s *ReportService) StartReport(ctx context.Context, ownerID int64, period domain.Period) (*ReportStart, error) {
	now := s.now()
	window, err := domain.ResolvePeriodWindow(now, period, s.location)
	if err != nil {
		return nil, err
	}

	inFlight, err := s.reports.FindProcessing(ctx, ownerID, period, window.StartLocal)
	if err != nil && !store.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check for in-flight report: %w", err)
	}
	if inFlight != nil {
		s.logger.Debug("report already processing",
			slog.Int64("report_id", inFlight.ID),
			slog.Int64("owner_id", ownerID),
			slog.String("period", string(period)))
		return &ReportStart{Status: ReportStartProcessing, Report: inFlight}, nil
	}

	total, err := s.meals.SumCaloriesBetween(ctx, ownerID, window.StartUTC, window.EndUTC)
	if err != nil {
		return nil, fmt.Errorf("failed to compute report checksum: %w", err)
	}
	checksum := domain.ChecksumCalories(total)

	latest, err := s.reports.FindLatestReady(ctx, ownerID, period, window.StartLocal)
	if err != nil && !store.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up cached report: %w", err)
	}
	if latest != nil && latest.CaloriesChecksum == checksum {
		s.logger.Debug("report unchanged, serving cached content",
			slog.Int64("report_id", latest.ID),
			slog.Int64("owner_id", ownerID),
			slog.String("period", string(period)))
		return &ReportStart{Status: ReportStartNoChanges, Report: latest}, nil
	}

	report := &domain.Report{
		OwnerID:             ownerID,
		Period:              period,
		PeriodStartLocal:    window.StartLocal,
		Name:                domain.BuildReportName(period, window.StartLocal),
		IsProcessing:        true,
		ProcessingStartedAt: &now,
		CreatedAt:           now,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report row: %w", err)
	}

	s.logger.Info("report generation queued",
		slog.Int64("report_id", report.ID),
		slog.Int64("owner_id", ownerID),
		slog.String("period", string(period)))
	s.waker.Wake()
	return &ReportStart{Status: ReportStartProcessing, Report: report}, nil
}

// GetReport returns one report owned by ownerID.
func (s *ReportService) GetReport(ctx context.Context, ownerID, id int64) (*domain.Report, error) {
	return s.reports.GetByID(ctx, ownerID, id)
}

// ListReports returns the owner's reports, newest first.
func (s *ReportService) ListReports(ctx context.Context, ownerID int64) ([]*domain.Report, error) {
	return s.reports.List(ctx, ownerID)
}
