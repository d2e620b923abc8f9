package service

import (
	"context"
	"testing"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExportServiceFixture(t *testing.T) (*ExportService, *fakeExportStore, *fakeReportStore, *countingWaker) {
	t.Helper()
	jobs := newFakeExportStore()
	reports := newFakeReportStore()
	waker := &countingWaker{}
	return NewExportService(jobs, reports, waker, discardLogger()), jobs, reports, waker
}

func TestExportReportEnqueuesJob(t *testing.T) {
	t.Parallel()
	svc, jobs, reports, waker := newExportServiceFixture(t)
	ctx := context.Background()

	markdown := "advice"
	report := &domain.Report{OwnerID: 42, Period: domain.PeriodDay,
		PeriodStartLocal: time.Date(2025, 8, 29, 0, 0, 0, 0, time.UTC),
		Name:             "2025-08-29 · day", Markdown: &markdown}
	require.NoError(t, reports.Create(ctx, report))

	job, err := svc.ExportReport(ctx, 42, report.ID, domain.ExportFormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportStatusQueued, job.Status)
	require.NotNil(t, job.ReportID)
	assert.Equal(t, report.ID, *job.ReportID)

	assert.Len(t, jobs.rows, 1)
	assert.Equal(t, int64(1), waker.wakes.Load())
}

func TestExportReportRejectsForeignReport(t *testing.T) {
	t.Parallel()
	svc, jobs, reports, _ := newExportServiceFixture(t)
	ctx := context.Background()

	report := &domain.Report{OwnerID: 1, Period: domain.PeriodDay,
		PeriodStartLocal: time.Date(2025, 8, 29, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, reports.Create(ctx, report))

	_, err := svc.ExportReport(ctx, 2, report.ID, domain.ExportFormatPDF)
	require.ErrorIs(t, err, store.ErrReportNotFound)
	assert.Empty(t, jobs.rows)
}

func TestExportRangeEnqueuesJob(t *testing.T) {
	t.Parallel()
	svc, jobs, _, waker := newExportServiceFixture(t)

	from := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	job, err := svc.ExportRange(context.Background(), 42, from, to, domain.ExportFormatPDF)
	require.NoError(t, err)
	assert.Nil(t, job.ReportID)
	require.NotNil(t, job.From)
	require.NotNil(t, job.To)

	assert.Len(t, jobs.rows, 1)
	assert.Equal(t, int64(1), waker.wakes.Load())
}

func TestExportRangeRejectsInvertedRange(t *testing.T) {
	t.Parallel()
	svc, jobs, _, _ := newExportServiceFixture(t)

	from := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.ExportRange(context.Background(), 42, from, to, domain.ExportFormatPDF)
	require.Error(t, err)
	assert.Empty(t, jobs.rows)
}
