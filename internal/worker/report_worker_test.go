package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportFixture struct {
	reports   *mockReportStore
	meals     *mockMealStore
	generator *mockGenerator
	notifier  *mockNotifier
	worker    *ReportWorker
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	f := &reportFixture{
		reports:   newMockReportStore(),
		meals:     newMockMealStore(),
		generator: &mockGenerator{markdown: "## Advice\n\nEat greens."},
		notifier:  &mockNotifier{},
	}
	f.worker = NewReportWorker(f.reports, f.meals, f.generator, f.notifier,
		time.UTC, 10*time.Minute, discardLogger())
	return f
}

func seedProcessingReport(t *testing.T, f *reportFixture, ownerID int64, startedAgo time.Duration) *domain.Report {
	t.Helper()
	now := time.Now().UTC()
	started := now.Add(-startedAgo)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	r := &domain.Report{
		OwnerID:             ownerID,
		Period:              domain.PeriodDay,
		PeriodStartLocal:    day,
		Name:                domain.BuildReportName(domain.PeriodDay, day),
		IsProcessing:        true,
		ProcessingStartedAt: &started,
		CreatedAt:           started,
	}
	require.NoError(t, f.reports.Create(context.Background(), r))
	return r
}

func TestReportWorkerGeneratesAndCompletes(t *testing.T) {
	t.Parallel()
	f := newReportFixture(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, f.meals.Create(ctx, &domain.Meal{
		OwnerID: 7, Source: domain.MealSourceText, CreatedAt: now,
		DishName: "lunch", CaloriesKcal: 650.5,
	}))
	report := seedProcessingReport(t, f, 7, time.Minute)

	worked, err := f.worker.Step(ctx)
	require.NoError(t, err)
	assert.True(t, worked)

	got := f.reports.get(report.ID)
	require.NotNil(t, got)
	assert.False(t, got.IsProcessing)
	require.NotNil(t, got.Markdown)
	assert.Equal(t, "## Advice\n\nEat greens.", *got.Markdown)
	require.NotNil(t, got.RequestJSON)
	assert.Equal(t, domain.ChecksumCalories(650.5), got.CaloriesChecksum)

	assert.Equal(t, 1, f.generator.calls)
	assert.Equal(t, domain.PeriodDay, f.generator.lastPayload.Period)
	assert.InDelta(t, 650.5, f.generator.lastPayload.TotalsKcal, 0.001)
	assert.Equal(t, []int64{report.ID}, f.notifier.reportEvents)
}

func TestReportWorkerIdleWithoutProcessingRows(t *testing.T) {
	t.Parallel()
	f := newReportFixture(t)

	worked, err := f.worker.Step(context.Background())
	require.NoError(t, err)
	assert.False(t, worked)
	assert.Zero(t, f.generator.calls)
}

func TestReportWorkerDeletesRowOnGenerationError(t *testing.T) {
	t.Parallel()
	f := newReportFixture(t)
	ctx := context.Background()

	report := seedProcessingReport(t, f, 7, time.Minute)
	f.generator.err = errors.New("model overloaded")

	worked, err := f.worker.Step(ctx)
	assert.True(t, worked)
	require.Error(t, err)

	assert.Nil(t, f.reports.get(report.ID),
		"a failed generation must delete the row so the next request retries cleanly")
	assert.Empty(t, f.notifier.reportEvents)
}

func TestReportWorkerUsesFallbackForEmptyContent(t *testing.T) {
	t.Parallel()
	f := newReportFixture(t)
	ctx := context.Background()

	report := seedProcessingReport(t, f, 3, time.Minute)
	f.generator.markdown = ""

	worked, err := f.worker.Step(ctx)
	require.NoError(t, err)
	assert.True(t, worked)

	got := f.reports.get(report.ID)
	require.NotNil(t, got)
	require.NotNil(t, got.Markdown)
	assert.Contains(t, *got.Markdown, "No recommendations are available",
		"empty generator output means fallback content, not failure")
}

func TestReportWorkerSweepsStaleProcessingRows(t *testing.T) {
	t.Parallel()
	f := newReportFixture(t)
	ctx := context.Background()

	stale := seedProcessingReport(t, f, 1, 11*time.Minute)
	fresh := seedProcessingReport(t, f, 2, time.Minute)

	worked, err := f.worker.Step(ctx)
	require.NoError(t, err)
	assert.True(t, worked)

	assert.Nil(t, f.reports.get(stale.ID), "row older than the threshold must be swept")
	got := f.reports.get(fresh.ID)
	require.NotNil(t, got, "fresh row survives the sweep")
	assert.False(t, got.IsProcessing, "and is generated in the same step")
	assert.Equal(t, 1, f.generator.calls, "the swept row must never reach the generator")
}

func TestReportWorkerCancellationLeavesRowForRecovery(t *testing.T) {
	t.Parallel()
	f := newReportFixture(t)

	report := seedProcessingReport(t, f, 7, time.Minute)
	f.generator.err = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	worked, err := f.worker.Step(ctx)
	assert.False(t, worked)
	require.ErrorIs(t, err, context.Canceled)

	got := f.reports.get(report.ID)
	require.NotNil(t, got, "a shutdown must not delete the row")
	assert.True(t, got.IsProcessing, "recovery or the sweep reclaims it later")
}
