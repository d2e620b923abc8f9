package worker

import (
	"context"
	"testing"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartupRecoveryDeletesAllProcessingReports(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reports := newMockReportStore()
	meals := newMockMealStore()
	pendings := newMockPendingStore()
	clarifications := newMockClarificationStore(meals)
	exports := newMockExportStore()

	// Processing rows of varying age: all must go, regardless of age.
	for _, age := range []time.Duration{time.Second, time.Hour, 30 * 24 * time.Hour} {
		started := time.Now().UTC().Add(-age)
		require.NoError(t, reports.Create(ctx, &domain.Report{
			OwnerID: 1, Period: domain.PeriodDay,
			PeriodStartLocal: time.Date(2025, 8, 29, 0, 0, 0, 0, time.UTC),
			IsProcessing:     true, ProcessingStartedAt: &started,
		}))
	}
	markdown := "done"
	require.NoError(t, reports.Create(ctx, &domain.Report{
		OwnerID: 1, Period: domain.PeriodDay,
		PeriodStartLocal: time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC),
		Markdown:         &markdown,
	}))

	NewStartupRecovery(reports, pendings, clarifications, exports, discardLogger()).Run(ctx)

	assert.Equal(t, 1, reports.count(), "only the finished report survives")
}

func TestStartupRecoveryRequeuesStuckRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reports := newMockReportStore()
	meals := newMockMealStore()
	pendings := newMockPendingStore()
	clarifications := newMockClarificationStore(meals)
	exports := newMockExportStore()

	pending, err := domain.NewPendingTextMeal(1, "stew")
	require.NoError(t, err)
	require.NoError(t, pendings.Enqueue(ctx, pending))
	_, err = pendings.Claim(ctx, pending.ID)
	require.NoError(t, err)

	job, err := domain.NewReportExportJob(1, 9, domain.ExportFormatPDF)
	require.NoError(t, err)
	require.NoError(t, exports.Enqueue(ctx, job))
	_, err = exports.Claim(ctx, job.ID)
	require.NoError(t, err)

	NewStartupRecovery(reports, pendings, clarifications, exports, discardLogger()).Run(ctx)

	row := pendings.get(pending.ID)
	require.NotNil(t, row)
	assert.Equal(t, domain.JobStatusQueued, row.Status, "stuck pending row returns to the queue")
	assert.Zero(t, row.Attempts, "recovery does not burn an attempt")

	recovered := exports.get(job.ID)
	require.NotNil(t, recovered)
	assert.Equal(t, domain.ExportStatusQueued, recovered.Status, "stuck export job returns to the queue")
}
