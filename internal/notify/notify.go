// Package notify delivers best-effort events to connected clients. Delivery
// failures are logged and never propagate to the caller: workers must not
// fail a job because the owner was offline.
package notify

import (
	"context"

	"github.com/nutrilog/nutrilog-api/internal/domain"
)

// Notifier publishes events about finished background work.
type Notifier interface {
	// MealUpdated announces a created or corrected meal. replacedPendingID
	// is the drained queue row that produced the meal, or zero when the
	// meal was corrected in place.
	MealUpdated(ctx context.Context, ownerID int64, meal *domain.Meal, replacedPendingID int64)

	// ReportReady announces a finished report.
	ReportReady(ctx context.Context, ownerID int64, report *domain.Report)

	// DocumentReady announces a finished export with its on-disk location.
	DocumentReady(ctx context.Context, ownerID int64, job *domain.ExportJob, filePath string)
}

// NoopNotifier discards all events. Used where delivery is not wired up.
type NoopNotifier struct{}

var _ Notifier = (*NoopNotifier)(nil)

func (NoopNotifier) MealUpdated(context.Context, int64, *domain.Meal, int64)            {}
func (NoopNotifier) ReportReady(context.Context, int64, *domain.Report)                 {}
func (NoopNotifier) DocumentReady(context.Context, int64, *domain.ExportJob, string)    {}
