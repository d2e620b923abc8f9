package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/domain"
)

// ReportStore defines the interface for report persistence. Processing
// report rows double as the generation queue.
type ReportStore interface {
	// Create saves a new report row and assigns its ID.
	Create(ctx context.Context, report *domain.Report) error

	// GetByID retrieves a report owned by ownerID.
	// Returns ErrReportNotFound if the report does not exist.
	GetByID(ctx context.Context, ownerID, id int64) (*domain.Report, error)

	// List retrieves all reports for an owner, newest first.
	List(ctx context.Context, ownerID int64) ([]*domain.Report, error)

	// FindProcessing returns the processing report for the cache key, or
	// ErrReportNotFound when none is in flight.
	FindProcessing(ctx context.Context, ownerID int64, period domain.Period, periodStartLocal time.Time) (*domain.Report, error)

	// FindLatestReady returns the most recent completed report for the
	// cache key, or ErrReportNotFound.
	FindLatestReady(ctx context.Context, ownerID int64, period domain.Period, periodStartLocal time.Time) (*domain.Report, error)

	// ClaimNextProcessing returns the oldest processing row that still
	// has no content, by ProcessingStartedAt. Processing rows are already
	// exclusively owned by their creator, so this is a plain read.
	ClaimNextProcessing(ctx context.Context) (*domain.Report, error)

	// Complete writes the generated content, checksum and request payload
	// and clears the processing flag.
	Complete(ctx context.Context, report *domain.Report) error

	// Delete removes a report row. Used when generation fails, so a
	// future request can retry cleanly.
	Delete(ctx context.Context, id int64) error

	// DeleteStaleProcessing removes processing rows whose
	// ProcessingStartedAt is before the cutoff.
	DeleteStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteAllProcessing removes every processing row regardless of age.
	// Run once at startup: a fresh process means no worker can
	// legitimately still own one.
	DeleteAllProcessing(ctx context.Context) (int64, error)

	// WithTx returns a new ReportStore bound to the transaction.
	WithTx(tx *sql.Tx) ReportStore
}
