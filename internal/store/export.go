package store

import (
	"context"
	"database/sql"

	"github.com/nutrilog/nutrilog-api/internal/domain"
)

// ExportJobStore defines the interface for the document export queue.
type ExportJobStore interface {
	// Enqueue inserts a new queued job and assigns its ID.
	Enqueue(ctx context.Context, job *domain.ExportJob) error

	// GetByID retrieves a job owned by ownerID.
	// Returns ErrExportJobNotFound if the job does not exist.
	GetByID(ctx context.Context, ownerID, id int64) (*domain.ExportJob, error)

	// PeekOldestQueued returns the oldest queued job without claiming it,
	// or ErrExportJobNotFound when the queue is empty.
	PeekOldestQueued(ctx context.Context) (*domain.ExportJob, error)

	// Claim atomically flips the job from queued to in_progress.
	Claim(ctx context.Context, id int64) (ClaimStatus, error)

	// Finish records the terminal status (done or error) together with
	// the finish time and, on success, the rendered file path.
	Finish(ctx context.Context, job *domain.ExportJob) error

	// ResetInProgress flips every in_progress job back to queued. Run at
	// startup to recover jobs abandoned by a crashed process.
	ResetInProgress(ctx context.Context) (int64, error)

	// WithTx returns a new ExportJobStore bound to the transaction.
	WithTx(tx *sql.Tx) ExportJobStore
}
