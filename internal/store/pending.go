package store

import (
	"context"
	"database/sql"

	"github.com/nutrilog/nutrilog-api/internal/domain"
)

// PendingMealStore defines the interface for the photo/text analysis queues.
// Rows progress queued -> processing and are deleted on success or once the
// attempt cap is exhausted; there is no terminal status.
type PendingMealStore interface {
	// Enqueue inserts a new queued row and assigns its ID.
	Enqueue(ctx context.Context, pending *domain.PendingMeal) error

	// PeekOldest returns the oldest queued row for the given source
	// without claiming it, or ErrPendingMealNotFound when the queue for
	// that source is empty.
	PeekOldest(ctx context.Context, source domain.MealSource) (*domain.PendingMeal, error)

	// Claim atomically flips the row from queued to processing. The
	// returned status distinguishes winning the claim from losing the
	// race to another worker.
	Claim(ctx context.Context, id int64) (ClaimStatus, error)

	// Requeue returns a processing row to the queue with the given
	// attempt count, after a retryable failure.
	Requeue(ctx context.Context, id int64, attempts int) error

	// Delete removes the row, either because it materialized into a meal
	// or because its attempts are exhausted.
	Delete(ctx context.Context, id int64) error

	// ResetProcessing flips every processing row back to queued. Run at
	// startup to recover rows abandoned by a crashed process.
	ResetProcessing(ctx context.Context) (int64, error)

	// WithTx returns a new PendingMealStore bound to the transaction.
	WithTx(tx *sql.Tx) PendingMealStore
}

// ClarificationStore defines the interface for the clarification queue.
type ClarificationStore interface {
	// Enqueue inserts a new queued clarification and assigns its ID.
	Enqueue(ctx context.Context, c *domain.Clarification) error

	// PeekOldest returns the oldest queued clarification whose referenced
	// meal has the given source, or ErrClarificationNotFound.
	PeekOldest(ctx context.Context, source domain.MealSource) (*domain.Clarification, error)

	// Claim atomically flips the row from queued to processing.
	Claim(ctx context.Context, id int64) (ClaimStatus, error)

	// Requeue returns a processing row to the queue with the given
	// attempt count.
	Requeue(ctx context.Context, id int64, attempts int) error

	// Delete removes the clarification.
	Delete(ctx context.Context, id int64) error

	// ResetProcessing flips every processing row back to queued.
	ResetProcessing(ctx context.Context) (int64, error)

	// WithTx returns a new ClarificationStore bound to the transaction.
	WithTx(tx *sql.Tx) ClarificationStore
}
