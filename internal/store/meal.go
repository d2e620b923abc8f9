package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/domain"
)

// MealStore defines the interface for permanent meal persistence.
type MealStore interface {
	// Create saves a new meal to the store and assigns its ID.
	// It handles domain validation internally.
	Create(ctx context.Context, meal *domain.Meal) error

	// GetByID retrieves a meal owned by ownerID.
	// Returns ErrMealNotFound if the meal does not exist.
	GetByID(ctx context.Context, ownerID, id int64) (*domain.Meal, error)

	// Update saves changes to an existing meal.
	// Returns ErrMealNotFound if the meal does not exist.
	Update(ctx context.Context, meal *domain.Meal) error

	// Delete removes a meal owned by ownerID.
	// Returns ErrMealNotFound if the meal does not exist.
	Delete(ctx context.Context, ownerID, id int64) error

	// ListBetween retrieves meals for an owner with CreatedAt in
	// [from, to], oldest first. A zero `to` means "until now".
	ListBetween(ctx context.Context, ownerID int64, from, to time.Time) ([]*domain.Meal, error)

	// SumCaloriesBetween sums CaloriesKcal over the same window. It backs
	// the report cache checksum, so it must be cheap relative to report
	// generation.
	SumCaloriesBetween(ctx context.Context, ownerID int64, from, to time.Time) (float64, error)

	// WithTx returns a new MealStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) MealStore
}
