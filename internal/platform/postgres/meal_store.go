package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/platform/logger"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

// PostgresMealStore implements the store.MealStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMealStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMealStore creates a new PostgreSQL implementation of the
// MealStore interface. If logger is nil, a default logger will be used.
func NewPostgresMealStore(db store.DBTX, logger *slog.Logger) *PostgresMealStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMealStore{
		db:     db,
		logger: logger.With(slog.String("component", "meal_store")),
	}
}

// Ensure PostgresMealStore implements store.MealStore
var _ store.MealStore = (*PostgresMealStore)(nil)

const mealColumns = `id, owner_id, source, created_at, dish_name,
	ingredients_json, products_json, weight_g, proteins_g, fats_g, carbs_g,
	calories_kcal, confidence, snapshot_json, clarify_note, image_bytes, image_mime`

// Create implements store.MealStore.Create
func (s *PostgresMealStore) Create(ctx context.Context, meal *domain.Meal) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := meal.Validate(); err != nil {
		log.Warn("meal validation failed during create",
			slog.String("error", err.Error()),
			slog.Int64("owner_id", meal.OwnerID))
		return err
	}

	query := `
		INSERT INTO meals (owner_id, source, created_at, dish_name,
			ingredients_json, products_json, weight_g, proteins_g, fats_g,
			carbs_g, calories_kcal, confidence, snapshot_json, clarify_note,
			image_bytes, image_mime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		meal.OwnerID,
		meal.Source,
		meal.CreatedAt,
		meal.DishName,
		meal.IngredientsJSON,
		meal.ProductsJSON,
		meal.WeightG,
		meal.ProteinsG,
		meal.FatsG,
		meal.CarbsG,
		meal.CaloriesKcal,
		meal.Confidence,
		meal.SnapshotJSON,
		meal.ClarifyNote,
		meal.ImageBytes,
		meal.ImageMime,
	).Scan(&meal.ID)
	if err != nil {
		log.Error("failed to create meal",
			slog.String("error", err.Error()),
			slog.Int64("owner_id", meal.OwnerID))
		return mapError(err, store.ErrMealNotFound)
	}

	return nil
}

// GetByID implements store.MealStore.GetByID
func (s *PostgresMealStore) GetByID(ctx context.Context, ownerID, id int64) (*domain.Meal, error) {
	query := `SELECT ` + mealColumns + ` FROM meals WHERE owner_id = $1 AND id = $2`
	row := s.db.QueryRowContext(ctx, query, ownerID, id)
	return scanMeal(row)
}

// Update implements store.MealStore.Update
func (s *PostgresMealStore) Update(ctx context.Context, meal *domain.Meal) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := meal.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE meals
		SET created_at = $1, dish_name = $2, ingredients_json = $3,
			products_json = $4, weight_g = $5, proteins_g = $6, fats_g = $7,
			carbs_g = $8, calories_kcal = $9, confidence = $10,
			snapshot_json = $11, clarify_note = $12
		WHERE owner_id = $13 AND id = $14
	`
	result, err := s.db.ExecContext(ctx, query,
		meal.CreatedAt,
		meal.DishName,
		meal.IngredientsJSON,
		meal.ProductsJSON,
		meal.WeightG,
		meal.ProteinsG,
		meal.FatsG,
		meal.CarbsG,
		meal.CaloriesKcal,
		meal.Confidence,
		meal.SnapshotJSON,
		meal.ClarifyNote,
		meal.OwnerID,
		meal.ID,
	)
	if err != nil {
		log.Error("failed to update meal",
			slog.String("error", err.Error()),
			slog.Int64("meal_id", meal.ID))
		return mapError(err, store.ErrMealNotFound)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrMealNotFound
	}

	return nil
}

// Delete implements store.MealStore.Delete
func (s *PostgresMealStore) Delete(ctx context.Context, ownerID, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM meals WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return mapError(err, store.ErrMealNotFound)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrMealNotFound
	}

	return nil
}

// ListBetween implements store.MealStore.ListBetween
func (s *PostgresMealStore) ListBetween(ctx context.Context, ownerID int64, from, to time.Time) ([]*domain.Meal, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}

	query := `SELECT ` + mealColumns + `
		FROM meals
		WHERE owner_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, ownerID, from, to)
	if err != nil {
		return nil, mapError(err, store.ErrMealNotFound)
	}
	defer func() { _ = rows.Close() }()

	var meals []*domain.Meal
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, meal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return meals, nil
}

// SumCaloriesBetween implements store.MealStore.SumCaloriesBetween
func (s *PostgresMealStore) SumCaloriesBetween(ctx context.Context, ownerID int64, from, to time.Time) (float64, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}

	var sum float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(calories_kcal), 0)
		FROM meals
		WHERE owner_id = $1 AND created_at >= $2 AND created_at <= $3`,
		ownerID, from, to,
	).Scan(&sum)
	if err != nil {
		return 0, mapError(err, store.ErrMealNotFound)
	}

	return sum, nil
}

// WithTx implements store.MealStore.WithTx
func (s *PostgresMealStore) WithTx(tx *sql.Tx) store.MealStore {
	return &PostgresMealStore{db: tx, logger: s.logger}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeal(row rowScanner) (*domain.Meal, error) {
	var m domain.Meal
	err := row.Scan(
		&m.ID,
		&m.OwnerID,
		&m.Source,
		&m.CreatedAt,
		&m.DishName,
		&m.IngredientsJSON,
		&m.ProductsJSON,
		&m.WeightG,
		&m.ProteinsG,
		&m.FatsG,
		&m.CarbsG,
		&m.CaloriesKcal,
		&m.Confidence,
		&m.SnapshotJSON,
		&m.ClarifyNote,
		&m.ImageBytes,
		&m.ImageMime,
	)
	if err != nil {
		return nil, mapError(err, store.ErrMealNotFound)
	}
	return &m, nil
}
