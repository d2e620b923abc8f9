package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/platform/logger"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

// PostgresPendingMealStore implements store.PendingMealStore using
// PostgreSQL. Claiming is a single conditional update so concurrent workers
// cannot double-claim a row.
type PostgresPendingMealStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPendingMealStore creates a new PostgreSQL implementation of
// the PendingMealStore interface.
func NewPostgresPendingMealStore(db store.DBTX, logger *slog.Logger) *PostgresPendingMealStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPendingMealStore{
		db:     db,
		logger: logger.With(slog.String("component", "pending_meal_store")),
	}
}

// Ensure PostgresPendingMealStore implements store.PendingMealStore
var _ store.PendingMealStore = (*PostgresPendingMealStore)(nil)

const pendingMealColumns = `id, owner_id, source, image_bytes, image_mime,
	description, clarify_note, desired_at, status, attempts, created_at`

// Enqueue implements store.PendingMealStore.Enqueue
func (s *PostgresPendingMealStore) Enqueue(ctx context.Context, pending *domain.PendingMeal) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := pending.Validate(); err != nil {
		log.Warn("pending meal validation failed during enqueue",
			slog.String("error", err.Error()),
			slog.Int64("owner_id", pending.OwnerID))
		return err
	}

	query := `
		INSERT INTO pending_meals (owner_id, source, image_bytes, image_mime,
			description, clarify_note, desired_at, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		pending.OwnerID,
		pending.Source,
		pending.ImageBytes,
		pending.ImageMime,
		pending.Description,
		pending.ClarifyNote,
		pending.DesiredAt,
		pending.Status,
		pending.Attempts,
		pending.CreatedAt,
	).Scan(&pending.ID)
	if err != nil {
		log.Error("failed to enqueue pending meal",
			slog.String("error", err.Error()),
			slog.Int64("owner_id", pending.OwnerID))
		return mapError(err, store.ErrPendingMealNotFound)
	}

	return nil
}

// PeekOldest implements store.PendingMealStore.PeekOldest
func (s *PostgresPendingMealStore) PeekOldest(ctx context.Context, source domain.MealSource) (*domain.PendingMeal, error) {
	query := `SELECT ` + pendingMealColumns + `
		FROM pending_meals
		WHERE source = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, source, domain.JobStatusQueued)
	return scanPendingMeal(row)
}

// Claim implements store.PendingMealStore.Claim. The conditional update is
// the claim: at most one caller observes an affected row.
func (s *PostgresPendingMealStore) Claim(ctx context.Context, id int64) (store.ClaimStatus, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE pending_meals SET status = $1
		WHERE id = $2 AND status = $3`,
		domain.JobStatusProcessing, id, domain.JobStatusQueued)
	if err != nil {
		return store.ClaimLostRace, mapError(err, store.ErrPendingMealNotFound)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return store.ClaimLostRace, err
	}
	if affected == 0 {
		return store.ClaimLostRace, nil
	}

	return store.ClaimWon, nil
}

// Requeue implements store.PendingMealStore.Requeue
func (s *PostgresPendingMealStore) Requeue(ctx context.Context, id int64, attempts int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE pending_meals SET status = $1, attempts = $2
		WHERE id = $3`,
		domain.JobStatusQueued, attempts, id)
	if err != nil {
		return mapError(err, store.ErrPendingMealNotFound)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrPendingMealNotFound
	}

	return nil
}

// Delete implements store.PendingMealStore.Delete
func (s *PostgresPendingMealStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_meals WHERE id = $1`, id)
	if err != nil {
		return mapError(err, store.ErrPendingMealNotFound)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrPendingMealNotFound
	}

	return nil
}

// ResetProcessing implements store.PendingMealStore.ResetProcessing
func (s *PostgresPendingMealStore) ResetProcessing(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE pending_meals SET status = $1
		WHERE status = $2`,
		domain.JobStatusQueued, domain.JobStatusProcessing)
	if err != nil {
		return 0, mapError(err, store.ErrPendingMealNotFound)
	}

	return result.RowsAffected()
}

// WithTx implements store.PendingMealStore.WithTx
func (s *PostgresPendingMealStore) WithTx(tx *sql.Tx) store.PendingMealStore {
	return &PostgresPendingMealStore{db: tx, logger: s.logger}
}

func scanPendingMeal(row rowScanner) (*domain.PendingMeal, error) {
	var p domain.PendingMeal
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Source,
		&p.ImageBytes,
		&p.ImageMime,
		&p.Description,
		&p.ClarifyNote,
		&p.DesiredAt,
		&p.Status,
		&p.Attempts,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, store.ErrPendingMealNotFound)
	}
	return &p, nil
}
