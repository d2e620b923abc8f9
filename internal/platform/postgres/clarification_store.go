package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/platform/logger"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

// PostgresClarificationStore implements store.ClarificationStore using
// PostgreSQL.
type PostgresClarificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresClarificationStore creates a new PostgreSQL implementation of
// the ClarificationStore interface.
func NewPostgresClarificationStore(db store.DBTX, logger *slog.Logger) *PostgresClarificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresClarificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "clarification_store")),
	}
}

// Ensure PostgresClarificationStore implements store.ClarificationStore
var _ store.ClarificationStore = (*PostgresClarificationStore)(nil)

// Enqueue implements store.ClarificationStore.Enqueue
func (s *PostgresClarificationStore) Enqueue(ctx context.Context, c *domain.Clarification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := c.Validate(); err != nil {
		log.Warn("clarification validation failed during enqueue",
			slog.String("error", err.Error()),
			slog.Int64("owner_id", c.OwnerID))
		return err
	}

	query := `
		INSERT INTO clarifications (owner_id, meal_id, note, new_time,
			status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		c.OwnerID,
		c.MealID,
		c.Note,
		c.NewTime,
		c.Status,
		c.Attempts,
		c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		log.Error("failed to enqueue clarification",
			slog.String("error", err.Error()),
			slog.Int64("owner_id", c.OwnerID),
			slog.Int64("meal_id", c.MealID))
		return mapError(err, store.ErrClarificationNotFound)
	}

	return nil
}

// PeekOldest implements store.ClarificationStore.PeekOldest. The join
// restricts the queue to clarifications whose referenced meal has the given
// source, so the photo and text workers each drain their own slice.
func (s *PostgresClarificationStore) PeekOldest(ctx context.Context, source domain.MealSource) (*domain.Clarification, error) {
	query := `
		SELECT c.id, c.owner_id, c.meal_id, c.note, c.new_time, c.status,
			c.attempts, c.created_at
		FROM clarifications c
		JOIN meals m ON m.owner_id = c.owner_id AND m.id = c.meal_id
		WHERE c.status = $1 AND m.source = $2
		ORDER BY c.created_at ASC
		LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, domain.JobStatusQueued, source)
	return scanClarification(row)
}

// Claim implements store.ClarificationStore.Claim
func (s *PostgresClarificationStore) Claim(ctx context.Context, id int64) (store.ClaimStatus, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE clarifications SET status = $1
		WHERE id = $2 AND status = $3`,
		domain.JobStatusProcessing, id, domain.JobStatusQueued)
	if err != nil {
		return store.ClaimLostRace, mapError(err, store.ErrClarificationNotFound)
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

// Requeue implements store.ClarificationStore.Requeue
func (s *PostgresClarificationStore) Requeue(ctx context.Context, id int64, attempts int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE clarifications SET status = $1, attempts = $2
		WHERE id = $3`,
		domain.JobStatusQueued, attempts, id)
	if err != nil {
		return mapError(err, store.ErrClarificationNotFound)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrClarificationNotFound
	}

	return nil
}

// Delete implements store.ClarificationStore.Delete
func (s *PostgresClarificationStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM clarifications WHERE id = $1`, id)
	if err != nil {
		return mapError(err, store.ErrClarificationNotFound)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrClarificationNotFound
	}

	return nil
}

// ResetProcessing implements store.ClarificationStore.ResetProcessing
func (s *PostgresClarificationStore) ResetProcessing(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE clarifications SET status = $1
		WHERE status = $2`,
		domain.JobStatusQueued, domain.JobStatusProcessing)
	if err != nil {
		return 0, mapError(err, store.ErrClarificationNotFound)
	}

	return result.RowsAffected()
}

// WithTx implements store.ClarificationStore.WithTx
func (s *PostgresClarificationStore) WithTx(tx *sql.Tx) store.ClarificationStore {
	return &PostgresClarificationStore{db: tx, logger: s.logger}
}

func scanClarification(row rowScanner) (*domain.Clarification, error) {
	var c domain.Clarification
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.MealID,
		&c.Note,
		&c.NewTime,
		&c.Status,
		&c.Attempts,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, store.ErrClarificationNotFound)
	}
	return &c, nil
}
