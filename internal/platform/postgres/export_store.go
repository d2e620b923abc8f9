package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/platform/logger"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

// PostgresExportJobStore implements store.ExportJobStore using PostgreSQL.
type PostgresExportJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresExportJobStore creates a new PostgreSQL implementation of the
// ExportJobStore interface.
func NewPostgresExportJobStore(db store.DBTX, logger *slog.Logger) *PostgresExportJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresExportJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "export_job_store")),
	}
}

// Ensure PostgresExportJobStore implements store.ExportJobStore
var _ store.ExportJobStore = (*PostgresExportJobStore)(nil)

const exportJobColumns = `id, owner_id, report_id, from_at, to_at, format,
	status, file_path, created_at, finished_at`

// Enqueue implements store.ExportJobStore.Enqueue
func (s *PostgresExportJobStore) Enqueue(ctx context.Context, job *domain.ExportJob) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("export job validation failed during enqueue",
			slog.String("error", err.Error()),
			slog.Int64("owner_id", job.OwnerID))
		return err
	}

	query := `
		INSERT INTO export_jobs (owner_id, report_id, from_at, to_at, format,
			status, file_path, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		job.OwnerID,
		job.ReportID,
		job.From,
		job.To,
		job.Format,
		job.Status,
		job.FilePath,
		job.CreatedAt,
		job.FinishedAt,
	).Scan(&job.ID)
	if err != nil {
		log.Error("failed to enqueue export job",
			slog.String("error", err.Error()),
			slog.Int64("owner_id", job.OwnerID))
		return mapError(err, store.ErrExportJobNotFound)
	}

	return nil
}

// GetByID implements store.ExportJobStore.GetByID
func (s *PostgresExportJobStore) GetByID(ctx context.Context, ownerID, id int64) (*domain.ExportJob, error) {
	query := `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE owner_id = $1 AND id = $2`
	row := s.db.QueryRowContext(ctx, query, ownerID, id)
	return scanExportJob(row)
}

// PeekOldestQueued implements store.ExportJobStore.PeekOldestQueued
func (s *PostgresExportJobStore) PeekOldestQueued(ctx context.Context) (*domain.ExportJob, error) {
	query := `SELECT ` + exportJobColumns + `
		FROM export_jobs
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, domain.ExportStatusQueued)
	return scanExportJob(row)
}

// Claim implements store.ExportJobStore.Claim
func (s *PostgresExportJobStore) Claim(ctx context.Context, id int64) (store.ClaimStatus, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE export_jobs SET status = $1
		WHERE id = $2 AND status = $3`,
		domain.ExportStatusInProgress, id, domain.ExportStatusQueued)
	if err != nil {
		return store.ClaimLostRace, mapError(err, store.ErrExportJobNotFound)
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

// Finish implements store.ExportJobStore.Finish
func (s *PostgresExportJobStore) Finish(ctx context.Context, job *domain.ExportJob) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE export_jobs
		SET status = $1, file_path = $2, finished_at = $3
		WHERE id = $4`,
		job.Status, job.FilePath, job.FinishedAt, job.ID)
	if err != nil {
		return mapError(err, store.ErrExportJobNotFound)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrExportJobNotFound
	}

	return nil
}

// ResetInProgress implements store.ExportJobStore.ResetInProgress
func (s *PostgresExportJobStore) ResetInProgress(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE export_jobs SET status = $1
		WHERE status = $2`,
		domain.ExportStatusQueued, domain.ExportStatusInProgress)
	if err != nil {
		return 0, mapError(err, store.ErrExportJobNotFound)
	}

	return result.RowsAffected()
}

// WithTx implements store.ExportJobStore.WithTx
func (s *PostgresExportJobStore) WithTx(tx *sql.Tx) store.ExportJobStore {
	return &PostgresExportJobStore{db: tx, logger: s.logger}
}

func scanExportJob(row rowScanner) (*domain.ExportJob, error) {
	var j domain.ExportJob
	err := row.Scan(
		&j.ID,
		&j.OwnerID,
		&j.ReportID,
		&j.From,
		&j.To,
		&j.Format,
		&j.Status,
		&j.FilePath,
		&j.CreatedAt,
		&j.FinishedAt,
	)
	if err != nil {
		return nil, mapError(err, store.ErrExportJobNotFound)
	}
	return &j, nil
}
