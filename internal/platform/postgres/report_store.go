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

// PostgresReportStore implements store.ReportStore using PostgreSQL.
type PostgresReportStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReportStore creates a new PostgreSQL implementation of the
// ReportStore interface.
func NewPostgresReportStore(db store.DBTX, logger *slog.Logger) *PostgresReportStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReportStore{
		db:     db,
		logger: logger.With(slog.String("component", "report_store")),
	}
}

// Ensure PostgresReportStore implements store.ReportStore
var _ store.ReportStore = (*PostgresReportStore)(nil)

const reportColumns = `id, owner_id, period, period_start_local, name,
	markdown, request_json, calories_checksum, is_processing,
	processing_started_at, created_at`

// Create implements store.ReportStore.Create
func (s *PostgresReportStore) Create(ctx context.Context, report *domain.Report) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO reports (owner_id, period, period_start_local, name,
			markdown, request_json, calories_checksum, is_processing,
			processing_started_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		report.OwnerID,
		report.Period,
		report.PeriodStartLocal,
		report.Name,
		report.Markdown,
		report.RequestJSON,
		report.CaloriesChecksum,
		report.IsProcessing,
		report.ProcessingStartedAt,
		report.CreatedAt,
	).Scan(&report.ID)
	if err != nil {
		log.Error("failed to create report",
			slog.String("error", err.Error()),
			slog.Int64("owner_id", report.OwnerID),
			slog.String("period", string(report.Period)))
		return mapError(err, store.ErrReportNotFound)
	}

	return nil
}

// GetByID implements store.ReportStore.GetByID
func (s *PostgresReportStore) GetByID(ctx context.Context, ownerID, id int64) (*domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE owner_id = $1 AND id = $2`
	row := s.db.QueryRowContext(ctx, query, ownerID, id)
	return scanReport(row)
}

// List implements store.ReportStore.List
func (s *PostgresReportStore) List(ctx context.Context, ownerID int64) ([]*domain.Report, error) {
	query := `SELECT ` + reportColumns + `
		FROM reports
		WHERE owner_id = $1
		ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, mapError(err, store.ErrReportNotFound)
	}
	defer func() { _ = rows.Close() }()

	var reports []*domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reports, nil
}

// FindProcessing implements store.ReportStore.FindProcessing
func (s *PostgresReportStore) FindProcessing(ctx context.Context, ownerID int64, period domain.Period, periodStartLocal time.Time) (*domain.Report, error) {
	query := `SELECT ` + reportColumns + `
		FROM reports
		WHERE owner_id = $1 AND period = $2 AND period_start_local = $3
			AND is_processing
		LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, ownerID, period, periodStartLocal)
	return scanReport(row)
}

// FindLatestReady implements store.ReportStore.FindLatestReady
func (s *PostgresReportStore) FindLatestReady(ctx context.Context, ownerID int64, period domain.Period, periodStartLocal time.Time) (*domain.Report, error) {
	query := `SELECT ` + reportColumns + `
		FROM reports
		WHERE owner_id = $1 AND period = $2 AND period_start_local = $3
			AND NOT is_processing AND markdown IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, ownerID, period, periodStartLocal)
	return scanReport(row)
}

// ClaimNextProcessing implements store.ReportStore.ClaimNextProcessing
func (s *PostgresReportStore) ClaimNextProcessing(ctx context.Context) (*domain.Report, error) {
	query := `SELECT ` + reportColumns + `
		FROM reports
		WHERE is_processing AND markdown IS NULL
		ORDER BY processing_started_at ASC
		LIMIT 1`
	row := s.db.QueryRowContext(ctx, query)
	return scanReport(row)
}

// Complete implements store.ReportStore.Complete
func (s *PostgresReportStore) Complete(ctx context.Context, report *domain.Report) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET markdown = $1, request_json = $2, calories_checksum = $3,
			is_processing = FALSE, created_at = $4
		WHERE id = $5`,
		report.Markdown,
		report.RequestJSON,
		report.CaloriesChecksum,
		report.CreatedAt,
		report.ID,
	)
	if err != nil {
		return mapError(err, store.ErrReportNotFound)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrReportNotFound
	}

	return nil
}

// Delete implements store.ReportStore.Delete
func (s *PostgresReportStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return mapError(err, store.ErrReportNotFound)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrReportNotFound
	}

	return nil
}

// DeleteStaleProcessing implements store.ReportStore.DeleteStaleProcessing
func (s *PostgresReportStore) DeleteStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM reports
		WHERE is_processing AND processing_started_at < $1`, cutoff)
	if err != nil {
		return 0, mapError(err, store.ErrReportNotFound)
	}

	return result.RowsAffected()
}

// DeleteAllProcessing implements store.ReportStore.DeleteAllProcessing
func (s *PostgresReportStore) DeleteAllProcessing(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE is_processing`)
	if err != nil {
		return 0, mapError(err, store.ErrReportNotFound)
	}

	return result.RowsAffected()
}

// WithTx implements store.ReportStore.WithTx
func (s *PostgresReportStore) WithTx(tx *sql.Tx) store.ReportStore {
	return &PostgresReportStore{db: tx, logger: s.logger}
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var r domain.Report
	err := row.Scan(
		&r.ID,
		&r.OwnerID,
		&r.Period,
		&r.PeriodStartLocal,
		&r.Name,
		&r.Markdown,
		&r.RequestJSON,
		&r.CaloriesChecksum,
		&r.IsProcessing,
		&r.ProcessingStartedAt,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, store.ErrReportNotFound)
	}
	return &r, nil
}
