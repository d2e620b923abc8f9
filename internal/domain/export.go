package domain

import (
	"errors"
	"time"
)

// ExportStatus is the lifecycle state of a document export job. Unlike
// pending meal rows, export jobs keep a terminal status and are never
// retried automatically.
type ExportStatus string

// Possible export job status values
const (
	ExportStatusQueued     ExportStatus = "queued"
	ExportStatusInProgress ExportStatus = "in_progress"
	ExportStatusDone       ExportStatus = "done"
	ExportStatusError      ExportStatus = "error"
)

// ExportFormat selects the rendered document type.
type ExportFormat string

// Possible export formats
const (
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatDOCX ExportFormat = "docx"
)

// Common validation errors for ExportJob
var (
	ErrEmptyExportOwner    = errors.New("export job owner ID cannot be empty")
	ErrInvalidExportFormat = errors.New("invalid export format")
	ErrEmptyExportSource   = errors.New("export job needs a report reference or a date range")
)

// ExportJob asks the document export worker to render either an existing
// report or a raw date-range summary into a PDF/DOCX file.
type ExportJob struct {
	ID      int64 `json:"id"`
	OwnerID int64 `json:"owner_id"`

	// ReportID references the source report. It is nil for date-range
	// exports, which set From and To instead.
	ReportID *int64     `json:"report_id,omitempty"`
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`

	Format     ExportFormat `json:"format"`
	Status     ExportStatus `json:"status"`
	FilePath   string       `json:"file_path,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// NewReportExportJob creates a queued export of an existing report.
func NewReportExportJob(ownerID, reportID int64, format ExportFormat) (*ExportJob, error) {
	j := &ExportJob{
		OwnerID:   ownerID,
		ReportID:  &reportID,
		Format:    format,
		Status:    ExportStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}

// NewRangeExportJob creates a queued export summarizing meals between from
// and to.
func NewRangeExportJob(ownerID int64, from, to time.Time, format ExportFormat) (*ExportJob, error) {
	j := &ExportJob{
		OwnerID:   ownerID,
		From:      &from,
		To:        &to,
		Format:    format,
		Status:    ExportStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}

// Validate checks if the ExportJob has valid data.
func (j *ExportJob) Validate() error {
	if j.OwnerID == 0 {
		return ErrEmptyExportOwner
	}
	if j.Format != ExportFormatPDF && j.Format != ExportFormatDOCX {
		return ErrInvalidExportFormat
	}
	if j.ReportID == nil && (j.From == nil || j.To == nil) {
		return ErrEmptyExportSource
	}
	return nil
}
