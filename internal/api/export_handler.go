package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/platform/logger"
)

// ExportService is the export surface the handler needs.
type ExportService interface {
	ExportReport(ctx context.Context, ownerID, reportID int64, format domain.ExportFormat) (*domain.ExportJob, error)
	ExportRange(ctx context.Context, ownerID int64, from, to time.Time, format domain.ExportFormat) (*domain.ExportJob, error)
	GetJob(ctx context.Context, ownerID, id int64) (*domain.ExportJob, error)
}

// ExportHandler handles document export HTTP requests.
type ExportHandler struct {
	exports ExportService
	logger  *slog.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exports ExportService, logger *slog.Logger) *ExportHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ExportHandler")
	}
	return &ExportHandler{
		exports: exports,
		logger:  logger.With(slog.String("component", "export_handler")),
	}
}

// createExportRequest is the body of POST /exports. Either ReportID or both
// From and To (YYYY-MM-DD) must be set.
type createExportRequest struct {
	ReportID *int64 `json:"report_id,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Format   string `json:"format"`
}

// CreateExport handles POST /exports.
func (h *ExportHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
		return
	}

	var req createExportRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondWithErrorAndLog(w, r, log, http.StatusBadRequest, "invalid request body", err)
		return
	}

	format := domain.ExportFormat(req.Format)
	var job *domain.ExportJob
	var err error
	switch {
	case req.ReportID != nil:
		job, err = h.exports.ExportReport(r.Context(), ownerID, *req.ReportID, format)
	case req.From != "" && req.To != "":
		var from, to time.Time
		if from, err = parseDateParam(req.From); err != nil {
			RespondWithError(w, http.StatusBadRequest, "invalid 'from' date")
			return
		}
		if to, err = parseDateParam(req.To); err != nil {
			RespondWithError(w, http.StatusBadRequest, "invalid 'to' date")
			return
		}
		job, err = h.exports.ExportRange(r.Context(), ownerID, from, to, format)
	default:
		RespondWithError(w, http.StatusBadRequest, "either report_id or a from/to range is required")
		return
	}
	if err != nil {
		RespondWithErrorAndLog(w, r, log, statusForError(err), "failed to queue export", err)
		return
	}

	RespondWithJSON(w, http.StatusAccepted, job)
}

// GetExport handles GET /exports/{jobID}.
func (h *ExportHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
		return
	}
	jobID, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid export job ID")
		return
	}

	job, err := h.exports.GetJob(r.Context(), ownerID, jobID)
	if err != nil {
		RespondWithErrorAndLog(w, r, log, statusForError(err), "failed to get export job", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, job)
}

// DownloadExport handles GET /exports/{jobID}/file, streaming the rendered
// document of a finished job.
func (h *ExportHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
		return
	}
	jobID, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid export job ID")
		return
	}

	job, err := h.exports.GetJob(r.Context(), ownerID, jobID)
	if err != nil {
		RespondWithErrorAndLog(w, r, log, statusForError(err), "failed to get export job", err)
		return
	}
	if job.Status != domain.ExportStatusDone || job.FilePath == "" {
		RespondWithError(w, http.StatusConflict, "export is not finished")
		return
	}

	switch job.Format {
	case domain.ExportFormatPDF:
		w.Header().Set("Content-Type", "application/pdf")
	case domain.ExportFormatDOCX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	}
	http.ServeFile(w, r, job.FilePath)
}
