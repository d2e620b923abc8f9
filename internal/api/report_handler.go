package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/platform/logger"
	"github.com/nutrilog/nutrilog-api/internal/service"
)

// ReportService is the report surface the handler needs.
type ReportService interface {
	StartReport(ctx context.Context, ownerID int64, period domain.Period) (*service.ReportStart, error)
	GetReport(ctx context.Context, ownerID, id int64) (*domain.Report, error)
	ListReports(ctx context.Context, ownerID int64) ([]*domain.Report, error)
}

// ReportHandler handles report-related HTTP requests.
type ReportHandler struct {
	reports ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports ReportService, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ReportHandler")
	}
	return &ReportHandler{
		reports: reports,
		logger:  logger.With(slog.String("component", "report_handler")),
	}
}

// reportStartResponse is the body returned by StartReport.
type reportStartResponse struct {
	Status string         `json:"status"`
	Report *domain.Report `json:"report"`
}

// StartReport handles POST /reports/{period}. It returns 202 while
// generation runs and 200 with cached content when nothing changed.
func (h *ReportHandler) StartReport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
		return
	}

	period, err := domain.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "unknown report period")
		return
	}

	result, err := h.reports.StartReport(r.Context(), ownerID, period)
	if err != nil {
		RespondWithErrorAndLog(w, r, log, statusForError(err), "failed to start report", err)
		return
	}

	status := http.StatusAccepted
	if result.Status == service.ReportStartNoChanges {
		status = http.StatusOK
	}
	RespondWithJSON(w, status, reportStartResponse{
		Status: string(result.Status),
		Report: result.Report,
	})
}

// GetReport handles GET /reports/{reportID}.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
		return
	}
	reportID, err := strconv.ParseInt(chi.URLParam(r, "reportID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid report ID")
		return
	}

	report, err := h.reports.GetReport(r.Context(), ownerID, reportID)
	if err != nil {
		RespondWithErrorAndLog(w, r, log, statusForError(err), "failed to get report", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, report)
}

// ListReports handles GET /reports.
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
		return
	}

	reports, err := h.reports.ListReports(r.Context(), ownerID)
	if err != nil {
		RespondWithErrorAndLog(w, r, log, statusForError(err), "failed to list reports", err)
		return
	}
	if reports == nil {
		reports = []*domain.Report{}
	}
	RespondWithJSON(w, http.StatusOK, reports)
}
