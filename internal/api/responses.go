// Package api provides the HTTP surface: thin handlers that validate input,
// call a service, and translate errors. All slow work happens in the
// background workers.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondWithJSON writes a JSON response with the given status code.
func RespondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// RespondWithError writes a JSON error envelope with a client-safe message.
func RespondWithError(w http.ResponseWriter, status int, message string) {
	RespondWithJSON(w, status, ErrorResponse{Error: message})
}

// RespondWithErrorAndLog writes a sanitized error envelope and logs the full
// error server-side.
func RespondWithErrorAndLog(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, userMessage string, err error) {
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []slog.Attr{
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status_code", status),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.LogAttrs(r.Context(), level, "API error response", attrs...)

	RespondWithError(w, status, userMessage)
}

// statusForError maps service errors to HTTP status codes. Validation errors
// from the domain layer are client mistakes; unknown errors stay opaque 500s.
func statusForError(err error) int {
	switch {
	case store.IsNotFoundError(err):
		return http.StatusNotFound
	case isValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isValidationError(err error) bool {
	validation := []error{
		domain.ErrEmptyMealOwner,
		domain.ErrInvalidMealSource,
		domain.ErrEmptyPendingOwner,
		domain.ErrEmptyPendingPayload,
		domain.ErrEmptyClarifyNote,
		domain.ErrEmptyClarifyMeal,
		domain.ErrInvalidPeriod,
		domain.ErrEmptyExportOwner,
		domain.ErrInvalidExportFormat,
		domain.ErrEmptyExportSource,
	}
	for _, v := range validation {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
