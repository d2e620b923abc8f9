package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/platform/logger"
)

// maxPhotoBytes bounds uploaded photo size.
const maxPhotoBytes = 10 << 20

// MealService is the meal surface the handler needs.
type MealService interface {
	SubmitPhoto(ctx context.Context, ownerID int64, image []byte, mime, note string) (*domain.PendingMeal, error)
	SubmitText(ctx context.Context, ownerID int64, description string) (*domain.PendingMeal, error)
	SubmitClarification(ctx context.Context, ownerID, mealID int64, note string, newTime *time.Time) (*domain.Clarification, error)
	ListMeals(ctx context.Context, ownerID int64, from, to time.Time) ([]*domain.Meal, error)
	GetMeal(ctx context.Context, ownerID, id int64) (*domain.Meal, error)
	DeleteMeal(ctx context.Context, ownerID, id int64) error
}

// MealHandler handles meal-related HTTP requests.
type MealHandler struct {
	meals  MealService
	logger *slog.Logger
}

// NewMealHandler creates a new MealHandler.
func NewMealHandler(meals MealService, logger *slog.Logger) *MealHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for MealHandler")
	}
	return &MealHandler{
		meals:  meals,
		logger: logger.With(slog.String("component", "meal_handler")),
	}
}

// submitTextRequest is the body of POST /meals/text.
type submitTextRequest struct {
	Description string `json:"description"`
}

// submitClarifyRequest is the body of POST /meals/{mealID}/clarify.
type submitClarifyRequest struct {
	Note    string     `json:"note"`
	NewTime *time.Time `json:"new_time,omitempty"`
}

// pendingResponse acknowledges queued work.
type pendingResponse struct {
	PendingID int64  `json:"pending_id"`
	Status    string `json:"status"`
}

// SubmitPhoto handles POST /meals/photo as a multipart upload with a "photo"
// file part and an optional "note" field.
func (h *MealHandler) SubmitPhoto(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
		return
	}

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		RespondWithErrorAndLog(w, r, log, http.StatusBadRequest, "invalid multipart form", err)
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		RespondWithErrorAndLog(w, r, log, http.StatusBadRequest, "missing photo file", err)
		return
	}
	defer func() { _ = file.Close() }()

	image, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes))
	if err != nil {
		RespondWithErrorAndLog(w, r, log, http.StatusInternalServerError, "failed to read photo", err)
		return
	}

	pending, err := h.meals.SubmitPhoto(r.Context(), ownerID, image,
		header.Header.Get("Content-Type"), r.FormValue("note"))
	if err != nil {
		RespondWithErrorAndLog(w, r, log, statusForError(err), "failed to queue photo", err)
		return
	}

	RespondWithJSON(w, http.StatusAccepted, pendingResponse{PendingID: pending.ID, Status: string(pending.Status)})
}

// SubmitText handles POST /meals/text.
func (h *MealHandler) SubmitText(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
		return
	}

	var req submitTextRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondWithErrorAndLog(w, r, log, http.StatusBadRequest, "invalid request body", err)
		return
	}

	pending, err := h.meals.SubmitText(r.Context(), ownerID, req.Description)
	if err != nil {
		RespondWithErrorAndLog(w, r, log, statusForError(err), "failed to queue description", err)
		return
	}

	RespondWithJSON(w, http.StatusAccepted, pendingResponse{PendingID: pending.ID, Status: string(pending.Status)})
}

// SubmitClarification handles POST /meals/{mealID}/clarify.
func (h *MealHandler) SubmitClarification(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
		return
	}
	mealID, err := strconv.ParseInt(chi.URLParam(r, "mealID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid meal ID")
		return
	}

	var req submitClarifyRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondWithErrorAndLog(w, r, log, http.StatusBadRequest, "invalid request body", err)
		return
	}

	clarification, err := h.meals.SubmitClarification(r.Context(), ownerID, mealID, req.Note, req.NewTime)
	if err != nil {
		RespondWithErrorAndLog(w, r, log, statusForError(err), "failed to queue clarification", err)
		return
	}

	RespondWithJSON(w, http.StatusAccepted, pendingResponse{PendingID: clarification.ID, Status: string(clarification.Status)})
}

// ListMeals handles GET /meals?from=RFC3339&to=RFC3339.
func (h *MealHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
		return
	}

	from, err := parseTimeParam(r, "from")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid 'from' timestamp")
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid 'to' timestamp")
		return
	}

	meals, err := h.meals.ListMeals(r.Context(), ownerID, from, to)
	if err != nil {
		RespondWithErrorAndLog(w, r, log, statusForError(err), "failed to list meals", err)
		return
	}
	if meals == nil {
		meals = []*domain.Meal{}
	}
	RespondWithJSON(w, http.StatusOK, meals)
}

// GetMeal handles GET /meals/{mealID}.
func (h *MealHandler) GetMeal(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
		return
	}
	mealID, err := strconv.ParseInt(chi.URLParam(r, "mealID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid meal ID")
		return
	}

	meal, err := h.meals.GetMeal(r.Context(), ownerID, mealID)
	if err != nil {
		RespondWithErrorAndLog(w, r, log, statusForError(err), "failed to get meal", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, meal)
}

// DeleteMeal handles DELETE /meals/{mealID}.
func (h *MealHandler) DeleteMeal(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
		return
	}
	mealID, err := strconv.ParseInt(chi.URLParam(r, "mealID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid meal ID")
		return
	}

	if err := h.meals.DeleteMeal(r.Context(), ownerID, mealID); err != nil {
		RespondWithErrorAndLog(w, r, log, statusForError(err), "failed to delete meal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
