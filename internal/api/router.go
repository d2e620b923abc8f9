package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/nutrilog/nutrilog-api/internal/notify"
)

// NewRouter assembles the HTTP surface. The websocket endpoint shares the
// owner middleware so event subscriptions are scoped like everything else.
func NewRouter(
	meals *MealHandler,
	reports *ReportHandler,
	exports *ExportHandler,
	hub *notify.Hub,
) chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(OwnerMiddleware)

		r.Route("/meals", func(r chi.Router) {
			r.Post("/photo", meals.SubmitPhoto)
			r.Post("/text", meals.SubmitText)
			r.Get("/", meals.ListMeals)
			r.Get("/{mealID}", meals.GetMeal)
			r.Delete("/{mealID}", meals.DeleteMeal)
			r.Post("/{mealID}/clarify", meals.SubmitClarification)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", reports.ListReports)
			r.Post("/{period}", reports.StartReport)
			r.Get("/{reportID}", reports.GetReport)
		})

		r.Route("/exports", func(r chi.Router) {
			r.Post("/", exports.CreateExport)
			r.Get("/{jobID}", exports.GetExport)
			r.Get("/{jobID}/file", exports.DownloadExport)
		})

		r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
			ownerID, ok := OwnerFromContext(r.Context())
			if !ok {
				RespondWithError(w, http.StatusUnauthorized, "owner not resolved")
				return
			}
			hub.Subscribe(w, r, ownerID)
		})
	})

	return router
}
