package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.SetHeader("Content-Type", "application/json"))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Use(UserContext)

			r.Get("/preferences", s.handleLoadPreferences)     // GET /api/v1/users/{userID}/preferences
			r.Patch("/preferences", s.handlePatchPreferences)  // PATCH /api/v1/users/{userID}/preferences
			r.Delete("/preferences", s.handleResetPreferences) // DELETE /api/v1/users/{userID}/preferences

			r.Post("/history/{category}", s.handleRecordHistory)

			r.Get("/last-shown-car", s.handleGetLastShownCar)
			r.Put("/last-shown-car", s.handleSetLastShownCar)
		})
	})
}
