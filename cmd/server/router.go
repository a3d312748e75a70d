package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fennwick/glossa-api/internal/api"
	apiMiddleware "github.com/fennwick/glossa-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	memoryHandler := api.NewMemoryHandler(app.memoryService, app.logger)
	sessionHandler := api.NewSessionHandler(app.sessions, app.logger)
	gazeHandler := api.NewGazeHandler(app.sessions, app.lookupService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/owners/{ownerID}", func(r chi.Router) {
			r.Post("/memory/check", memoryHandler.CheckMemory)
			r.Post("/fragments", memoryHandler.CreateFragment)
			r.Get("/reviews/due", memoryHandler.DueForReview)
			r.Post("/fragments/exclude", memoryHandler.Exclude)
			r.Post("/fragments/master", memoryHandler.Master)
			r.Post("/fragments/{id}/reinforce", memoryHandler.Reinforce)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.OpenSession)
			r.Put("/{id}/config", sessionHandler.UpdateSessionConfig)
			r.Post("/{id}/gaze", gazeHandler.IngestGaze)
			r.Delete("/{id}", sessionHandler.CloseSession)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
