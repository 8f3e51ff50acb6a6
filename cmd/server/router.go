package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/recruit-summary/internal/api"
	apiMiddleware "github.com/phrazzld/recruit-summary/internal/api/middleware"
)

// setupRouter creates the router with the standard middleware, the intake
// and form routes under /api, the operator routes and a health check.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	r.Route("/api", func(r chi.Router) {
		app.submissionHandler.Mount(r)
		app.formHandler.Mount(r)
	})
	r.Route(api.MonitoringPrefix, app.monitoringHandler.Mount)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
