package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lexigo/wordbook-worker/internal/api"
	apiMiddleware "github.com/lexigo/wordbook-worker/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	jobHandler := api.NewJobHandler(app.jobStore, app.worker.Running)

	// Register routes
	r.Route("/api/jobs", func(r chi.Router) {
		r.Post("/", jobHandler.CreateJob)
		r.Get("/", jobHandler.ListJobs)
		r.Get("/{jobID}", jobHandler.GetJob)
		r.Post("/{jobID}/cancel", jobHandler.CancelJob)
		r.Post("/{jobID}/restart", jobHandler.RestartJob)
		r.Post("/{jobID}/finalize", jobHandler.FinalizeJob)
	})

	// Health check endpoint
	r.Get("/health", jobHandler.Health)

	return r
}
