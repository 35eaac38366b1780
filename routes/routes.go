package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hrops/policy-engine/app"
	"github.com/hrops/policy-engine/handlers"
	"github.com/hrops/policy-engine/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", handlers.StatusHandler(deps))

		// Request evaluation
		r.Post("/evaluate", handlers.EvaluateHandler(deps))
		r.Post("/evaluate/batch", handlers.BatchEvaluateHandler(deps))

		// Policy management
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", handlers.ListPoliciesHandler(deps))
			r.Post("/", handlers.CreatePolicyHandler(deps))
			r.Get("/{id}", handlers.GetPolicyHandler(deps))
			r.Delete("/{id}", handlers.DeletePolicyHandler(deps))
			r.Post("/{id}/versions/{version}/activate", handlers.ActivatePolicyHandler(deps))
			r.Post("/{id}/versions/{version}/retire", handlers.RetirePolicyHandler(deps))
		})

		// Field schema
		r.Route("/schema", func(r chi.Router) {
			r.Get("/", handlers.GetSchemaHandler(deps))
			r.Put("/", handlers.PutSchemaHandler(deps))
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
