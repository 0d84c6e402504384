package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/tenant-control-plane/app"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Business-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	// API v1 routes. The audit middleware wraps authorization so every
	// request below this point produces exactly one audit entry, denials
	// included.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.AuditMiddleware.Audit)
		r.Use(deps.AuthMiddleware.Authorize)

		r.Get("/me", deps.MeHandler.HandleMe)

		r.Route("/documents/{collection}", func(r chi.Router) {
			r.With(deps.Guards.RequirePermission("documents.view")).
				Post("/query", deps.DocumentHandler.HandleQuery)
			r.With(deps.Guards.RequirePermission("documents.view")).
				Get("/{id}", deps.DocumentHandler.HandleGet)

			r.With(
				deps.Guards.RequirePermission("documents.edit"),
				deps.Guards.CheckUsageLimit("documents", "maxDocuments"),
			).Post("/", deps.DocumentHandler.HandleCreate)

			r.With(deps.Guards.RequirePermission("documents.edit")).
				Put("/{id}", deps.DocumentHandler.HandleUpdate)
			r.With(deps.Guards.RequirePermission("documents.edit")).
				Delete("/{id}", deps.DocumentHandler.HandleDelete)

			r.With(
				deps.Guards.RequirePermission("documents.edit"),
				deps.Guards.RequireFeature("bulk_operations"),
				deps.Guards.CheckUsageLimit("documents", "maxDocuments"),
			).Post("/batch", deps.DocumentHandler.HandleBatch)
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
