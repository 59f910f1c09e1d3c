package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/governed-notebook/app"
	"github.com/upb/governed-notebook/handlers"
	"github.com/upb/governed-notebook/middleware"
	"github.com/upb/governed-notebook/utils"
)

// SetupRoutes configures the kernel gateway routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware. No request timeout: a cell runs until it finishes or
	// the hub disconnects.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	checks := []handlers.Dependency{{Name: "data_store", Checker: deps.Session}}
	if deps.AuditDB != nil {
		checks = append(checks, handlers.Dependency{Name: "audit_store", Checker: deps.AuditDB})
	}
	health := handlers.NewHealthHandler(deps.Logger, checks...)
	cells := handlers.NewCellHandler(deps.Session, deps.Logger)
	history := handlers.NewAuditHandler(deps.History, deps.Session.Identity().Username, deps.Logger)

	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Config.Observability.MetricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)

		r.Post("/cells", cells.HandleExecute)

		r.Route("/audit", func(r chi.Router) {
			r.Get("/logs", history.HandleList)
			r.Get("/search", history.HandleSearch)
			r.Get("/stats", history.HandleStats)
			r.Get("/daily", history.HandleDaily)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
