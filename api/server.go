/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the (external) frontend

ROUTE GROUPS:
  /api/members/*     Roster management
  /api/settings      Invoice context
  /api/summary,rows,report,recompute  Committed results
  /api/snapshot/*    Persistence exchange
  /api/scenarios/*   Demo scenarios
  /api/status        Operational state
  /health            Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Roster routes
		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Get("/{memberID}", h.GetMember)
			r.Put("/{memberID}", h.UpdateMember)
			r.Delete("/{memberID}", h.DeleteMember)
		})

		// Settings routes
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		// Result routes
		r.Route("/summary", func(r chi.Router) {
			r.Get("/", h.GetSummary)
			r.Get("/projection", h.GetProjection)
		})
		r.Get("/rows", h.GetRows)
		r.Get("/report", h.GetReport)
		r.Post("/recompute", h.Recompute)

		// Snapshot routes
		r.Route("/snapshot", func(r chi.Router) {
			r.Post("/save", h.SaveSnapshot)
			r.Post("/load", h.LoadSnapshot)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetAll)
		})

		r.Get("/status", h.GetStatus)
	})

	return r
}
