/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in error logs
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the roster UI

ROUTE GROUPS:
  /api/members/*     Roster maintenance, member lookup, timelines
  /api/roster        Whole-roster export and import (JSON or YAML)
  /api/ladder        Rank ladder
  /api/snapshot      Point-in-time occupancy
  /api/strength      Per-rank fill report
  /api/simulation    Run summary
  /api/record-errors Members excluded from the run
  /api/scenarios/*   Demo scenarios
  /api/reset         Database reset (dev only)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins are used when the router is built without origins.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Roster routes
		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Get("/{id}", h.GetMember)
			r.Get("/{id}/timeline", h.GetTimeline)
			r.Put("/{id}/frozen", h.SetFrozen)
			r.Delete("/{id}", h.DeleteMember)
		})

		// Bulk roster documents
		r.Get("/roster", h.ExportRoster)
		r.Put("/roster", h.ImportRoster)

		// Ladder routes
		r.Get("/ladder", h.GetLadder)
		r.Put("/ladder", h.PutLadder)

		// Projection routes
		r.Get("/snapshot", h.GetSnapshot)
		r.Get("/strength", h.GetStrength)
		r.Get("/simulation", h.GetSimulation)
		r.Get("/record-errors", h.GetRecordErrors)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})

		r.Post("/reset", h.ResetDatabase)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
