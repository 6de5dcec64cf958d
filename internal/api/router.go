package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/techtrack/internal/session"
	"github.com/starford/techtrack/internal/techservice"
)

// Deps are the collaborators the API is built from.
type Deps struct {
	Service *techservice.Service
	Session *session.Gate
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	// AuthEnabled controls whether Bearer token auth is enforced.
	AuthEnabled bool
	Token       string
	Logger      *slog.Logger
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d.Service, d.Session, d.Logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(d.AuthEnabled, d.Token))

	// Technologies.
	r.Route("/technologies", func(r chi.Router) {
		r.Get("/", h.ListTechnologies)
		r.Post("/", h.CreateTechnology)
		r.Post("/bulk-status", h.BulkStatus)
		r.Post("/complete-all", h.CompleteAll)
		r.Post("/reset-statuses", h.ResetStatuses)
		r.Post("/start-random", h.StartRandom)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTechnology)
			r.Patch("/", h.UpdateTechnology)
			r.Delete("/", h.DeleteTechnology)
			r.Put("/status", h.SetStatus)
			r.Post("/cycle", h.CycleStatus)
		})
	})
	r.Get("/stats", h.Stats)

	// Data management.
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)
	r.Post("/data/clear", h.ClearData)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Patch("/settings", h.UpdateSettings)
	r.Post("/settings/reset", h.ResetSettings)

	// Catalog.
	r.Get("/catalog", h.SearchCatalog)
	r.Get("/catalog/{id}/resources", h.CatalogResources)
	r.Get("/catalog/roadmap/{kind}", h.Roadmap)
	r.Post("/catalog/roadmap/{kind}/import", h.ImportRoadmap)

	// Session.
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/session", h.Session)

	// SSE endpoint (protected by same auth middleware).
	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}
