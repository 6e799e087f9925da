package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Pipeline state.
	r.Get("/status", h.Status)
	r.Get("/proposals", h.ListProposals)
	r.Post("/proposals/approve", h.ApproveProposal)

	// Triggers.
	r.Post("/run", h.RunPipeline)
	r.Post("/run/ingest", h.RunIngest)
	r.Post("/run/file", h.RunFiler)
	r.Post("/run/maintenance", h.RunMaintenance)

	// Read-only views.
	r.Get("/audit", h.Audit)
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
