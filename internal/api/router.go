package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/glanxiv/internal/query"
	"github.com/starford/glanxiv/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// store, if non-nil, backs the partition statistics of /status.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(engine *query.Engine, store storage.Provider, sseHandler http.Handler, defaultLimit int) chi.Router {
	h := NewHandler(engine, store, defaultLimit)

	r := chi.NewRouter()

	// Papers.
	r.Get("/papers/search", h.SearchPapers)
	r.Get("/papers/count", h.CountPapers)
	r.Get("/papers/categories", h.CategoryCounts)
	r.Get("/papers/lookup", h.LookupPaper)

	// Taxonomy.
	r.Get("/taxonomy", h.Taxonomy)

	// Corpus status and forced refresh.
	r.With(NoStore).Get("/status", h.Status)
	r.With(NoStore).Post("/refresh", h.Refresh)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
