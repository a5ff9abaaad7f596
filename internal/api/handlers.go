package api

import (
	"cmp"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/starford/glanxiv/internal/apperr"
	"github.com/starford/glanxiv/internal/corpus"
	"github.com/starford/glanxiv/internal/query"
	"github.com/starford/glanxiv/internal/storage"
	"github.com/starford/glanxiv/internal/taxonomy"
)

// DefaultLimit is the page size used when a search omits ?limit.
const DefaultLimit = 12

// Handler holds API route handlers.
type Handler struct {
	engine       *query.Engine
	store        storage.Provider
	defaultLimit int
}

// NewHandler creates a new Handler. defaultLimit < 1 selects DefaultLimit.
func NewHandler(engine *query.Engine, store storage.Provider, defaultLimit int) *Handler {
	if defaultLimit < 1 {
		defaultLimit = DefaultLimit
	}
	return &Handler{engine: engine, store: store, defaultLimit: defaultLimit}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// intParam parses the named query parameter, returning def when it is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// SearchPapers handles GET /api/papers/search.
//
//	@Summary		Search papers by text and category
//	@Tags			papers
//	@Produce		json
//	@Param			q			query		string	false	"Case-insensitive substring of title, abstract or an author"
//	@Param			category	query		string	false	"Comma-separated category tokens (all, cs, cs.all, cs.AI)"
//	@Param			page		query		int		false	"1-based page"	default(1)
//	@Param			limit		query		int		false	"Page size"	default(12)
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Router			/papers/search [get]
func (h *Handler) SearchPapers(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("page must be an integer"))
		return
	}
	limit, err := intParam(r, "limit", h.defaultLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("limit must be an integer"))
		return
	}

	q := r.URL.Query()
	res, err := h.engine.Query(r.Context(), query.Request{
		SearchTerm:      q.Get("q"),
		CategoryFilters: taxonomy.ParseExpression(q.Get("category")),
		Page:            page,
		Limit:           limit,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidQuery) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		slog.Error("search papers failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CountPapers handles GET /api/papers/count.
//
//	@Summary		Total number of cached papers
//	@Tags			papers
//	@Produce		json
//	@Success		200	{object}	CountResponse
//	@Router			/papers/count [get]
func (h *Handler) CountPapers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CountResponse{Total: h.engine.TotalCount(r.Context())})
}

// CategoryCounts handles GET /api/papers/categories.
//
//	@Summary		Paper counts per category code
//	@Tags			papers
//	@Produce		json
//	@Success		200	{object}	CategoryCountsResponse
//	@Router			/papers/categories [get]
func (h *Handler) CategoryCounts(w http.ResponseWriter, r *http.Request) {
	counts := h.engine.CategoryCounts(r.Context())
	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{Name: name, Count: n})
	}
	slices.SortFunc(out, func(a, b CategoryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	writeJSON(w, http.StatusOK, CategoryCountsResponse{Categories: out})
}

// LookupPaper handles GET /api/papers/lookup.
//
//	@Summary		Get a single paper by id
//	@Tags			papers
//	@Produce		json
//	@Param			id	query		string	true	"Paper id"
//	@Success		200	{object}	models.Paper
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Router			/papers/lookup [get]
func (h *Handler) LookupPaper(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'id' is required"))
		return
	}
	p, err := h.engine.Paper(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("lookup paper failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Taxonomy handles GET /api/taxonomy.
//
//	@Summary		Category tree, or the flattened picker list with ?flat=true
//	@Tags			taxonomy
//	@Produce		json
//	@Param			flat	query		bool	false	"Return the flattened option list"
//	@Success		200		{object}	TaxonomyResponse
//	@Router			/taxonomy [get]
func (h *Handler) Taxonomy(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("flat") == "true" {
		writeJSON(w, http.StatusOK, TaxonomyOptionsResponse{Options: h.engine.Options()})
		return
	}
	writeJSON(w, http.StatusOK, TaxonomyResponse{Categories: h.engine.Taxonomy()})
}

// Status handles GET /api/status.
//
//	@Summary		Scraping and corpus status
//	@Tags			status
//	@Produce		json
//	@Param			detailed	query		bool	false	"Include size statistics"
//	@Success		200			{object}	StatusResponse
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp, err := h.statusResponse(h.engine.Status(r.Context()), r.URL.Query().Get("detailed") == "true")
	if err != nil {
		slog.Error("status failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to read scraping status"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /api/refresh.
//
//	@Summary		Reload the corpus now
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Failure		503	{object}	errResponse
//	@Router			/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.Refresh(r.Context())
	if err != nil {
		slog.Warn("refresh failed", slog.String("error", err.Error()))
		if errors.Is(err, apperr.ErrSourceUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("corpus source unavailable"))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	resp, err := h.statusResponse(st, false)
	if err != nil {
		slog.Error("status failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to read scraping status"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) statusResponse(st query.Status, detailed bool) (StatusResponse, error) {
	resp := StatusResponse{
		Corpus:     st,
		Timestamps: Timestamps{Retrieved: time.Now().UTC()},
	}
	if h.store == nil {
		return resp, nil
	}
	metas, err := h.store.List("")
	if err != nil {
		return resp, err
	}
	ps := corpus.DescribePartitions(metas)
	resp.Status = &ScrapingStatus{
		EarliestScraped: ps.EarliestScraped,
		LatestScraped:   ps.LatestScraped,
		LastUpdated:     ps.LastUpdated,
		TotalFiles:      ps.TotalFiles,
		DateRangeDays:   ps.DateRangeDays,
	}
	if detailed {
		resp.Details = &StatusDetails{
			FileCount:      ps.TotalFiles,
			TotalSizeBytes: ps.TotalSizeBytes,
			TotalSizeMB:    ps.SizeMB(),
		}
	}
	return resp, nil
}
