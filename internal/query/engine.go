// Package query implements search, category filtering and pagination over
// corpus snapshots.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/glanxiv/internal/apperr"
	"github.com/starford/glanxiv/internal/corpus"
	"github.com/starford/glanxiv/internal/models"
	"github.com/starford/glanxiv/internal/taxonomy"
)

// Corpus is the snapshot provider the engine reads from. *corpus.Cache
// implements it.
type Corpus interface {
	Get(ctx context.Context) (*corpus.Snapshot, error)
	Refresh(ctx context.Context) (*corpus.Snapshot, error)
}

// Request is one page of a filtered search.
type Request struct {
	SearchTerm      string   `json:"q"`
	CategoryFilters []string `json:"category"`
	Page            int      `json:"page"`
	Limit           int      `json:"limit"`
}

// Validate checks that page and limit are at least 1.
func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Page, validation.Required, validation.Min(1)),
		validation.Field(&r.Limit, validation.Required, validation.Min(1)),
	)
}

// Result is one page of matching papers. Papers is never nil.
type Result struct {
	Papers     []models.Paper `json:"papers"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
	HasMore    bool           `json:"hasMore"`
}

// SourceError describes a partition left out of the current snapshot.
type SourceError struct {
	Partition string `json:"partition"`
	Error     string `json:"error"`
}

// Status describes the snapshot currently served.
type Status struct {
	LoadedAt     time.Time     `json:"loaded_at"`
	TotalPapers  int           `json:"total_papers"`
	Unavailable  bool          `json:"unavailable"`
	SourceErrors []SourceError `json:"source_errors"`
}

// Engine answers queries against the corpus.
type Engine struct {
	corpus Corpus
	tax    *taxonomy.Taxonomy
	logger *slog.Logger
}

// New creates an Engine. A nil tax selects the built-in taxonomy.
func New(c Corpus, tax *taxonomy.Taxonomy, logger *slog.Logger) *Engine {
	if tax == nil {
		tax = taxonomy.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{corpus: c, tax: tax, logger: logger}
}

// snapshot returns the current snapshot. Source failures are logged and
// never reach the caller.
func (e *Engine) snapshot(ctx context.Context) *corpus.Snapshot {
	snap, err := e.corpus.Get(ctx)
	if err != nil {
		e.logger.Warn("query: corpus unavailable", slog.String("error", err.Error()))
	}
	if snap == nil {
		snap = corpus.NewSnapshot(nil, time.Time{}, nil)
	}
	return snap
}

// Query filters the current snapshot by search term and category tokens and
// returns the requested page. The only error is one wrapping
// apperr.ErrInvalidQuery for page or limit below 1.
func (e *Engine) Query(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", apperr.ErrInvalidQuery, err)
	}

	snap := e.snapshot(ctx)
	filter := e.tax.Compile(req.CategoryFilters)
	if unknown := filter.Unknown(); len(unknown) > 0 {
		e.logger.Debug("query: unknown category tokens, matching literally",
			slog.Any("tokens", unknown))
	}
	term := strings.ToLower(req.SearchTerm)

	matched := make([]int, 0, len(snap.Docs))
	for i := range snap.Docs {
		d := &snap.Docs[i]
		if term != "" && !containsTerm(d, term) {
			continue
		}
		if !filter.MatchCodes(d.Codes) {
			continue
		}
		matched = append(matched, i)
	}

	total := len(matched)
	start, end := pageBounds(req.Page, req.Limit, total)
	papers := make([]models.Paper, 0, end-start)
	for _, i := range matched[start:end] {
		papers = append(papers, snap.Papers[i])
	}

	totalPages := total / req.Limit
	if total%req.Limit != 0 {
		totalPages++
	}
	return Result{
		Papers:     papers,
		Total:      total,
		Page:       req.Page,
		TotalPages: totalPages,
		HasMore:    end < total,
	}, nil
}

// pageBounds returns the slice bounds of page within total items, clamped
// to [0, total] without overflowing on large pages.
func pageBounds(page, limit, total int) (int, int) {
	if page-1 > total/limit {
		return total, total
	}
	start := min((page-1)*limit, total)
	return start, start + min(limit, total-start)
}

func containsTerm(d *corpus.Doc, term string) bool {
	if strings.Contains(d.Title, term) || strings.Contains(d.Abstract, term) {
		return true
	}
	for _, a := range d.Authors {
		if strings.Contains(a, term) {
			return true
		}
	}
	return false
}

// Taxonomy returns a copy of the category tree.
func (e *Engine) Taxonomy() []models.CategoryNode {
	return e.tax.Nodes()
}

// Options returns the flattened category picker list.
func (e *Engine) Options() []taxonomy.Option {
	return e.tax.Options()
}

// TotalCount returns the number of papers in the current snapshot.
func (e *Engine) TotalCount(ctx context.Context) int {
	return e.snapshot(ctx).Len()
}

// CategoryCounts returns the number of distinct papers per category code,
// counting both categories and the primary category.
func (e *Engine) CategoryCounts(ctx context.Context) map[string]int {
	return e.snapshot(ctx).CategoryCounts()
}

// Paper returns the paper with the given id or an error wrapping
// apperr.ErrNotFound.
func (e *Engine) Paper(ctx context.Context, id string) (models.Paper, error) {
	p, ok := e.snapshot(ctx).Lookup(id)
	if !ok {
		return models.Paper{}, fmt.Errorf("query: paper %q: %w", id, apperr.ErrNotFound)
	}
	return p, nil
}

// Status describes the snapshot currently served.
func (e *Engine) Status(ctx context.Context) Status {
	return statusOf(e.snapshot(ctx))
}

// Refresh forces a corpus reload and returns the resulting status. On
// failure the previous snapshot stays in place and its status is returned
// with the error.
func (e *Engine) Refresh(ctx context.Context) (Status, error) {
	snap, err := e.corpus.Refresh(ctx)
	if snap == nil {
		snap = corpus.NewSnapshot(nil, time.Time{}, nil)
	}
	return statusOf(snap), err
}

func statusOf(s *corpus.Snapshot) Status {
	st := Status{
		LoadedAt:     s.LoadedAt,
		TotalPapers:  s.Len(),
		Unavailable:  s.Unavailable,
		SourceErrors: make([]SourceError, 0, len(s.SourceErrors)),
	}
	for _, pe := range s.SourceErrors {
		st.SourceErrors = append(st.SourceErrors, SourceError{Partition: pe.Partition, Error: pe.Err.Error()})
	}
	return st
}
