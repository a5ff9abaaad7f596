package corpus

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/starford/glanxiv/internal/checksum"
	"github.com/starford/glanxiv/internal/models"
	"github.com/starford/glanxiv/internal/parser"
)

// IDFallback selects how records without an id get one.
type IDFallback string

const (
	// IDRandom assigns a fresh random UUID on every refresh.
	IDRandom IDFallback = "random"
	// IDDerived assigns a digest of title, published and primary category,
	// stable across refreshes.
	IDDerived IDFallback = "derived"
)

// ParseIDFallback validates s. The empty string selects IDRandom.
func ParseIDFallback(s string) (IDFallback, error) {
	switch IDFallback(s) {
	case "", IDRandom:
		return IDRandom, nil
	case IDDerived:
		return IDDerived, nil
	default:
		return "", fmt.Errorf("corpus: unknown id fallback %q", s)
	}
}

// Normalize fills every gap in records and returns papers sorted by
// Published descending. Ties keep source order. Missing or unparseable
// publication dates become now.
func Normalize(records []models.Record, now time.Time, fallback IDFallback) []models.Paper {
	papers := make([]models.Paper, len(records))
	for i, r := range records {
		published, ok := parser.ParsePublished(r.Published)
		if !ok {
			published = now
		}
		id := r.ID
		if id == "" {
			id = fallbackID(r, fallback)
		}
		papers[i] = models.Paper{
			ID:              id,
			Title:           r.Title,
			Authors:         nonNil(r.Authors),
			Abstract:        r.Abstract,
			PDFURL:          r.PDFURL,
			Published:       published,
			Categories:      nonNil(r.Categories),
			PrimaryCategory: r.PrimaryCategory,
		}
	}
	slices.SortStableFunc(papers, func(a, b models.Paper) int {
		return b.Published.Compare(a.Published)
	})
	return papers
}

func fallbackID(r models.Record, fallback IDFallback) string {
	if fallback == IDDerived {
		return checksum.Fields(r.Title, r.Published, r.PrimaryCategory)[:16]
	}
	return uuid.NewString()
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
