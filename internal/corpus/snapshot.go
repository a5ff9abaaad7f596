package corpus

import (
	"strings"
	"time"

	"github.com/starford/glanxiv/internal/models"
)

// Doc holds the lowercased search fields of the paper at the same index in
// Snapshot.Papers.
type Doc struct {
	Title    string
	Abstract string
	Authors  []string
	// Codes is categories followed by the primary category.
	Codes []string
}

// Snapshot is an immutable, fully normalized view of the corpus. Readers may
// keep a snapshot for as long as they like; refreshes replace it wholesale.
type Snapshot struct {
	// Papers is sorted by Published, newest first.
	Papers       []models.Paper
	Docs         []Doc
	LoadedAt     time.Time
	SourceErrors []models.PartitionError
	// Unavailable marks the empty snapshot stored when the first load failed.
	Unavailable bool

	counts map[string]int
	byID   map[string]int
}

// NewSnapshot builds a snapshot over already normalized, sorted papers.
func NewSnapshot(papers []models.Paper, loadedAt time.Time, errs []models.PartitionError) *Snapshot {
	return newSnapshot(papers, loadedAt, errs, false)
}

func newSnapshot(papers []models.Paper, loadedAt time.Time, errs []models.PartitionError, unavailable bool) *Snapshot {
	s := &Snapshot{
		Papers:       papers,
		Docs:         make([]Doc, len(papers)),
		LoadedAt:     loadedAt,
		SourceErrors: errs,
		Unavailable:  unavailable,
		counts:       make(map[string]int),
		byID:         make(map[string]int, len(papers)),
	}
	if s.Papers == nil {
		s.Papers = []models.Paper{}
	}
	for i := range papers {
		p := &papers[i]
		codes := p.Codes()
		s.Docs[i] = Doc{
			Title:    strings.ToLower(p.Title),
			Abstract: strings.ToLower(p.Abstract),
			Authors:  lowerAll(p.Authors),
			Codes:    lowerAll(codes),
		}
		seen := make(map[string]struct{}, len(codes))
		for _, c := range codes {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			s.counts[c]++
		}
		if _, dup := s.byID[p.ID]; !dup {
			s.byID[p.ID] = i
		}
	}
	return s
}

// Len returns the number of papers.
func (s *Snapshot) Len() int { return len(s.Papers) }

// CategoryCounts returns, per category code, the number of distinct papers
// carrying it in categories or as primary category. The map is a copy.
func (s *Snapshot) CategoryCounts() map[string]int {
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Lookup returns the first paper with the given id.
func (s *Snapshot) Lookup(id string) (models.Paper, bool) {
	i, ok := s.byID[id]
	if !ok {
		return models.Paper{}, false
	}
	return s.Papers[i], true
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.ToLower(v)
	}
	return out
}
