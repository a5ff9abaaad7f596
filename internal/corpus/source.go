// Package corpus holds the refreshable in-memory view of the paper corpus.
package corpus

import (
	"context"

	"github.com/starford/glanxiv/internal/models"
)

// Source produces the full set of raw paper records.
//
// A non-nil error means the source as a whole was unreachable. Partitions
// that failed individually are reported in Batch.PartitionErrors and never
// fail the call.
type Source interface {
	FetchAll(ctx context.Context) (models.Batch, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (models.Batch, error)

// FetchAll calls f.
func (f SourceFunc) FetchAll(ctx context.Context) (models.Batch, error) { return f(ctx) }
