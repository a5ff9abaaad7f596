package corpus

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/starford/glanxiv/internal/apperr"
	"github.com/starford/glanxiv/internal/models"
	"github.com/starford/glanxiv/internal/parser"
	"github.com/starford/glanxiv/internal/storage"
)

// DefaultFetchWorkers bounds concurrent partition parsing.
const DefaultFetchWorkers = 8

// FileSource reads snapshot partitions from a storage.Provider.
type FileSource struct {
	store   storage.Provider
	workers int
}

// NewFileSource creates a FileSource parsing at most workers partitions at
// once. workers < 1 selects DefaultFetchWorkers.
func NewFileSource(store storage.Provider, workers int) *FileSource {
	if workers < 1 {
		workers = DefaultFetchWorkers
	}
	return &FileSource{store: store, workers: workers}
}

type partitionResult struct {
	records []models.Record
	err     error
}

// FetchAll parses every partition and merges the records in partition path
// order. Unreadable or malformed partitions are reported in PartitionErrors.
// Only a failure to list the snapshot directory, or ctx expiring, fails the
// call.
func (s *FileSource) FetchAll(ctx context.Context) (models.Batch, error) {
	metas, err := s.store.List("")
	if err != nil {
		return models.Batch{}, fmt.Errorf("corpus: list partitions: %w: %w", apperr.ErrSourceUnavailable, err)
	}

	results := make([]partitionResult, len(metas))
	p := pool.New().WithMaxGoroutines(s.workers)
	for i, m := range metas {
		p.Go(func() {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return
			}
			data, err := s.store.Read(m.Path)
			if err != nil {
				results[i].err = err
				return
			}
			results[i].records, results[i].err = parser.ParsePartition(data)
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return models.Batch{}, fmt.Errorf("corpus: fetch partitions: %w: %w", apperr.ErrSourceUnavailable, err)
	}

	var batch models.Batch
	for i, r := range results {
		if r.err != nil {
			batch.PartitionErrors = append(batch.PartitionErrors, models.PartitionError{
				Partition: metas[i].Path,
				Err:       r.err,
			})
			continue
		}
		batch.Records = append(batch.Records, r.records...)
	}
	return batch, nil
}
