package index

import (
	"log/slog"

	"github.com/starford/glanxiv/internal/storage"
)

// SyncResult counts what a Sync pass changed.
type SyncResult struct {
	Applied   int
	Failed    int
	Removed   int
	Unchanged int
}

// Changed reports whether the pass touched any partition.
func (r SyncResult) Changed() bool {
	return r.Applied+r.Failed+r.Removed > 0
}

// Sync walks the snapshot directory and brings sink up to date:
//   - new/changed partitions are read and applied
//   - partitions removed from disk are removed from sink
func Sync(sink Sink, store storage.Provider, logger *slog.Logger) (SyncResult, error) {
	var res SyncResult
	metas, err := store.List("")
	if err != nil {
		return res, err
	}

	checksums, err := sink.AllChecksums()
	if err != nil {
		return res, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			res.Unchanged++
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			res.Failed++
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := sink.ApplyPartition(m.Path, data); err != nil {
			res.Failed++
			logger.Warn("sync: apply failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			res.Applied++
			logger.Debug("sync: applied", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := sink.RemovePartition(p); err != nil {
				logger.Warn("sync: remove failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				res.Removed++
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return res, nil
}
