package index

import (
	"maps"
	"sync"

	"github.com/starford/glanxiv/internal/checksum"
)

// Tracker is an in-memory Sink that only remembers partition checksums. It
// lets Watch report changes when the corpus is read straight from the
// snapshot files.
type Tracker struct {
	mu   sync.Mutex
	sums map[string]string
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{sums: make(map[string]string)}
}

// ApplyPartition records the checksum of data.
func (t *Tracker) ApplyPartition(path string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sums[path] = checksum.Sum(data)
	return nil
}

// RemovePartition forgets path.
func (t *Tracker) RemovePartition(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sums, path)
	return nil
}

// AllChecksums returns a copy of the known checksums.
func (t *Tracker) AllChecksums() (map[string]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.sums), nil
}
