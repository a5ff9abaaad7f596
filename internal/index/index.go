package index

// Sink receives partition contents as the snapshot directory changes.
// Sync and Watch drive a Sink; *DB persists partitions relationally and
// *Tracker only remembers their checksums.
type Sink interface {
	// ApplyPartition records the current contents of the partition at path.
	ApplyPartition(path string, data []byte) error
	// RemovePartition forgets the partition at path.
	RemovePartition(path string) error
	// AllChecksums returns the checksum of every known partition.
	AllChecksums() (map[string]string, error)
}

// Verify both sinks satisfy Sink at compile time.
var (
	_ Sink = (*DB)(nil)
	_ Sink = (*Tracker)(nil)
)
