// Package storage defines the snapshot partition file-system abstraction.
package storage

import "github.com/starford/glanxiv/internal/models"

// Provider gives read access to snapshot partitions.
type Provider interface {
	// List returns metadata for every .json partition under dir (relative to
	// the root), in lexical path order.
	List(dir string) ([]models.PartitionMeta, error)
	// Read returns the raw bytes of the partition at path (relative to root).
	Read(path string) ([]byte, error)
	// Root returns the absolute root directory.
	Root() string
}
