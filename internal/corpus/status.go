package corpus

import (
	"math"
	"time"

	"github.com/starford/glanxiv/internal/models"
	"github.com/starford/glanxiv/internal/parser"
)

// PartitionStats summarises the snapshot partitions on disk. Dates come from
// partition names of the form YYYY-MM-DD.json; other partitions only count
// towards the file and size totals.
type PartitionStats struct {
	EarliestScraped string    `json:"earliest_scraped,omitempty"`
	LatestScraped   string    `json:"latest_scraped,omitempty"`
	LastUpdated     time.Time `json:"last_updated"`
	TotalFiles      int       `json:"total_files"`
	DateRangeDays   int       `json:"date_range_days"`
	TotalSizeBytes  int64     `json:"-"`
}

// SizeMB returns the total size in megabytes rounded to two decimals.
func (s PartitionStats) SizeMB() float64 {
	return math.Round(float64(s.TotalSizeBytes)/(1024*1024)*100) / 100
}

// DescribePartitions computes PartitionStats for metas. LastUpdated is the
// newest modification time among them.
func DescribePartitions(metas []models.PartitionMeta) PartitionStats {
	var (
		st               PartitionStats
		earliest, latest time.Time
	)
	for _, m := range metas {
		st.TotalFiles++
		st.TotalSizeBytes += m.Size
		if m.UpdatedAt.After(st.LastUpdated) {
			st.LastUpdated = m.UpdatedAt
		}
		day, ok := parser.PartitionDate(m.Path)
		if !ok {
			continue
		}
		if earliest.IsZero() || day.Before(earliest) {
			earliest = day
		}
		if latest.IsZero() || day.After(latest) {
			latest = day
		}
	}
	if !earliest.IsZero() {
		st.EarliestScraped = earliest.Format(time.DateOnly)
		st.LatestScraped = latest.Format(time.DateOnly)
		st.DateRangeDays = int(latest.Sub(earliest).Hours()/24) + 1
	}
	return st
}
