package api

import (
	"time"

	"github.com/starford/glanxiv/internal/models"
	"github.com/starford/glanxiv/internal/query"
	"github.com/starford/glanxiv/internal/taxonomy"
)

// SearchResponse is one page of search results (aliased from the query layer).
type SearchResponse = query.Result

// CountResponse wraps the total number of cached papers.
type CountResponse struct {
	Total int `json:"total" example:"1234"`
}

// CategoryCount is the number of papers carrying one category code.
type CategoryCount struct {
	Name  string `json:"name" example:"cs.LG"`
	Count int    `json:"count" example:"42"`
}

// CategoryCountsResponse lists category counts, most frequent first.
type CategoryCountsResponse struct {
	Categories []CategoryCount `json:"categories"`
}

// TaxonomyResponse wraps the category tree.
type TaxonomyResponse struct {
	Categories []models.CategoryNode `json:"categories"`
}

// TaxonomyOptionsResponse wraps the flattened category picker list.
type TaxonomyOptionsResponse struct {
	Options []taxonomy.Option `json:"options"`
}

// ScrapingStatus describes the snapshot partitions on disk.
type ScrapingStatus struct {
	EarliestScraped string    `json:"earliest_scraped,omitempty" example:"2024-01-01"`
	LatestScraped   string    `json:"latest_scraped,omitempty" example:"2024-03-31"`
	LastUpdated     time.Time `json:"last_updated"`
	TotalFiles      int       `json:"total_files" example:"91"`
	DateRangeDays   int       `json:"date_range_days" example:"91"`
}

// StatusDetails adds size statistics when ?detailed=true.
type StatusDetails struct {
	FileCount      int     `json:"file_count" example:"91"`
	TotalSizeBytes int64   `json:"total_size_bytes" example:"1048576"`
	TotalSizeMB    float64 `json:"total_size_mb" example:"1.0"`
}

// Timestamps carries response generation times.
type Timestamps struct {
	Retrieved time.Time `json:"retrieved"`
}

// StatusResponse is returned by GET /status and POST /refresh.
type StatusResponse struct {
	Status     *ScrapingStatus `json:"status,omitempty"`
	Corpus     query.Status    `json:"corpus"`
	Details    *StatusDetails  `json:"details,omitempty"`
	Timestamps Timestamps      `json:"timestamps"`
}
