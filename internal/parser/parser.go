// Package parser decodes snapshot partitions and the date formats found in them.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/starford/glanxiv/internal/models"
)

// ErrEmptyPartition is returned for a partition with no content at all.
var ErrEmptyPartition = errors.New("empty partition")

var partitionDateRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\.json$`)

// publishedLayouts are tried in order by ParsePublished.
var publishedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParsePartition decodes a partition file: a JSON array of paper records.
// A wrapped object of the form {"papers": [...]} is accepted as well.
func ParsePartition(data []byte) ([]models.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyPartition
	}

	if trimmed[0] == '{' {
		var wrapped struct {
			Papers *[]models.Record `json:"papers"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("parser: decode partition: %w", err)
		}
		if wrapped.Papers == nil {
			return nil, fmt.Errorf("parser: object partition has no papers field")
		}
		return cleanRecords(*wrapped.Papers), nil
	}

	var records []models.Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("parser: decode partition: %w", err)
	}
	return cleanRecords(records), nil
}

// cleanRecords trims whitespace from scalar fields and drops blank author and
// category entries. Missing fields stay missing.
func cleanRecords(records []models.Record) []models.Record {
	for i := range records {
		r := &records[i]
		r.ID = strings.TrimSpace(r.ID)
		r.Title = strings.TrimSpace(r.Title)
		r.Abstract = strings.TrimSpace(r.Abstract)
		r.PDFURL = strings.TrimSpace(r.PDFURL)
		r.Published = strings.TrimSpace(r.Published)
		r.PrimaryCategory = strings.TrimSpace(r.PrimaryCategory)
		r.Authors = compact(r.Authors)
		r.Categories = compact(r.Categories)
	}
	return records
}

func compact(in []string) []string {
	if in == nil {
		return nil
	}
	out := in[:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParsePublished parses a publication timestamp. It accepts RFC 3339 with or
// without fractional seconds, a zone-less datetime (read as UTC) and a bare
// date.
func ParsePublished(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// PartitionDate extracts the day from a partition named YYYY-MM-DD.json.
func PartitionDate(p string) (time.Time, bool) {
	m := partitionDateRe.FindStringSubmatch(path.Base(p))
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
