// Package models defines the domain types for glanxiv.
package models

import "time"

// Paper is one normalized paper record as held by a corpus snapshot.
// All fields are set; missing source values are filled during ingestion.
type Paper struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Authors         []string  `json:"authors"`
	Abstract        string    `json:"abstract"`
	PDFURL          string    `json:"pdf_url"`
	Published       time.Time `json:"published"`
	Categories      []string  `json:"categories"`
	PrimaryCategory string    `json:"primary_category"`
}

// Codes returns the paper's categories followed by its primary category,
// skipping an empty primary category. Duplicates are kept.
func (p *Paper) Codes() []string {
	out := make([]string, 0, len(p.Categories)+1)
	out = append(out, p.Categories...)
	if p.PrimaryCategory != "" {
		out = append(out, p.PrimaryCategory)
	}
	return out
}

// Record is a paper as produced by a corpus source. Empty strings and nil
// slices mean the source did not supply the field.
type Record struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Abstract        string   `json:"abstract"`
	PDFURL          string   `json:"pdf_url"`
	Published       string   `json:"published"`
	Categories      []string `json:"categories"`
	PrimaryCategory string   `json:"primary_category"`
}

// PartitionError records a corpus partition that could not be read or parsed.
type PartitionError struct {
	Partition string `json:"partition"`
	Err       error  `json:"-"`
}

// Error implements error.
func (e PartitionError) Error() string {
	return e.Partition + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e PartitionError) Unwrap() error { return e.Err }

// Batch is the result of one full fetch from a corpus source.
type Batch struct {
	Records         []Record
	PartitionErrors []PartitionError
}

// PartitionMeta is a lightweight description of a snapshot partition file.
type PartitionMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subcategory is one selectable entry below a main category.
type Subcategory struct {
	Code  string `json:"code" yaml:"code"`
	Label string `json:"label" yaml:"label"`
}

// CategoryNode is a main category and its subcategories.
type CategoryNode struct {
	ID            string        `json:"id" yaml:"id"`
	Name          string        `json:"name" yaml:"name"`
	Subcategories []Subcategory `json:"subcategories" yaml:"subcategories"`
}
