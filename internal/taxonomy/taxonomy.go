// Package taxonomy holds the static category tree and the category filter
// matcher used by the query engine.
package taxonomy

import (
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/glanxiv/internal/models"
)

// AllToken is the filter token that matches every paper.
const AllToken = "all"

// Option is one entry of the flattened category picker.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Taxonomy is an immutable category tree with lookup tables for matching.
type Taxonomy struct {
	nodes []models.CategoryNode
	// mains holds every lowercased main id.
	mains map[string]struct{}
	// subs holds every lowercased subcategory code.
	subs map[string]struct{}
}

var defaultTaxonomy = mustNew(builtin)

// Default returns the built-in arXiv taxonomy.
func Default() *Taxonomy { return defaultTaxonomy }

func mustNew(nodes []models.CategoryNode) *Taxonomy {
	t, err := New(nodes)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: invalid built-in tree: %v", err))
	}
	return t
}

// New validates nodes and builds a Taxonomy. Main ids must be unique
// (case-insensitive) and every node needs an id and a name.
func New(nodes []models.CategoryNode) (*Taxonomy, error) {
	t := &Taxonomy{
		nodes: cloneNodes(nodes),
		mains: make(map[string]struct{}, len(nodes)),
		subs:  make(map[string]struct{}),
	}
	for i := range t.nodes {
		n := &t.nodes[i]
		if err := validation.ValidateStruct(n,
			validation.Field(&n.ID, validation.Required),
			validation.Field(&n.Name, validation.Required),
		); err != nil {
			return nil, fmt.Errorf("taxonomy: node %d: %w", i, err)
		}
		id := strings.ToLower(n.ID)
		if id == AllToken {
			return nil, fmt.Errorf("taxonomy: %q is reserved", AllToken)
		}
		if _, dup := t.mains[id]; dup {
			return nil, fmt.Errorf("taxonomy: duplicate main category %q", n.ID)
		}
		for _, s := range n.Subcategories {
			if s.Code == "" {
				return nil, fmt.Errorf("taxonomy: %s: subcategory with empty code", n.ID)
			}
			t.subs[strings.ToLower(s.Code)] = struct{}{}
		}
		t.mains[id] = struct{}{}
	}
	return t, nil
}

// taxonomyFile is the YAML layout of a taxonomy override file.
type taxonomyFile struct {
	Categories []models.CategoryNode `yaml:"categories"`
}

// LoadFile reads a taxonomy from a YAML file of the form
//
//	categories:
//	  - id: cs
//	    name: Computer Science
//	    subcategories:
//	      - { code: cs.AI, label: Artificial Intelligence }
func LoadFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: read %s: %w", path, err)
	}
	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("taxonomy: parse %s: %w", path, err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy: %s defines no categories", path)
	}
	return New(f.Categories)
}

// Nodes returns a copy of the category tree in display order.
func (t *Taxonomy) Nodes() []models.CategoryNode {
	return cloneNodes(t.nodes)
}

// Options returns the flattened picker list: "all", then for every main
// category its bare id, its ".all" form and its subcategories.
func (t *Taxonomy) Options() []Option {
	out := []Option{{Value: AllToken, Label: "All Categories"}}
	for _, n := range t.nodes {
		label := "All " + n.Name
		out = append(out,
			Option{Value: n.ID, Label: label},
			Option{Value: n.ID + "." + AllToken, Label: label},
		)
		for _, s := range n.Subcategories {
			out = append(out, Option{Value: s.Code, Label: s.Label})
		}
	}
	return out
}

// IsMain reports whether id names a main category.
func (t *Taxonomy) IsMain(id string) bool {
	_, ok := t.mains[strings.ToLower(id)]
	return ok
}

func cloneNodes(in []models.CategoryNode) []models.CategoryNode {
	out := make([]models.CategoryNode, len(in))
	for i, n := range in {
		out[i] = n
		out[i].Subcategories = append([]models.Subcategory(nil), n.Subcategories...)
	}
	return out
}
