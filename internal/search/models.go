// Package search maintains the public projection of published declarations
// and answers full-text queries over it.
package search

import (
	"time"

	"parite/internal/domain"
)

// Row is one projected declaration. FT carries the searchable names, Data
// the full document the public subset is derived from at query time.
type Row struct {
	Siren       string
	Year        int
	DeclaredAt  time.Time
	FT          string
	Region      string
	Departement string
	SectionNAF  string
	Note        *int
	Tranche     string
	Data        domain.Data
}

// Filters narrows a query. CodeNAF accepts a full subclass code or a bare
// section letter.
type Filters struct {
	Region      string
	Departement string
	CodeNAF     string
}

// Section resolves the NAF filter to its section letter.
func (f Filters) Section() string {
	if f.CodeNAF == "" {
		return ""
	}
	if len(f.CodeNAF) == 1 {
		return f.CodeNAF
	}
	return domain.NAFSection(f.CodeNAF)
}

// Hit is one matching declaration with the per-year notes of its siren.
type Hit struct {
	Data       domain.Data
	Notes      map[int]*int
	DeclaredAt time.Time
}

// Result is the public view of a hit.
type Result struct {
	Entreprise map[string]any `json:"entreprise"`
	Notes      map[int]*int   `json:"notes"`
	Label      string         `json:"label"`
}

// Stats aggregates the notes of one reporting year.
type Stats struct {
	Count int      `json:"count"`
	Min   *int     `json:"min"`
	Max   *int     `json:"max"`
	Avg   *float64 `json:"avg"`
}
