// Package declaration holds the canonical record an employer files for a
// reporting year, keyed by (siren, year).
package declaration

import (
	"time"

	"parite/internal/domain"
)

// Record is one declaration row. Data holds the published document, Draft
// an in-progress revision that overrides Data until publication, Legacy the
// raw import snapshot when the record came from the previous service.
type Record struct {
	Siren      string
	Year       int
	Owner      string
	Data       domain.Data
	Draft      domain.Data
	Legacy     domain.Data
	ModifiedAt time.Time
	DeclaredAt *time.Time
}

// Document returns the draft when one exists, the published data otherwise.
func (r Record) Document() domain.Data {
	if r.Draft != nil {
		return r.Draft
	}
	return r.Data
}

// Published reports whether the record has been declared at least once.
func (r Record) Published() bool {
	return r.DeclaredAt != nil
}

// Metadata is the listing shape of a record, without its document.
type Metadata struct {
	Siren      string     `json:"siren"`
	Year       int        `json:"year"`
	Name       string     `json:"name"`
	DeclaredAt *time.Time `json:"declared_at"`
	ModifiedAt time.Time  `json:"modified_at"`
}
