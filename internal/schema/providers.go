package schema

import (
	"sort"

	"parite/internal/domain"
)

// ProviderSet resolves the schema's `python:` escapes. The original schema
// pulls those sub-schemas from runtime code; here each escape names a
// provider that builds the equivalent definition.
type ProviderSet map[string]func() *Definition

// DefaultProviders wires the providers the embedded schema refers to, with
// the default reporting-year range.
func DefaultProviders() ProviderSet {
	return Providers(domain.DefaultYears)
}

// Providers builds the provider set for a given closed set of permitted
// reporting years.
func Providers(years []int) ProviderSet {
	return ProviderSet{
		"region-codes": func() *Definition {
			return &Definition{Type: "string", Enum: sortedKeys(domain.Regions)}
		},
		"department-codes": func() *Definition {
			return &Definition{Type: "string", Enum: sortedKeys(domain.Departements)}
		},
		"naf-codes": func() *Definition {
			// The full NAF nomenclature is too large to inline; shape
			// checking is enough here, section derivation happens in the
			// search projection.
			return &Definition{Type: "string", Pattern: nafPattern.String(), pattern: nafPattern}
		},
		"year-range": func() *Definition {
			min, max := yearBounds(years)
			return &Definition{Type: "integer", Minimum: &min, Maximum: &max}
		},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func yearBounds(years []int) (min, max float64) {
	min, max = float64(years[0]), float64(years[0])
	for _, y := range years[1:] {
		if float64(y) < min {
			min = float64(y)
		}
		if float64(y) > max {
			max = float64(y)
		}
	}
	return min, max
}
