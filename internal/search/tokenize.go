package search

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var sirenPattern = regexp.MustCompile(`^\d{9}$`)

// Fold lower-cases s and strips diacritics, mirroring the unaccent text
// search dictionary used on the database side.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokenize splits a company name into folded lexemes.
func Tokenize(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Query is a parsed search input: either a bare siren, or full-text terms
// with prefix matching on the last one.
type Query struct {
	Siren string
	Terms []string
}

// ParseQuery interprets the raw user input. A nine digit input addresses a
// siren directly and skips full-text matching.
func ParseQuery(q string) Query {
	q = strings.TrimSpace(q)
	if sirenPattern.MatchString(q) {
		return Query{Siren: q}
	}
	return Query{Terms: Tokenize(q)}
}

// TSQuery renders the terms as a to_tsquery input with autocomplete on the
// last token.
func (q Query) TSQuery() string {
	if len(q.Terms) == 0 {
		return ""
	}
	return strings.Join(q.Terms, "&") + ":*"
}

// Empty reports whether the query constrains nothing.
func (q Query) Empty() bool {
	return q.Siren == "" && len(q.Terms) == 0
}
