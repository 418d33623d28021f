// Package domain holds the declaration document model shared by the schema
// engine, the scorer, the validators and the stores. A declaration is a
// deeply nested, dynamic document; we keep it as a map tree with a path
// accessor rather than generated structs so the schema stays the single
// source of truth for its shape.
package domain

import (
	"encoding/json"
	"strings"
)

// Data is a declaration (or simulation) document. The zero value is not
// usable; build one with NewData or by decoding JSON into it.
type Data map[string]any

func NewData() Data {
	return Data{}
}

// Path walks a dot-separated path and returns the value found there.
// A missing segment returns nil. Empty strings, maps and slices collapse to
// nil as well, but explicit false and 0 are preserved, matching the
// truthiness rules the rest of the pipeline relies on.
func (d Data) Path(path string) any {
	var current any = map[string]any(d)
	for _, seg := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil
		}
		current, ok = m[seg]
		if !ok {
			return nil
		}
	}
	if isEmpty(current) {
		return nil
	}
	return current
}

// SetPath creates intermediate objects as needed and sets the final segment.
func (d Data) SetPath(path string, value any) {
	segs := strings.Split(path, ".")
	current := map[string]any(d)
	for _, seg := range segs[:len(segs)-1] {
		next, ok := asMap(current[seg])
		if !ok {
			next = map[string]any{}
			current[seg] = next
		}
		current = next
	}
	current[segs[len(segs)-1]] = value
}

// DeletePath removes the value at path, if any.
func (d Data) DeletePath(path string) {
	segs := strings.Split(path, ".")
	current := map[string]any(d)
	for _, seg := range segs[:len(segs)-1] {
		next, ok := asMap(current[seg])
		if !ok {
			return
		}
		current = next
	}
	delete(current, segs[len(segs)-1])
}

// PathString returns the value at path as a string, or "" when absent or not
// a string.
func (d Data) PathString(path string) string {
	s, _ := d.Path(path).(string)
	return s
}

// PathFloat returns the numeric value at path. JSON decoding yields float64,
// but documents built in code may carry int values, so both are accepted.
func (d Data) PathFloat(path string) (float64, bool) {
	return asFloat(d.Path(path))
}

// PathInt truncates the numeric value at path to an int.
func (d Data) PathInt(path string) (int, bool) {
	f, ok := asFloat(d.Path(path))
	if !ok {
		return 0, false
	}
	return int(f), true
}

// PathBool reports whether path holds a truthy value. Handy for flags like
// déclaration.brouillon where both absence and explicit false mean "no".
func (d Data) PathBool(path string) bool {
	switch v := d.Path(path).(type) {
	case bool:
		return v
	case nil:
		return false
	default:
		return true
	}
}

// Validated reports whether the document carries a publication date, which is
// what makes a declaration published rather than drafted.
func (d Data) Validated() bool {
	return d.Path("déclaration.date") != nil
}

// Draft reports whether the document carries the explicit draft marker.
func (d Data) Draft() bool {
	return d.PathBool("déclaration.brouillon")
}

func (d Data) Siren() string {
	return d.PathString("entreprise.siren")
}

func (d Data) Year() (int, bool) {
	return d.PathInt("déclaration.année_indicateurs")
}

func (d Data) Email() string {
	return d.PathString("déclarant.email")
}

func (d Data) Company() string {
	return d.PathString("entreprise.raison_sociale")
}

func (d Data) Region() string {
	return d.PathString("entreprise.région")
}

func (d Data) Departement() string {
	return d.PathString("entreprise.département")
}

func (d Data) Tranche() string {
	return d.PathString("entreprise.effectif.tranche")
}

func (d Data) UESName() string {
	return d.PathString("entreprise.ues.raison_sociale")
}

// UESSirens lists the siren of every UES sub-entity.
func (d Data) UESSirens() []string {
	entries, _ := d.Path("entreprise.ues.entreprises").([]any)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		m, ok := asMap(e)
		if !ok {
			continue
		}
		if s, ok := m["siren"].(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// UESNames lists the raison sociale of every UES sub-entity.
func (d Data) UESNames() []string {
	entries, _ := d.Path("entreprise.ues.entreprises").([]any)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		m, ok := asMap(e)
		if !ok {
			continue
		}
		if s, ok := m["raison_sociale"].(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Index returns déclaration.index, distinguishing a null (non-calculable)
// index from an absent one only as far as callers need: both come back as
// (0, false).
func (d Data) Index() (int, bool) {
	return d.PathInt("déclaration.index")
}

// Clone deep-copies the document through a JSON round-trip, normalizing
// in-code values to the types a decoded document would carry.
func (d Data) Clone() Data {
	raw, err := json.Marshal(d)
	if err != nil {
		// The tree only ever holds JSON-able values.
		panic(err)
	}
	var out Data
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Data:
		return map[string]any(m), true
	default:
		return nil, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
