package schema

import "parite/internal/domain"

// CleanReadOnly removes every property the schema marks read-only from the
// document, in place. Computed outputs (notes, points, index) are published
// through the schema but must never be accepted back as input; stripping them
// before scoring keeps the scorer idempotent.
func CleanReadOnly(data domain.Data, def *Definition) {
	cleanValue(map[string]any(data), def)
}

func cleanValue(v any, def *Definition) {
	if def == nil || v == nil {
		return
	}
	switch def.Type {
	case "object":
		m, ok := toMap(v)
		if !ok {
			return
		}
		for key, sub := range def.Properties {
			if sub.ReadOnly {
				delete(m, key)
				continue
			}
			if value, present := m[key]; present {
				cleanValue(value, sub)
			}
		}
	case "array":
		items, ok := v.([]any)
		if !ok {
			return
		}
		for _, item := range items {
			cleanValue(item, def.Items)
		}
	}
}
