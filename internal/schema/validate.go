package schema

import (
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"

	"parite/internal/domain"
)

// ValidationError is the first structural violation found in a document.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var nafPattern = regexp.MustCompile(`^\d{2}\.\d{2}[A-Z]$`)

// Validate checks a document against the definition and returns the first
// violation, or nil when the document conforms.
func (d *Definition) Validate(doc any) error {
	return d.validate(doc, "")
}

func (d *Definition) validate(v any, path string) error {
	if v == nil {
		if d.Nullable {
			return nil
		}
		return violation(path, "null is not allowed")
	}
	switch d.Type {
	case "object":
		return d.validateObject(v, path)
	case "array":
		return d.validateArray(v, path)
	case "string":
		return d.validateString(v, path)
	case "integer", "number":
		return d.validateNumber(v, path)
	case "boolean":
		if _, ok := v.(bool); !ok {
			return violation(path, "expected a boolean")
		}
		return nil
	default:
		return violation(path, fmt.Sprintf("unhandled schema type %q", d.Type))
	}
}

func (d *Definition) validateObject(v any, path string) error {
	m, ok := toMap(v)
	if !ok {
		return violation(path, "expected an object")
	}
	for _, key := range d.Required {
		if _, present := m[key]; !present {
			return violation(path, fmt.Sprintf("missing required property %q", key))
		}
	}
	if !d.Additional {
		for key := range m {
			if _, known := d.Properties[key]; !known {
				return violation(path, fmt.Sprintf("unknown property %q", key))
			}
		}
	}
	for key, sub := range d.Properties {
		value, present := m[key]
		if !present {
			continue
		}
		if err := sub.validate(value, join(path, key)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Definition) validateArray(v any, path string) error {
	items, ok := v.([]any)
	if !ok {
		return violation(path, "expected an array")
	}
	if d.Items == nil {
		return nil
	}
	for i, item := range items {
		if err := d.Items.validate(item, fmt.Sprintf("%s.%d", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Definition) validateString(v any, path string) error {
	s, ok := v.(string)
	if !ok {
		return violation(path, "expected a string")
	}
	if len(d.Enum) > 0 {
		for _, allowed := range d.Enum {
			if s == allowed {
				return nil
			}
		}
		return violation(path, fmt.Sprintf("%q is not one of %s", s, strings.Join(d.Enum, ", ")))
	}
	if d.Pattern != "" {
		if d.pattern == nil {
			d.pattern = regexp.MustCompile(d.Pattern)
		}
		if !d.pattern.MatchString(s) {
			return violation(path, fmt.Sprintf("%q does not match %s", s, d.Pattern))
		}
	}
	if d.Format != "" {
		if err := checkFormat(d.Format, s); err != nil {
			return violation(path, err.Error())
		}
	}
	return nil
}

func (d *Definition) validateNumber(v any, path string) error {
	f, ok := toFloat(v)
	if !ok {
		return violation(path, fmt.Sprintf("expected a %s", d.Type))
	}
	if d.Type == "integer" && f != math.Trunc(f) {
		return violation(path, "expected an integer")
	}
	if d.Minimum != nil && f < *d.Minimum {
		return violation(path, fmt.Sprintf("%v is below the minimum %v", f, *d.Minimum))
	}
	if d.Maximum != nil && f > *d.Maximum {
		return violation(path, fmt.Sprintf("%v is above the maximum %v", f, *d.Maximum))
	}
	return nil
}

func checkFormat(format, s string) error {
	switch format {
	case "date":
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return fmt.Errorf("%q is not a valid date", s)
		}
	case "time":
		if _, err := time.Parse("15:04:05", s); err != nil {
			return fmt.Errorf("%q is not a valid time", s)
		}
	case "date-time":
		if !isDateTime(s) {
			return fmt.Errorf("%q is not a valid date-time", s)
		}
	case "email":
		if _, err := mail.ParseAddress(s); err != nil || strings.Contains(s, " ") {
			return fmt.Errorf("%q is not a valid email", s)
		}
	case "uri":
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" {
			return fmt.Errorf("%q is not a valid uri", s)
		}
	}
	return nil
}

func isDateTime(s string) bool {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func violation(path, message string) error {
	return &ValidationError{Path: strings.TrimPrefix(path, "."), Message: message}
}

func join(path, key string) string {
	return path + "." + key
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case domain.Data:
		return map[string]any(m), true
	default:
		return nil, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
