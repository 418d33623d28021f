// Package schema parses the compact declaration schema dialect into a
// JSON-Schema-equivalent in-memory form and validates documents against it.
// The dialect exists to keep the human-authored schema short; the expanded
// form lives in memory only and is never persisted.
package schema

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

//go:embed raw.schema
var rawSchema string

// Definition is the expanded form of one schema node.
type Definition struct {
	Type        string `json:"type,omitempty"`
	Format      string `json:"format,omitempty"`
	Description string `json:"description,omitempty"`

	Enum    []string `json:"enum,omitempty"`
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
	Pattern string   `json:"pattern,omitempty"`

	Properties map[string]*Definition `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
	Additional bool                   `json:"additionalProperties,omitempty"`

	Items *Definition `json:"items,omitempty"`

	Nullable bool `json:"nullable,omitempty"`
	ReadOnly bool `json:"readOnly,omitempty"`

	pattern *regexp.Regexp
}

// ParseError carries the line number and the offending key.
type ParseError struct {
	Line int
	Key  string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s in `%s`", e.Line, e.Msg, e.Key)
}

func parseErrorf(line line, format string, args ...any) *ParseError {
	return &ParseError{Line: line.index + 1, Key: line.key, Msg: fmt.Sprintf(format, args...)}
}

var enumToken = regexp.MustCompile(`^[a-z0-9_]+$`)

var (
	defaultOnce sync.Once
	defaultIR   *Definition
	defaultErr  error
)

// Default parses the embedded declaration schema with the default providers.
// The expanded form is cached for the process lifetime.
func Default() (*Definition, error) {
	defaultOnce.Do(func() {
		defaultIR, defaultErr = Load(rawSchema, DefaultProviders())
	})
	return defaultIR, defaultErr
}

// MustDefault is Default for wiring paths where the embedded schema not
// parsing is a programming error.
func MustDefault() *Definition {
	d, err := Default()
	if err != nil {
		panic(err)
	}
	return d
}

type line struct {
	index   int // zero-based source line
	indent  int
	isArray bool // line started with "- "
	key     string
	def     string
	desc    string

	required   bool
	nullable   bool
	readOnly   bool
	additional bool
}

// Load parses the compact dialect into its expanded form.
func Load(raw string, providers ProviderSet) (*Definition, error) {
	lines, err := scan(raw)
	if err != nil {
		return nil, err
	}
	root := newObject(false)
	p := &parser{lines: lines, providers: providers}
	if err := p.object(root, 0); err != nil {
		return nil, err
	}
	return root, nil
}

func scan(raw string) ([]line, error) {
	var out []line
	for i, rawLine := range strings.Split(raw, "\n") {
		stripped := strings.TrimSpace(rawLine)
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}
		l := line{index: i, indent: countIndent(rawLine)}
		if l.indent%2 != 0 {
			l.key = stripped
			return nil, parseErrorf(l, "wrong indentation")
		}
		if strings.HasPrefix(stripped, "- ") {
			stripped = stripped[2:]
			l.isArray = true
			// An array marker indents its content by two more columns.
			l.indent += 2
		}
		def := stripped
		if key, rest, ok := splitKey(stripped); ok {
			for len(key) > 0 {
				switch key[0] {
				case '+':
					l.required = true
				case '?':
					l.nullable = true
				case '=':
					l.readOnly = true
				case '~':
					l.additional = true
				default:
					goto done
				}
				key = key[1:]
			}
		done:
			if strings.HasPrefix(key, `"`) && strings.HasSuffix(key, `"`) {
				key = key[1 : len(key)-1]
			}
			l.key = strings.ToLower(key)
			def = rest
		}
		if idx := commentIndex(def); idx >= 0 {
			l.desc = strings.TrimSpace(def[idx+1:])
			def = def[:idx]
		}
		l.def = strings.TrimSpace(def)
		out = append(out, l)
	}
	return out, nil
}

// splitKey splits a `key: definition` line. A line with no colon, or whose
// colon belongs to a bare definition such as the range `0:100`, is all
// definition. Keys may be quoted to allow colons, as in `":29": number`.
func splitKey(s string) (key, def string, ok bool) {
	mods := 0
	for mods < len(s) && strings.ContainsRune("+?=~", rune(s[mods])) {
		mods++
	}
	if mods < len(s) && s[mods] == '"' {
		end := strings.Index(s[mods+1:], `"`)
		if end < 0 {
			return "", s, false
		}
		closing := mods + 1 + end
		if closing+1 >= len(s) || s[closing+1] != ':' {
			return "", s, false
		}
		return s[:closing+1], strings.TrimSpace(s[closing+2:]), true
	}
	idx := strings.Index(s, ":")
	if idx < 0 {
		return "", s, false
	}
	key = s[:idx]
	if key == "" || isRange(s) || strings.ContainsAny(key, `"|[ `) {
		return "", s, false
	}
	return key, strings.TrimSpace(s[idx+1:]), true
}

// commentIndex finds the `#` starting a trailing description, ignoring any
// inside a quoted regex.
func commentIndex(def string) int {
	inQuote := false
	for i, c := range def {
		switch c {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return i
			}
		}
	}
	return -1
}

func countIndent(s string) int {
	for i, c := range s {
		if c != ' ' {
			return i
		}
	}
	return len(s)
}

type parser struct {
	lines     []line
	pos       int
	providers ProviderSet
}

func (p *parser) peek() (line, bool) {
	if p.pos >= len(p.lines) {
		return line{}, false
	}
	return p.lines[p.pos], true
}

// object consumes lines at exactly the given indent into parent, recursing
// when the one-line look-ahead shows a deeper indent.
func (p *parser) object(parent *Definition, indent int) error {
	for {
		curr, ok := p.peek()
		if !ok || curr.indent < indent {
			return nil
		}
		if curr.indent > indent {
			return parseErrorf(curr, "wrong indentation")
		}
		if curr.key == "" {
			return parseErrorf(curr, "missing key")
		}
		p.pos++
		child, err := p.value(curr, indent)
		if err != nil {
			return err
		}
		parent.Properties[curr.key] = child
		if curr.required {
			parent.Required = append(parent.Required, curr.key)
		}
	}
}

// array consumes `- ` items at the given indent into an array definition.
// Keyed items build up a single object schema for the array elements.
func (p *parser) array(parent *Definition, indent int) error {
	for {
		curr, ok := p.peek()
		if !ok || curr.indent < indent {
			return nil
		}
		if curr.indent > indent {
			return parseErrorf(curr, "wrong indentation")
		}
		p.pos++
		if curr.key == "" {
			item, err := p.leaf(curr)
			if err != nil {
				return err
			}
			parent.Items = item
			continue
		}
		if parent.Items == nil {
			parent.Items = newObject(false)
		}
		child, err := p.value(curr, indent)
		if err != nil {
			return err
		}
		parent.Items.Properties[curr.key] = child
		if curr.required {
			parent.Items.Required = append(parent.Items.Required, curr.key)
		}
	}
}

// value builds the definition for one keyed line, opening a nested object or
// array when the next line is indented deeper.
func (p *parser) value(curr line, indent int) (*Definition, error) {
	next, hasNext := p.peek()
	if curr.def == "" {
		if !hasNext || next.indent <= indent {
			return nil, parseErrorf(curr, "missing definition")
		}
		var child *Definition
		var err error
		if next.isArray {
			child = &Definition{Type: "array"}
			err = p.array(child, next.indent)
		} else {
			child = newObject(curr.additional)
			err = p.object(child, next.indent)
		}
		if err != nil {
			return nil, err
		}
		return decorate(child, curr), nil
	}
	if hasNext && next.indent > indent {
		return nil, parseErrorf(next, "wrong indentation")
	}
	return p.leaf(curr)
}

func (p *parser) leaf(curr line) (*Definition, error) {
	def, err := p.extrapolate(curr.def)
	if err != nil {
		return nil, parseErrorf(curr, "%v", err)
	}
	return decorate(def, curr), nil
}

func decorate(def *Definition, l line) *Definition {
	def.Description = l.desc
	def.Nullable = l.nullable
	def.ReadOnly = l.readOnly
	return def
}

// extrapolate expands one compact value definition.
func (p *parser) extrapolate(def string) (*Definition, error) {
	if inner, ok := strings.CutPrefix(def, "?"); ok {
		out, err := p.extrapolate(inner)
		if err != nil {
			return nil, err
		}
		out.Nullable = true
		return out, nil
	}
	switch def {
	case "date", "time", "date-time", "uri", "email":
		return &Definition{Type: "string", Format: def}, nil
	case "integer", "string", "boolean", "number":
		return &Definition{Type: def}, nil
	}
	if name, ok := strings.CutPrefix(def, "python:"); ok {
		provider, found := p.providers[name]
		if !found {
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		return provider(), nil
	}
	if strings.HasPrefix(def, `r"`) && strings.HasSuffix(def, `"`) {
		src := def[2 : len(def)-1]
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %v", src, err)
		}
		return &Definition{Type: "string", Pattern: src, pattern: re}, nil
	}
	if strings.HasPrefix(def, "[") && strings.HasSuffix(def, "]") {
		inner, err := p.extrapolate(strings.TrimSpace(def[1 : len(def)-1]))
		if err != nil {
			return nil, err
		}
		return &Definition{Type: "array", Items: inner}, nil
	}
	if isRange(def) {
		return parseRange(def)
	}
	if strings.Contains(def, "|") {
		return &Definition{Type: "string", Enum: strings.Split(def, "|")}, nil
	}
	if enumToken.MatchString(def) {
		// A bare token is a one-value enum, e.g. a lone non-calculable
		// reason code.
		return &Definition{Type: "string", Enum: []string{def}}, nil
	}
	return nil, fmt.Errorf("unknown type %q", def)
}

// isRange recognizes `min:max`, `:max` and `min:` numeric ranges.
func isRange(def string) bool {
	if strings.Count(def, ":") != 1 {
		return false
	}
	min, max, _ := strings.Cut(def, ":")
	if min == "" && max == "" {
		return false
	}
	return isNumeric(min) && isNumeric(max)
}

func isNumeric(s string) bool {
	if s == "" {
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func parseRange(def string) (*Definition, error) {
	// A dot anywhere makes the whole range a number.
	typ := "integer"
	if strings.Contains(def, ".") {
		typ = "number"
	}
	out := &Definition{Type: typ}
	min, max, _ := strings.Cut(def, ":")
	if min != "" {
		v, err := strconv.ParseFloat(min, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q", def)
		}
		out.Minimum = &v
	}
	if max != "" {
		v, err := strconv.ParseFloat(max, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q", def)
		}
		out.Maximum = &v
	}
	return out, nil
}

func newObject(additional bool) *Definition {
	return &Definition{
		Type:       "object",
		Properties: map[string]*Definition{},
		Additional: additional,
	}
}
