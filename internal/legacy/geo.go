package legacy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"parite/internal/domain"
)

var (
	regionCodes      map[string]string
	departementCodes map[string]string
)

func init() {
	regionCodes = invert(domain.Regions)
	departementCodes = invert(domain.Departements)
}

// invert builds a normalized name to code lookup, keeping the codes
// themselves as keys so already normalized input passes through.
func invert(byCode map[string]string) map[string]string {
	out := make(map[string]string, len(byCode)*2)
	for code, name := range byCode {
		out[foldGeo(code)] = code
		out[foldGeo(name)] = code
	}
	return out
}

// foldGeo strips accents, case and separators so spelling variants like
// "Ile-de-France" and "Île de France" resolve to the same key.
func foldGeo(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RegionCode resolves a region code or name to its INSEE code. Unknown
// values are returned unchanged so schema validation reports them.
func RegionCode(v string) string {
	if code, ok := regionCodes[foldGeo(v)]; ok {
		return code
	}
	return v
}

// DepartementCode resolves a department code or name to its INSEE code.
func DepartementCode(v string) string {
	if code, ok := departementCodes[foldGeo(v)]; ok {
		return code
	}
	return v
}
