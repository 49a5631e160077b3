package reference

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Key reduces a place name or header to its matching key: diacritics are
// removed, case is folded and everything but letters and digits is dropped.
// "Región I", "REGION-I" and "region i" share the key "regioni".
func Key(s string) string {
	// Transformers and casers carry state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FoldName prepares a display name for case-insensitive exact comparison.
func FoldName(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// BaseIdentifier trims id and drops any ".suffix", so "100001.0" becomes "100001".
func BaseIdentifier(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.IndexByte(id, '.'); i >= 0 {
		id = id[:i]
	}
	return strings.TrimSpace(id)
}
