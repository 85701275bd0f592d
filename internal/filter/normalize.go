package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// punctuationVariants maps lookalike punctuation to a canonical form so the
// blocklist matches titles regardless of the variant a provider emits.
// Full-width forms are handled by width.Fold before this table applies.
var punctuationVariants = strings.NewReplacer(
	"‐", "-", // hyphen
	"–", "-", // en dash
	"—", "-", // em dash
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"、", ",", // ideographic comma
	"。", ".", // ideographic full stop
)

// Normalize lowercases, folds full-width characters to their narrow
// equivalents, canonicalizes punctuation variants and collapses whitespace
// runs to single spaces. All substring matching in the pipeline runs over
// this form on both sides.
func Normalize(raw string) string {
	folded := width.Fold.String(raw)
	folded = punctuationVariants.Replace(folded)
	folded = strings.ToLower(folded)
	return collapseWhitespace(folded)
}

// NormalizeTitle is the comparison form for whitelist lookups: exact match,
// case-insensitive, whitespace-normalized. Punctuation is left alone so a
// whitelisted title must match verbatim apart from casing and spacing.
func NormalizeTitle(raw string) string {
	folded := width.Fold.String(raw)
	folded = strings.ToLower(folded)
	return collapseWhitespace(folded)
}

func collapseWhitespace(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	space := false
	for _, r := range value {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		value := Normalize(term)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
