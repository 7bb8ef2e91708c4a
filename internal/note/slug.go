package note

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// dashFold maps en dash, em dash, and minus sign to a plain hyphen before
// the rest of the normalisation runs.
var dashFold = strings.NewReplacer("–", "-", "—", "-", "−", "-")

// Slugify converts heading text to its anchor slug: lowercase, unicode
// dashes folded to "-", diacritics stripped via NFKD decomposition,
// punctuation dropped, whitespace runs collapsed to single hyphens.
// Slugify is idempotent: applying it to a slug returns the slug.
func Slugify(text string) string {
	s := dashFold.Replace(strings.ToLower(text))
	s = norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r):
			// Combining mark left over from decomposition.
		case r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	out := strings.Join(strings.Fields(b.String()), "-")
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, "-")
}
