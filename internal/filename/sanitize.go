package filename

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxBaseLength is the maximum number of characters kept from a base name.
const MaxBaseLength = 60

// illegalChars are replaced because at least one common filesystem rejects them.
const illegalChars = `<>:"/\|?*`

// Sanitize converts a title into a filesystem-safe string.
// Accents are folded, the result is lower-cased, characters illegal on common
// filesystems are replaced with '_', runs of whitespace collapse to a single
// space, and leading/trailing spaces and trailing dots are removed.
func Sanitize(title string) string {
	folded, _, err := transform.String(accentFolder(), title)
	if err != nil {
		folded = title
	}
	folded = cases.Lower(language.Und).String(folded)

	var sb strings.Builder
	lastSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				sb.WriteRune(' ')
			}
			lastSpace = true
			continue
		case unicode.IsControl(r) || strings.ContainsRune(illegalChars, r):
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
		lastSpace = false
	}

	return strings.TrimRight(strings.TrimSpace(sb.String()), ". ")
}

// accentFolder decomposes characters, drops combining marks and recomposes.
// A new transformer is built per call since transformers carry state.
func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
