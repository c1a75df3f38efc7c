package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var whitespaceRegex = regexp.MustCompile(`[\s\x{3000}\x{00a0}]+`)

// minus-like runes that width folding leaves alone
var minusReplacer = strings.NewReplacer(
	"−", "-", // minus sign
	"‐", "-", // hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
)

// Fold converts full-width ascii variants (digits, signs, parentheses, slashes, spaces)
// into their ascii forms and leaves everything else as is.
func Fold(s string) string {
	return minusReplacer.Replace(width.Fold.String(s))
}

// StripSpace removes every whitespace rune, including ideographic and no-break spaces.
func StripSpace(s string) string {
	return whitespaceRegex.ReplaceAllString(s, "")
}

// Collapse trims s and collapses inner runs of whitespace into a single ascii space.
func Collapse(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

var slugRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Slug keeps the letters and digits (of any script) of a folded name and joins
// the runs in between with underscores.
func Slug(name string) string {
	return strings.Trim(slugRegex.ReplaceAllString(Fold(name), "_"), "_")
}

// NormalizeName lowercases and strips whitespace so that names can be compared loosely.
func NormalizeName(name string) string {
	return strings.ToLower(StripSpace(Fold(name)))
}

// MatchName reports whether the normalized name contains any of the matchers.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}
