package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var multiSpace = regexp.MustCompile(`\s+`)

// stripMarks decomposes characters and removes combining marks, folding OCR
// artifacts like "Urinälysis" down to plain ASCII where possible.
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CleanDescription trims, collapses whitespace, and folds unicode
// decorations out of an extracted line-item description. The original casing
// is preserved for display.
func CleanDescription(s string) string {
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return multiSpace.ReplaceAllString(strings.TrimSpace(s), " ")
}

// GroupKey returns the case- and whitespace-insensitive key used to group
// duplicate charges: "CBC" and " cbc " share a key.
func GroupKey(s string) string {
	return strings.ToLower(CleanDescription(s))
}
