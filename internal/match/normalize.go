package match

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// honorifics covers courtesy titles and generational suffixes that shipping
// labels include inconsistently (packing slips almost never do).
var honorifics = regexp.MustCompile(`(?i)\b(?:MRS|MR|MS|DR|JR|SR|IV|III|II|I)\b`)

// disallowed matches everything outside letters, digits, whitespace, hyphen.
var disallowed = regexp.MustCompile(`[^\p{L}\p{N}\s-]+`)

var multiSpace = regexp.MustCompile(`\s+`)

// NormalizeName canonicalizes a buyer name for matching by:
//  1. Recomposing Unicode (PDF extractors emit decomposed accents)
//  2. Stripping everything except letters, digits, whitespace, hyphen
//  3. Removing honorifics and generational suffixes
//  4. Collapsing whitespace runs to single spaces
//  5. Upper-casing and trimming
//
// Punctuation is stripped before the honorific pass so "M.R." and "MR"
// reduce the same way and re-normalizing a result is a no-op.
// The output is for comparison only and is never shown to the user.
// Empty input yields empty output.
func NormalizeName(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	n := norm.NFC.String(name)
	n = disallowed.ReplaceAllString(n, "")
	n = honorifics.ReplaceAllString(n, " ")
	n = multiSpace.ReplaceAllString(n, " ")
	n = strings.ToUpper(n)
	return strings.TrimSpace(n)
}
