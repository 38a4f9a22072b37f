package slip

import (
	"regexp"
	"strings"
)

// Packing slip text extraction leaves hex color codes, box-drawing glyphs,
// and storefront boilerplate embedded in field values.
var (
	hexColorCode = regexp.MustCompile(`\(#?[A-Fa-f0-9]{3,6}\)`)
	artifacts    = regexp.MustCompile(`■|Seller Name|Your Orders|Returning your item:`)
	spaceRuns    = regexp.MustCompile(`\s{2,}`)
)

// Clean strips extraction artifacts from a captured field value.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = hexColorCode.ReplaceAllString(s, "")
	s = artifacts.ReplaceAllString(s, "")
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
