package match

import (
	"regexp"
	"strings"
	"unicode"
)

// Shipping labels interleave names with address and carrier metadata and
// offer no structured field to read, so candidate lines are filtered
// heuristically before any name comparison happens.
var (
	streetNumber = regexp.MustCompile(`^\d+\s`)
	zipTail      = regexp.MustCompile(`\b\d{5}(?:-\d{4})?$`)
	stateZipLine = regexp.MustCompile(`(?i)^[A-Z]{2}\s+\d{5}(?:-\d{4})?$`)
	streetSuffix = regexp.MustCompile(`(?i)\b(?:AVE|AVENUE|ST|STREET|RD|ROAD|DR|DRIVE|BLVD|BOULEVARD|LN|LANE|CT|COURT|WAY|PL|PLACE|CIR|CIRCLE|HWY|PKWY|TER)\.?$`)

	// carrierTokens rejects lines of pure logistics metadata.
	carrierTokens = regexp.MustCompile(`(?i)\b(?:TRACKING|USPS|UPS|FEDEX|DHL|GROUND|PRIORITY|EXPRESS|MAIL|POSTAGE|SHIPPING|LBS|OZ)\b`)
)

// IsNameCandidate reports whether a raw extracted line could plausibly be a
// buyer name. It gates lines before normalization: length at least 3, at
// least one letter, not a street address, not a city/state/ZIP line, and no
// carrier metadata tokens.
func IsNameCandidate(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) < 3 {
		return false
	}

	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}

	if streetNumber.MatchString(line) {
		return false
	}
	if zipTail.MatchString(line) {
		return false
	}
	if stateZipLine.MatchString(line) {
		return false
	}
	if carrierTokens.MatchString(line) {
		return false
	}
	if streetSuffix.MatchString(line) {
		return false
	}
	return true
}
