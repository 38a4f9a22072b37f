package match

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/loomhaven/order-cli/internal/model"
)

// OCRFunc recognizes the text of one shipping page (0-based). Wired in by
// the caller so the scanner stays free of rasterizer details.
type OCRFunc func(ctx context.Context, page int) (string, error)

// anchorPrefixes are tried in order against each upper-cased line. Longer
// prefixes first so "SHIP TO" never degrades to the bare "TO" form.
var anchorPrefixes = []string{"SHIP TO:", "SHIP TO", "TO:", "TO "}

// PageMatch is a successful buyer identification on one shipping page.
type PageMatch struct {
	Buyer    string // normalized
	Score    int    // 0-100
	Strategy model.MatchStrategy
}

// Scanner identifies the buyer a shipping page belongs to. Strategies run
// in order of decreasing confidence and stop at the first hit: the "SHIP
// TO" address block, then a whole-page substring scan, then OCR when the
// page extracted almost no text (image-only labels).
type Scanner struct {
	cutoff       int
	ocrThreshold int
	ocr          OCRFunc
}

// NewScanner builds a scanner. cutoff is the minimum fuzzy score (0-100)
// for an anchor candidate to claim a known buyer; ocrThreshold is the
// extracted-text length below which a page is considered image-only. ocr
// may be nil to disable the fallback.
func NewScanner(cutoff, ocrThreshold int, ocr OCRFunc) *Scanner {
	return &Scanner{cutoff: cutoff, ocrThreshold: ocrThreshold, ocr: ocr}
}

// ScanPage returns the buyer for one shipping page, or ok=false when no
// strategy produced a name. page is 0-based and used only for OCR and
// logging. Per-page OCR failures downgrade to "no match"; the page still
// flows through to the merged output unlinked.
func (s *Scanner) ScanPage(ctx context.Context, page int, text string, idx *SupplyIndex) (PageMatch, bool) {
	if m, ok := s.anchorMatch(text, idx); ok {
		return m, true
	}
	if buyer, ok := s.fullTextMatch(text, idx); ok {
		return PageMatch{Buyer: buyer, Score: 95, Strategy: model.StrategyFullText}, true
	}

	if s.ocr == nil || len(strings.TrimSpace(text)) >= s.ocrThreshold {
		return PageMatch{}, false
	}

	ocrText, err := s.ocr(ctx, page)
	if err != nil {
		zap.L().Warn("ocr failed, page passes through unmatched",
			zap.Int("page", page+1),
			zap.Error(err))
		return PageMatch{}, false
	}
	if buyer, ok := s.fullTextMatch(ocrText, idx); ok {
		return PageMatch{Buyer: buyer, Score: 90, Strategy: model.StrategyOCR}, true
	}
	return PageMatch{}, false
}

// anchorMatch walks the page lines looking for a "SHIP TO" / "TO" header
// and treats the same-line remainder or the next non-blank line as the
// candidate name. The candidate must survive IsNameCandidate, then either
// equal a known buyer exactly or beat the fuzzy cutoff against one.
func (s *Scanner) anchorMatch(text string, idx *SupplyIndex) (PageMatch, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		candidate, ok := anchorCandidate(lines, i, line)
		if !ok || !IsNameCandidate(candidate) {
			continue
		}
		norm := NormalizeName(candidate)
		if norm == "" {
			continue
		}

		if _, known := idx.pages[norm]; known {
			return PageMatch{Buyer: norm, Score: 100, Strategy: model.StrategyAnchor}, true
		}

		best, bestScore := "", 0
		for _, name := range idx.Names() {
			if score := Similarity(norm, name); score > bestScore {
				best, bestScore = name, score
			}
		}
		if bestScore >= s.cutoff {
			return PageMatch{Buyer: best, Score: bestScore, Strategy: model.StrategyAnchor}, true
		}
	}
	return PageMatch{}, false
}

// anchorCandidate extracts the name candidate that follows an anchor token
// at lines[i], preferring the same-line remainder over the next non-blank
// line.
func anchorCandidate(lines []string, i int, line string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(line))
	for _, prefix := range anchorPrefixes {
		var rest string
		switch {
		case strings.HasPrefix(upper, prefix):
			rest = strings.TrimSpace(strings.TrimSpace(line)[len(prefix):])
		case upper == strings.TrimSpace(prefix):
			rest = ""
		default:
			continue
		}
		if rest != "" {
			return rest, true
		}
		for j := i + 1; j < len(lines); j++ {
			if next := strings.TrimSpace(lines[j]); next != "" {
				return next, true
			}
		}
		return "", false
	}
	return "", false
}

// fullTextMatch tests every known buyer for substring presence in the
// page text, both sides normalized. First hit in index order wins so the
// result is deterministic.
func (s *Scanner) fullTextMatch(text string, idx *SupplyIndex) (string, bool) {
	pageNorm := NormalizeName(text)
	if pageNorm == "" {
		return "", false
	}
	for _, name := range idx.Names() {
		if strings.Contains(pageNorm, name) {
			return name, true
		}
	}
	return "", false
}
