package match

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/loomhaven/order-cli/internal/model"
)

// PageSource identifies which input document a merged page comes from.
type PageSource string

const (
	SourceShipping PageSource = "shipping"
	SourceLabels   PageSource = "labels"
)

// PageRef is one page of the merged output: a 0-based page of either the
// shipping document or the labels document.
type PageRef struct {
	Source PageSource
	Page   int
}

// MergeOutcome is the full result of a merge: the exact output page
// sequence, per-match detail, and the QC report rows.
type MergeOutcome struct {
	Sequence []PageRef
	Results  []model.MatchResult
	Entries  []model.QCEntry
	Matched  int
	Missing  int
	Warnings []string
}

// Merge interleaves shipping pages with the manufacturing pages of the
// buyer each one matched. Greedy, in shipping page order, first claim
// wins: a buyer already claimed by an earlier page stays claimed, and the
// later page is emitted alone. Buyers never claimed have their pages
// appended at the end as an orphan section and reported MISSING.
//
// pageMatches holds one entry per shipping page in document order; nil
// marks a page no strategy could name. Every page of both documents
// appears in the output sequence exactly once.
func Merge(idx *SupplyIndex, pageMatches []*PageMatch) *MergeOutcome {
	out := &MergeOutcome{}
	out.Warnings = append(out.Warnings, idx.Warnings()...)

	claimed := make(map[string]int)

	for p, m := range pageMatches {
		out.Sequence = append(out.Sequence, PageRef{Source: SourceShipping, Page: p})
		if m == nil {
			continue
		}
		if prev, taken := claimed[m.Buyer]; taken {
			out.Warnings = append(out.Warnings, fmt.Sprintf(
				"shipping page %d matched %q already claimed by page %d; emitted unlinked",
				p+1, idx.DisplayName(m.Buyer), prev))
			continue
		}
		claimed[m.Buyer] = p + 1

		labelPages := idx.Pages(m.Buyer)
		out.Results = append(out.Results, model.MatchResult{
			Buyer:        idx.DisplayName(m.Buyer),
			ShippingPage: p + 1,
			LabelPages:   labelPages,
			Score:        m.Score,
			Strategy:     m.Strategy,
		})
		for _, lp := range labelPages {
			out.Sequence = append(out.Sequence, PageRef{Source: SourceLabels, Page: lp})
		}
	}

	// Orphan section: label pages whose buyer no shipping page claimed.
	for _, name := range idx.Names() {
		if _, ok := claimed[name]; ok {
			continue
		}
		for _, lp := range idx.Pages(name) {
			out.Sequence = append(out.Sequence, PageRef{Source: SourceLabels, Page: lp})
		}
	}
	for _, lp := range idx.Unassigned() {
		out.Sequence = append(out.Sequence, PageRef{Source: SourceLabels, Page: lp})
	}

	// QC rows in index order, one per buyer.
	for _, name := range idx.Names() {
		entry := model.QCEntry{Buyer: idx.DisplayName(name), Status: model.QCMissing}
		if page, ok := claimed[name]; ok {
			entry.Status = model.QCMatched
			entry.ShippingPage = page
			for _, r := range out.Results {
				if r.ShippingPage == page {
					entry.Score = r.Score
					entry.Strategy = r.Strategy
					break
				}
			}
			out.Matched++
		} else {
			out.Missing++
			zap.L().Debug("no shipping label found for buyer",
				zap.String("buyer", idx.DisplayName(name)))
		}
		out.Entries = append(out.Entries, entry)
	}

	return out
}
