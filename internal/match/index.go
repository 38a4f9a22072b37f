package match

import "fmt"

// SupplyIndex maps normalized buyer names to the manufacturing label pages
// generated for them. Rows and pages are paired in lockstep, so page i of
// the labels document belongs to row i of the order table.
//
// The index itself is immutable after construction; claim tracking during a
// merge belongs to the caller.
type SupplyIndex struct {
	pages      map[string][]int
	display    map[string]string
	order      []string
	unassigned []int
	warnings   []string
}

// BuildSupplyIndex pairs order rows with label pages. buyerNames holds the
// raw buyer name of each row in table order; pageCount is the page count of
// the rendered labels document.
//
// Count mismatches are data-integrity warnings, not errors: rows beyond the
// page count map to no pages, and pages beyond the row count are kept as
// unassigned so the merged output still carries every input page.
func BuildSupplyIndex(buyerNames []string, pageCount int) *SupplyIndex {
	idx := &SupplyIndex{
		pages:   make(map[string][]int),
		display: make(map[string]string),
	}

	if len(buyerNames) != pageCount {
		idx.warnings = append(idx.warnings, fmt.Sprintf(
			"order rows (%d) and label pages (%d) differ; alignment is best-effort",
			len(buyerNames), pageCount))
	}

	for i, raw := range buyerNames {
		norm := NormalizeName(raw)
		if norm == "" {
			if i < pageCount {
				idx.unassigned = append(idx.unassigned, i)
				idx.warnings = append(idx.warnings, fmt.Sprintf(
					"row %d has no usable buyer name; its label page cannot be matched", i+1))
			}
			continue
		}
		if _, seen := idx.pages[norm]; !seen {
			idx.order = append(idx.order, norm)
			idx.display[norm] = raw
			idx.pages[norm] = nil
		}
		if i < pageCount {
			idx.pages[norm] = append(idx.pages[norm], i)
		}
	}

	for i := len(buyerNames); i < pageCount; i++ {
		idx.unassigned = append(idx.unassigned, i)
	}

	return idx
}

// Names returns the normalized buyer names in first-appearance order.
func (x *SupplyIndex) Names() []string {
	out := make([]string, len(x.order))
	copy(out, x.order)
	return out
}

// Pages returns the 0-based label page numbers for a normalized buyer name.
func (x *SupplyIndex) Pages(norm string) []int {
	return x.pages[norm]
}

// DisplayName returns the raw buyer name first seen for a normalized key.
func (x *SupplyIndex) DisplayName(norm string) string {
	if d, ok := x.display[norm]; ok {
		return d
	}
	return norm
}

// Unassigned returns label pages that no buyer owns (count mismatches and
// rows without a usable name). They ride along into the orphan section.
func (x *SupplyIndex) Unassigned() []int {
	return x.unassigned
}

// Warnings returns data-integrity warnings collected during construction.
func (x *SupplyIndex) Warnings() []string {
	return x.warnings
}

// PageCount returns the number of label pages assigned to buyers.
func (x *SupplyIndex) PageCount() int {
	n := 0
	for _, p := range x.pages {
		n += len(p)
	}
	return n
}
