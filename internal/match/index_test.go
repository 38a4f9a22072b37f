package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSupplyIndex(t *testing.T) {
	idx := BuildSupplyIndex([]string{"John Smith", "Jane Doe", "John Smith"}, 3)

	require.Equal(t, []string{"JOHN SMITH", "JANE DOE"}, idx.Names())
	assert.Equal(t, []int{0, 2}, idx.Pages("JOHN SMITH"))
	assert.Equal(t, []int{1}, idx.Pages("JANE DOE"))
	assert.Equal(t, "John Smith", idx.DisplayName("JOHN SMITH"))
	assert.Empty(t, idx.Unassigned())
	assert.Empty(t, idx.Warnings())
	assert.Equal(t, 3, idx.PageCount())
}

func TestBuildSupplyIndexEveryPageAssignedOnce(t *testing.T) {
	names := []string{"A", "B", "A", "C", "B", "A"}
	// Single-letter rows still key the index; validation applies to scanned
	// candidates, not to slip rows.
	idx := BuildSupplyIndex(names, len(names))

	seen := make(map[int]bool)
	for _, n := range idx.Names() {
		for _, p := range idx.Pages(n) {
			assert.False(t, seen[p], "page %d assigned twice", p)
			seen[p] = true
		}
	}
	assert.Len(t, seen, len(names))
}

func TestBuildSupplyIndexMoreRowsThanPages(t *testing.T) {
	idx := BuildSupplyIndex([]string{"John Smith", "Jane Doe", "Amy Pond"}, 2)

	assert.NotEmpty(t, idx.Warnings())
	assert.Equal(t, []int{0}, idx.Pages("JOHN SMITH"))
	assert.Equal(t, []int{1}, idx.Pages("JANE DOE"))
	// Truncated generation: the row keys the index but owns no pages.
	assert.Empty(t, idx.Pages("AMY POND"))
	assert.Contains(t, idx.Names(), "AMY POND")
}

func TestBuildSupplyIndexMorePagesThanRows(t *testing.T) {
	idx := BuildSupplyIndex([]string{"John Smith"}, 3)

	assert.NotEmpty(t, idx.Warnings())
	assert.Equal(t, []int{0}, idx.Pages("JOHN SMITH"))
	assert.Equal(t, []int{1, 2}, idx.Unassigned())
}

func TestBuildSupplyIndexBlankBuyerName(t *testing.T) {
	idx := BuildSupplyIndex([]string{"John Smith", "   ", "Jane Doe"}, 3)

	assert.Equal(t, []string{"JOHN SMITH", "JANE DOE"}, idx.Names())
	// The blank row's page is unmatchable but must survive to the output.
	assert.Equal(t, []int{1}, idx.Unassigned())
	assert.NotEmpty(t, idx.Warnings())
}

func TestBuildSupplyIndexEmpty(t *testing.T) {
	idx := BuildSupplyIndex(nil, 0)

	assert.Empty(t, idx.Names())
	assert.Empty(t, idx.Unassigned())
	assert.Empty(t, idx.Warnings())
	assert.Equal(t, 0, idx.PageCount())
}
