package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/loomhaven/order-cli/internal/model"
)

// FormatQCTable renders the merge outcome as a human-readable report. The
// MISSING rows are the ones a packer must resolve by hand before shipping.
func FormatQCTable(run *model.MergeRun) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Merge QC: %s + %s\n", run.SlipFile, run.ShippingFile)
	if run.ID != "" {
		fmt.Fprintf(&b, "Run: %s\n", run.ID)
	}
	fmt.Fprintf(&b, "Shipping pages: %d, label pages: %d\n\n",
		run.ShippingPages, run.LabelPages)

	b.WriteString("## Buyers\n")
	if len(run.Entries) == 0 {
		b.WriteString("No buyers in slip.\n")
	}
	for _, e := range run.Entries {
		fmt.Fprintf(&b, "- %s: %s", e.Buyer, e.StatusLabel())
		if e.Status == model.QCMatched {
			fmt.Fprintf(&b, " [%s, %d%%]", e.Strategy, e.Score)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Summary\n")
	fmt.Fprintf(&b, "- Matched: %d\n", run.Matched)
	fmt.Fprintf(&b, "- Missing: %d\n", run.Missing)

	if len(run.Warnings) > 0 {
		b.WriteString("\n## Warnings\n")
		for _, w := range run.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}

// WriteQCReport saves the QC rows as a spreadsheet, one row per buyer.
func WriteQCReport(run *model.MergeRun, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"buyer", "status", "shipping_page", "score", "strategy"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, e := range run.Entries {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, e.Buyer)
		set(2, string(e.Status))
		if e.Status == model.QCMatched {
			set(3, e.ShippingPage)
			set(4, e.Score)
			set(5, string(e.Strategy))
		}
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return f.SaveAs(outputPath)
}
