package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loomhaven/order-cli/internal/model"
)

var (
	parseJSON bool
	parseSave bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <slip.pdf>",
	Short: "Extract order lines from an Amazon packing slip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("parse"); err != nil {
			return err
		}
		if parseSave {
			if err := cfg.Validate("store"); err != nil {
				return err
			}
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.ParseSlip(ctx, args[0], parseSave)
		if err != nil {
			return eris.Wrap(err, "parse")
		}

		if parseJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Lines)
		}

		formatOrderLines(os.Stdout, result.Lines)
		fmt.Fprintf(os.Stdout, "\n%d order line(s) on %d page(s)\n", len(result.Lines), result.Pages)
		if parseSave {
			fmt.Fprintf(os.Stdout, "saved %d line(s) to store\n", len(result.Stored))
		}
		return nil
	},
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print order lines as JSON")
	parseCmd.Flags().BoolVar(&parseSave, "save", false, "persist the parsed lines to the store")
	rootCmd.AddCommand(parseCmd)
}

// formatOrderLines writes a tabular list of order lines to w.
func formatOrderLines(out io.Writer, lines []model.OrderLine) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ORDER_ID\tBUYER\tNAME\tQTY\tBLANKET\tTHREAD\tEXTRAS")
	_, _ = fmt.Fprintln(w, "--------\t-----\t----\t---\t-------\t------\t------")

	for _, l := range lines {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			l.OrderID,
			l.BuyerName,
			l.CustomizationName,
			l.Quantity,
			l.BlanketColor,
			l.ThreadColor,
			lineExtras(l),
		)
	}
	_ = w.Flush()
}

// lineExtras renders the add-on flags compactly, e.g. "beanie,gift-box".
func lineExtras(l model.OrderLine) string {
	var extras []string
	if l.Beanie {
		extras = append(extras, "beanie")
	}
	if l.GiftBox {
		extras = append(extras, "gift-box")
	}
	if l.GiftNote {
		extras = append(extras, "gift-note")
	}
	return strings.Join(extras, ",")
}
