package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loomhaven/order-cli/internal/model"
	"github.com/loomhaven/order-cli/internal/store"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List stored order lines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		orderID, _ := cmd.Flags().GetString("order-id")
		buyer, _ := cmd.Flags().GetString("buyer")
		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")

		lines, err := st.ListOrderLines(ctx, store.LineFilter{
			OrderID:    orderID,
			BuyerName:  buyer,
			SourceFile: source,
			Limit:      limit,
		})
		if err != nil {
			return eris.Wrap(err, "orders")
		}

		if len(lines) == 0 {
			fmt.Fprintln(os.Stderr, "No stored order lines. Run parse --save first.")
			return nil
		}

		formatStoredLines(os.Stdout, lines)
		return nil
	},
}

func init() {
	ordersCmd.Flags().String("order-id", "", "filter by Amazon order ID")
	ordersCmd.Flags().String("buyer", "", "filter by buyer name")
	ordersCmd.Flags().String("source", "", "filter by source slip file name")
	ordersCmd.Flags().Int("limit", 50, "max number of lines to display")
	rootCmd.AddCommand(ordersCmd)
}

// formatStoredLines writes a tabular list of stored order lines to w.
func formatStoredLines(out io.Writer, lines []model.StoredOrderLine) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ORDER_ID\tBUYER\tNAME\tQTY\tSOURCE\tPARSED")
	_, _ = fmt.Fprintln(w, "--------\t-----\t----\t---\t------\t------")

	for _, l := range lines {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			l.OrderID,
			l.BuyerName,
			l.CustomizationName,
			l.Quantity,
			l.SourceFile,
			l.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
