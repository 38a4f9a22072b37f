package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loomhaven/order-cli/internal/pipeline"
)

var pushRetryFailed bool

var pushCmd = &cobra.Command{
	Use:   "push [slip.pdf]",
	Short: "Push orders from a packing slip to Airtable",
	Long:  "Parses the packing slip, groups lines into orders, and creates one Orders record plus linked line-item records per order. Failed pushes are queued locally; --retry-failed drains that queue instead of parsing a slip.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("push"); err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Airtable == nil {
			return eris.New("airtable token and base ID are required (ORDERCLI_AIRTABLE_TOKEN, ORDERCLI_AIRTABLE_BASE_ID)")
		}

		var summary *pipeline.PushSummary
		if pushRetryFailed {
			summary, err = env.Pipeline.RetryFailed(ctx)
		} else {
			if len(args) == 0 {
				return eris.New("push: a packing slip path is required unless --retry-failed is set")
			}
			summary, err = env.Pipeline.PushSlip(ctx, args[0])
		}
		if err != nil {
			return eris.Wrap(err, "push")
		}

		formatPushSummary(os.Stdout, summary)
		if summary.Failed > 0 {
			return eris.Errorf("push: %d of %d order(s) failed", summary.Failed, summary.Orders)
		}
		return nil
	},
}

func init() {
	pushCmd.Flags().BoolVar(&pushRetryFailed, "retry-failed", false, "retry previously failed pushes instead of parsing a slip")
	rootCmd.AddCommand(pushCmd)
}

// formatPushSummary writes the outcome counts of a push run to w.
func formatPushSummary(w io.Writer, s *pipeline.PushSummary) {
	fmt.Fprintf(w, "orders: %d, pushed: %d, failed: %d", s.Orders, s.Pushed, s.Failed)
	if s.Enqueued > 0 {
		fmt.Fprintf(w, " (%d queued for retry)", s.Enqueued)
	}
	fmt.Fprintln(w)
}
