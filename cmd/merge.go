package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/loomhaven/order-cli/internal/pipeline"
)

var (
	mergeSlip     string
	mergeShipping string
	mergeOutput   string
	mergeReport   string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge shipping labels with manufacturing labels by buyer",
	Long:  "Parses the packing slip, renders manufacturing labels, matches every shipping page to its buyer, and writes one PDF with each shipping label followed by that buyer's manufacturing labels. Prints a QC table listing buyers whose shipping label was not found.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("merge"); err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Merge(ctx, pipeline.MergeRequest{
			SlipPath:     mergeSlip,
			ShippingPath: mergeShipping,
		})
		if err != nil {
			return eris.Wrap(err, "merge")
		}

		if err := os.WriteFile(mergeOutput, result.Merged, 0o644); err != nil {
			return eris.Wrapf(err, "merge: write %s", mergeOutput)
		}

		fmt.Fprint(os.Stdout, pipeline.FormatQCTable(result.Run))
		fmt.Fprintf(os.Stdout, "\nwrote merged PDF to %s\n", mergeOutput)

		if mergeReport != "" {
			if err := pipeline.WriteQCReport(result.Run, mergeReport); err != nil {
				return eris.Wrapf(err, "merge: write report %s", mergeReport)
			}
			fmt.Fprintf(os.Stdout, "wrote QC report to %s\n", mergeReport)
		}

		if result.Run.Missing > 0 {
			zap.L().Warn("some buyers have no shipping label",
				zap.Int("missing", result.Run.Missing))
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeSlip, "slip", "", "packing slip PDF (required)")
	mergeCmd.Flags().StringVar(&mergeShipping, "shipping", "", "shipping labels PDF (required)")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "merged.pdf", "output PDF path")
	mergeCmd.Flags().StringVar(&mergeReport, "report", "", "write the QC report to this XLSX path")
	_ = mergeCmd.MarkFlagRequired("slip")
	_ = mergeCmd.MarkFlagRequired("shipping")
	rootCmd.AddCommand(mergeCmd)
}
