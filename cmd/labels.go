package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loomhaven/order-cli/internal/pipeline"
)

var labelsOutput string

var labelsCmd = &cobra.Command{
	Use:   "labels <slip.pdf>",
	Short: "Render manufacturing labels for a packing slip",
	Long:  "Parses the packing slip and renders one label page per order line with the customization details the embroiderer needs.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("labels"); err != nil {
			return err
		}

		p, err := pipeline.New(cfg, nil, nil, nil)
		if err != nil {
			return err
		}

		pdf, lines, err := p.RenderLabels(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "labels")
		}

		if err := os.WriteFile(labelsOutput, pdf, 0o644); err != nil {
			return eris.Wrapf(err, "labels: write %s", labelsOutput)
		}

		fmt.Fprintf(os.Stdout, "wrote %d label page(s) to %s\n", len(lines), labelsOutput)
		return nil
	},
}

func init() {
	labelsCmd.Flags().StringVarP(&labelsOutput, "output", "o", "labels.pdf", "output PDF path")
	rootCmd.AddCommand(labelsCmd)
}
