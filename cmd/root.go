package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/loomhaven/order-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "order-cli",
	Short: "Amazon order processing for embroidered blankets",
	Long:  "Parses Amazon packing slips, renders manufacturing labels, merges shipping labels with them by buyer name, and pushes orders to Airtable.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
