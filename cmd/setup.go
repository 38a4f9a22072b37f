package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loomhaven/order-cli/pkg/airtable"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the Airtable tables",
	Long:  "Creates the Orders and Order Line Items tables in the configured base, with all status options and the record link between them. Tables that already exist are left untouched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("setup"); err != nil {
			return err
		}

		client, err := initAirtable()
		if err != nil {
			return err
		}

		schema, err := airtable.EnsureSchema(ctx, client, cfg.Airtable.OrdersTable, cfg.Airtable.ItemsTable)
		if err != nil {
			return eris.Wrap(err, "setup")
		}

		report := func(name, id string, created bool) {
			state := "already exists"
			if created {
				state = "created"
			}
			fmt.Fprintf(os.Stdout, "%s: %s (%s)\n", name, state, id)
		}
		report(cfg.Airtable.OrdersTable, schema.OrdersTableID, schema.CreatedOrders)
		report(cfg.Airtable.ItemsTable, schema.LineItemsTableID, schema.CreatedLineItems)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
