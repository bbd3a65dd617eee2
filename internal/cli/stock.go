package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"storefront_back_end/internal/stock"
)

func newStockCmd(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Read and adjust stock counters",
	}

	get := &cobra.Command{
		Use:   "get <product-id>...",
		Short: "Print the available quantity of products",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, done, err := opts.OpenLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			for _, id := range args {
				level, err := ledger.Level(cmd.Context(), id)
				if errors.Is(err, stock.ErrUnknownProduct) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tunknown\n", id)
					continue
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", level.ProductID, level.Quantity)
			}
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Overwrite the available quantity of a product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || qty < 0 {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			ledger, done, err := opts.OpenLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if err := ledger.Set(cmd.Context(), args[0], qty); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", args[0], qty)
			return nil
		},
	}

	release := &cobra.Command{
		Use:   "release <order-id>",
		Short: "Give back the stock held for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, done, err := opts.OpenLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			released, err := ledger.Release(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !released {
				fmt.Fprintf(cmd.OutOrStdout(), "no stock held for %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "released stock of %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(get, set, release)
	return cmd
}
