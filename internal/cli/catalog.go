package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// ProductCache is the cached side of the catalog.
type ProductCache interface {
	Invalidate(ctx context.Context, productIDs ...string) error
}

func newCatalogCmd(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog cache maintenance",
	}

	invalidate := &cobra.Command{
		Use:   "invalidate <product-id>...",
		Short: "Drop cached products so the next lookup reads ScyllaDB",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, done, err := opts.OpenProductCache(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if err := cache.Invalidate(cmd.Context(), args...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invalidated %d product(s)\n", len(args))
			return nil
		},
	}

	cmd.AddCommand(invalidate)
	return cmd
}
