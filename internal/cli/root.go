package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/config"
	"storefront_back_end/internal/stock"
)

// Options lets tests replace the backing services of the commands.
type Options struct {
	// OpenLedger returns the stock ledger and a function releasing it.
	OpenLedger func(ctx context.Context) (stock.Ledger, func(), error)
	// OpenProductCache returns the product cache and a function releasing it.
	OpenProductCache func(ctx context.Context) (ProductCache, func(), error)
	// JWTSecret is the default signing secret of `token issue`.
	JWTSecret string
}

func NewRootCmd(opts Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "Operator tools for the storefront back end",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newStockCmd(opts))
	root.AddCommand(newTokenCmd(opts))
	root.AddCommand(newCatalogCmd(opts))
	return root
}

// Execute runs shopctl against the services named in the environment.
func Execute(version string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}

	connect := func(ctx context.Context) (*redis.Client, error) {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisHost, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisHost, err)
		}
		return client, nil
	}

	root := NewRootCmd(Options{
		OpenLedger: func(ctx context.Context) (stock.Ledger, func(), error) {
			client, err := connect(ctx)
			if err != nil {
				return nil, nil, err
			}
			return stock.NewRedisLedger(client), func() { client.Close() }, nil
		},
		OpenProductCache: func(ctx context.Context) (ProductCache, func(), error) {
			client, err := connect(ctx)
			if err != nil {
				return nil, nil, err
			}
			// Only the cache is touched, no lookup goes through.
			return catalog.NewCached(nil, client), func() { client.Close() }, nil
		},
		JWTSecret: cfg.JWTSecret,
	})
	root.Version = version

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
