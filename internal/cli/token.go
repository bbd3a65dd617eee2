package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storefront_back_end/internal/auth"
)

func newTokenCmd(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Bearer tokens for staff and test shoppers",
	}

	var (
		userID, email, role, secret string
		caps                        []string
		ttl                         time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			if secret == "" {
				secret = opts.JWTSecret
			}
			if secret == "" {
				return errors.New("no signing secret: set JWT_SECRET or --secret")
			}

			identity := auth.Identity{UserID: userID, Email: email, Role: role}
			for _, c := range caps {
				identity.Capabilities = append(identity.Capabilities, auth.Capability(c))
			}
			token, err := auth.NewIssuer(secret, ttl).Issue(identity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&userID, "user", "", "User id (required)")
	issue.Flags().StringVar(&email, "email", "", "E-mail address")
	issue.Flags().StringVar(&role, "role", "", "Role: admin, inventory_manager, customer_service")
	issue.Flags().StringSliceVar(&caps, "cap", nil, "Extra capability, e.g. inventory.edit")
	issue.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Validity")
	issue.Flags().StringVar(&secret, "secret", "", "Signing secret (defaults to JWT_SECRET)")

	cmd.AddCommand(issue)
	return cmd
}
