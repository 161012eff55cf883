package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/trivia-bot/internal/auth"
	"github.com/gokatarajesh/trivia-bot/internal/auth/jwt"
	"github.com/gokatarajesh/trivia-bot/internal/config"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage staff API tokens",
	}
	cmd.AddCommand(newTokenIssueCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		subject string
		name    string
		role    string
		servers []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token for the staff HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != auth.RoleAdmin && role != auth.RoleStaff {
				return fmt.Errorf("role must be %q or %q", auth.RoleAdmin, auth.RoleStaff)
			}
			var sec config.Security
			if err := config.LoadSection(&sec); err != nil {
				return err
			}
			if ttl == 0 {
				ttl = sec.TokenTTL
			}
			tokens := jwt.NewManager(jwt.TokenConfig{Secret: []byte(sec.JWTSecret), TTL: ttl, Issuer: sec.JWTIssuer})
			token, expires, err := tokens.Issue(jwt.Staff{ID: subject, DisplayName: name, Role: role, ServerIDs: servers})
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", token)
			printf(cmd.ErrOrStderr(), "expires %s\n", expires.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "staff member id")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", auth.RoleStaff, "admin or staff")
	cmd.Flags().StringSliceVar(&servers, "servers", nil, "limit the token to these server ids")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_TTL)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
