package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Diony-dev/Veloce/internal/tenant"
)

func newTokenCommand(deps Deps) *cobra.Command {
	var (
		org  string
		user string
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API bearer token for an organization member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orgID, err := uuid.Parse(strings.TrimSpace(org))
			if err != nil {
				return fmt.Errorf("--org: %w", err)
			}
			r := tenant.Role(role)
			if r != tenant.RoleAdmin && r != tenant.RoleMember {
				return fmt.Errorf("--role must be %s or %s", tenant.RoleAdmin, tenant.RoleMember)
			}
			if deps.Verifier == nil {
				return errors.New("token signing not configured")
			}
			verifier, err := deps.Verifier()
			if err != nil {
				return err
			}
			token, err := verifier.Issue(tenant.Actor{UserID: user, OrganizationID: orgID, Role: r}, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "organization id (required)")
	cmd.Flags().StringVar(&user, "user", "veloctl", "subject recorded on ledger writes")
	cmd.Flags().StringVar(&role, "role", string(tenant.RoleMember), "admin or member")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
