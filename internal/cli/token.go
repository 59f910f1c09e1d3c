package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/upb/governed-notebook/middleware"
)

// NewTokenCommand creates the command that signs a gateway token for the
// session user. The hub normally does this itself.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Print a gateway token for the session user",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(contextOf(cmd), rootOpts)
			if err != nil {
				return err
			}
			tok, err := middleware.IssueToken(cfg.Auth.TokenSecret, cfg.Session.Username, cfg.Session.SessionName, ttl)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to sign token", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	return cmd
}
