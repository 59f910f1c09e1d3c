package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/governed-notebook/internal/observability"
	"github.com/upb/governed-notebook/repositories/sqldb"
)

// NewMigrateCommand creates the audit schema command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the audit table and indexes",
		Long: `Create code_execution_logs and its indexes in the audit store named by
AUDIT_DB_CONNECTION. The statements are idempotent. PostgreSQL only.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			cfg, err := loadConfig(ctx, rootOpts)
			if err != nil {
				return err
			}
			if !cfg.AuditEnabled() {
				return NewExitError(ExitCommandError, "AUDIT_DB_CONNECTION is not set")
			}

			logger, err := observability.NewLogger(cfg.Observability)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to build logger", err)
			}
			defer logger.Sync()

			db, err := sqldb.NewDB(*cfg.AuditDatabase, logger)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open audit store", err)
			}
			defer db.Close()

			if err := db.InitAuditSchema(ctx); err != nil {
				return WrapExitError(ExitCommandError, "failed to create audit schema", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "audit schema ready (%s)\n", cfg.AuditDatabase.LogString())
			return nil
		},
	}
}
