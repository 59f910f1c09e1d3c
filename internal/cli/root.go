// Package cli implements the notebook-kernel command line.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/upb/governed-notebook/app"
	"github.com/upb/governed-notebook/config"
	"github.com/upb/governed-notebook/internal/observability"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the kernel CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "notebook-kernel",
		Short: "Governed notebook kernel",
		Long: `A notebook kernel for governed data analysis.

Cells are Go source run by an embedded interpreter. File exports, interactive
input and process execution are denied, queries are restricted to SELECT, and
every executed cell is recorded in the audit store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// loadConfig reads the environment and applies global flags
func loadConfig(ctx context.Context, opts *RootOptions) (*config.Config, error) {
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if opts.Verbose {
		cfg.Observability.LogLevel = "debug"
	}
	return cfg, nil
}

// bootstrap builds the process dependencies. Cell output is mirrored to
// stdout when it is not nil.
func bootstrap(ctx context.Context, opts *RootOptions, stdout io.Writer) (*app.Dependencies, error) {
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build logger", err)
	}
	deps, err := app.NewDependencies(ctx, cfg, logger, stdout)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to start kernel", err)
	}
	return deps, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func closeDeps(ctx context.Context, deps *app.Dependencies, w io.Writer) {
	if err := deps.Close(ctx); err != nil {
		fmt.Fprintf(w, "shutdown: %v\n", err)
	}
}
