package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	StopOnError bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Execute notebook files in one session",
		Long: `Execute one or more notebook files in a single governed session.

Each file is split into cells at lines containing only %%. Cells run in order
and share state, across files too. A failed cell is reported and the run
continues unless --stop-on-error is set.

Example:
  notebook-kernel run analysis.go.nb
  notebook-kernel run --stop-on-error load.nb report.nb`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiles(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.StopOnError, "stop-on-error", false, "stop at the first failed cell")

	return cmd
}

func runFiles(cmd *cobra.Command, opts *RunOptions, paths []string) error {
	sources := make([]string, len(paths))
	for i, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read notebook", err)
		}
		sources[i] = string(b)
	}

	ctx := contextOf(cmd)
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	deps, err := bootstrap(ctx, opts.RootOptions, stdout)
	if err != nil {
		return err
	}
	defer closeDeps(ctx, deps, stderr)

	failed := 0
	for i, src := range sources {
		for _, cell := range SplitCells(src) {
			ok, err := executeCell(ctx, deps.Session, cell, stdout, stderr)
			if err != nil {
				return WrapExitError(ExitCommandError, "session failed", err)
			}
			if ok {
				continue
			}
			failed++
			if opts.StopOnError {
				return NewExitError(ExitFailure, fmt.Sprintf("cell failed in %s", paths[i]))
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d cell(s) failed", failed))
	}
	return nil
}
