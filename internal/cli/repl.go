package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	promptFirst = ">>> "
	promptMore  = "... "
)

// NewReplCommand creates the interactive session command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Long: `Start an interactive governed session reading cells from stdin.

A cell ends at a line containing only %% or at end of input. Ctrl-C
interrupts the running cell; the session keeps its state.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, rootOpts)
		},
	}
}

func runRepl(cmd *cobra.Command, opts *RootOptions) error {
	ctx := contextOf(cmd)
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	deps, err := bootstrap(ctx, opts, stdout)
	if err != nil {
		return err
	}
	defer closeDeps(ctx, deps, stderr)

	if deps.Config.Kernel.ShowBanner {
		fmt.Fprintln(stdout, deps.Session.Banner())
	}

	interactive := isTerminal(cmd.InOrStdin())
	prompt := func(p string) {
		if interactive {
			fmt.Fprint(stdout, p)
		}
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	var lines []string
	runPending := func() error {
		code := strings.Join(lines, "\n")
		lines = lines[:0]
		if strings.TrimSpace(code) == "" {
			return nil
		}
		_, err := executeCell(ctx, deps.Session, code, stdout, stderr)
		return err
	}

	prompt(promptFirst)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == CellSeparator {
			if err := runPending(); err != nil {
				return WrapExitError(ExitCommandError, "session failed", err)
			}
			prompt(promptFirst)
			continue
		}
		lines = append(lines, line)
		prompt(promptMore)
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}
	if err := runPending(); err != nil {
		return WrapExitError(ExitCommandError, "session failed", err)
	}
	return nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
