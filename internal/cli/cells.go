package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/upb/governed-notebook/internal/kernel"
)

// CellSeparator is the line that ends one cell in a source file or in the
// REPL
const CellSeparator = "%%"

// SplitCells cuts src into cells at separator lines. Blank cells are dropped.
func SplitCells(src string) []string {
	var cells []string
	var current []string

	flush := func() {
		cell := strings.Join(current, "\n")
		if strings.TrimSpace(cell) != "" {
			cells = append(cells, cell)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(src, "\n") {
		if strings.TrimSpace(line) == CellSeparator {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return cells
}

// executeCell runs one cell. Output has already been streamed to stdout;
// the value goes to stdout and a failure to stderr. An interrupt cancels
// only this cell.
func executeCell(ctx context.Context, session *kernel.Session, code string, stdout, stderr io.Writer) (bool, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res, err := session.Execute(ctx, code)
	if err != nil {
		return false, err
	}
	if res.Output != "" && !strings.HasSuffix(res.Output, "\n") {
		fmt.Fprintln(stdout)
	}
	if res.Err != nil {
		fmt.Fprintf(stderr, "error: %v\n", res.Err)
		return false, nil
	}
	if res.Value != nil {
		fmt.Fprintln(stdout, res.Value)
	}
	return true, nil
}
