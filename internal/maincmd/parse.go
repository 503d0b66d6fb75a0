package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/kaelith/lang/lang/ast"
	"github.com/kaelith/lang/lang/parser"
	"github.com/kaelith/lang/lang/scanner"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(ctx, stdio, args...)
}

// ParseFiles parses each of files in turn and prints the resulting AST.
func ParseFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	printer := ast.Printer{
		Output: stdio.Stdout,
		Pos:    ast.PosCompact,
	}

	var lastErr error
	for _, path := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			lastErr = err
			continue
		}

		ch, err := parser.Parse(path, src)
		if err != nil {
			scanner.PrintError(stdio.Stderr, err)
			lastErr = err
			continue
		}
		if err := printer.Print(ch); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			lastErr = err
		}
	}
	return lastErr
}
