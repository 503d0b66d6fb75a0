package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/kaelith/lang/lang/compiler"
	"github.com/kaelith/lang/lang/machine"
	"github.com/kaelith/lang/lang/parser"
	"github.com/kaelith/lang/lang/scanner"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFile(ctx, stdio, args[0])
}

// RunFile compiles path and executes it on a fresh Thread.
func RunFile(ctx context.Context, stdio mainer.Stdio, path string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
		return err
	}

	ch, err := parser.Parse(path, src)
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return err
	}

	proto, err := compiler.Compile(path, ch)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return err
	}

	th := machine.NewThread()
	th.Stdout = stdio.Stdout
	th.DefineStdlib()

	if _, err := th.Run(proto); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return err
	}
	return nil
}
