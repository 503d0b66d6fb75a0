package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/kaelith/lang/lang/compiler"
	"github.com/kaelith/lang/lang/disasm"
	"github.com/kaelith/lang/lang/parser"
	"github.com/kaelith/lang/lang/scanner"
)

func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return DisasmFiles(ctx, stdio, args...)
}

// DisasmFiles compiles each of files in turn and prints a full bytecode
// disassembly.
func DisasmFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
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

		proto, err := compiler.Compile(path, ch)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s\n", err)
			lastErr = err
			continue
		}

		if err := disasm.Disassemble(stdio.Stdout, proto); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			lastErr = err
		}
	}
	return lastErr
}
