package maincmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mna/mainer"

	"github.com/kaelith/lang/lang/compiler"
	"github.com/kaelith/lang/lang/parser"
	"github.com/kaelith/lang/lang/scanner"
)

func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return CompileFiles(ctx, stdio, args...)
}

// CompileFiles compiles each of files in turn and prints a summary of every
// function proto the compiler produced.
func CompileFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
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

		printProtoSummary(stdio.Stdout, proto)
	}
	return lastErr
}

func printProtoSummary(w io.Writer, proto *compiler.FuncProto) {
	name := proto.Name
	switch {
	case proto.IsScript:
		name = "<script>"
	case name == "":
		name = "<anon>"
	}
	fmt.Fprintf(w, "%s: arity=%d upvalues=%d literals=%d bytes=%d\n",
		name, proto.Arity, len(proto.Upvals), len(proto.Chunk.Literals), len(proto.Chunk.Code))

	for _, lit := range proto.Chunk.Literals {
		if fp, ok := lit.(*compiler.FuncProto); ok {
			printProtoSummary(w, fp)
		}
	}
}
