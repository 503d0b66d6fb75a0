package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/kaelith/lang/lang/scanner"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(ctx, stdio, args...)
}

// TokenizeFiles scans each of files in turn and prints its token stream.
func TokenizeFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
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

		lex := scanner.New(src)
		toks, err := scanner.All(lex)
		for _, tok := range toks {
			fmt.Fprintf(stdio.Stdout, "%s: %s", tok.Begin, tok.Kind)
			if tok.Lexeme != "" {
				fmt.Fprintf(stdio.Stdout, " %q", tok.Lexeme)
			}
			fmt.Fprintln(stdio.Stdout)
		}
		if err != nil {
			scanner.PrintError(stdio.Stderr, err)
			lastErr = err
		}
	}
	return lastErr
}
