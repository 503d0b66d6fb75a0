package ast

import (
	"fmt"
	"io"
	"strings"
)

// PosMode controls whether Printer.Print includes source positions.
type PosMode int

const (
	PosNone PosMode = iota
	PosCompact
)

// Printer pretty-prints an AST as an indented tree, one node per line. It is
// the textual form used by the `parse` CLI command.
type Printer struct {
	Output io.Writer
	Pos    PosMode
}

// Print walks n and writes its indented tree representation to p.Output.
func (p *Printer) Print(n Node) error {
	pp := &printer{w: p.Output, pos: p.Pos}
	Walk(pp, n)
	return pp.err
}

type printer struct {
	w     io.Writer
	pos   PosMode
	depth int
	err   error
}

func (p *printer) Visit(n Node, dir VisitDirection) Visitor {
	if dir == VisitExit {
		p.depth--
		return nil
	}
	if p.err != nil {
		return nil
	}
	p.printNode(n)
	p.depth++
	return p
}

func (p *printer) printNode(n Node) {
	prefix := strings.Repeat(". ", p.depth)
	if p.pos == PosNone {
		_, p.err = fmt.Fprintf(p.w, "%s%v\n", prefix, n)
		return
	}
	start, end := n.Span()
	_, p.err = fmt.Fprintf(p.w, "%s[%s:%s] %v\n", prefix, start, end, n)
}
