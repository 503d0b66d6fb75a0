// Package ast defines the types that represent the abstract syntax tree
// produced by the parser. Nodes are owned by their parent; sharing is
// permitted (e.g. during decorator desugaring, which rewrites a single
// target into several call expressions) but never semantically required.
package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kaelith/lang/lang/token"
)

// Node represents any node in the AST. Every node carries the source span it
// was parsed from.
type Node interface {
	// Every Node implements fmt.Formatter so it can print a short description
	// of itself; only the 'v' and 's' verbs are supported.
	fmt.Formatter

	// Span reports the start and end position of the node.
	Span() (start, end token.Position)

	// Walk enters each child node to implement the visitor pattern.
	Walk(v Visitor)
}

// Expr represents an expression: a node that produces a value.
type Expr interface {
	Node
	expr()
}

// Stmt represents a statement: a top-level production of the grammar's
// `statement` rule (functionDef, forLoop, retStmt, nextStmt, breakStmt, or a
// bare expr).
type Stmt interface {
	Node
	stmt()
}

// Chunk is the root of a parsed program: a block of statements plus the
// position of the end-of-file marker (kept so that an empty program still
// has a valid span).
type Chunk struct {
	Name  string
	Block *Block
	EOF   token.Position
}

// Block represents `Block{exprs}`: a sequence of statements evaluated in
// order, the value of the last one (if it is an expression statement)
// escaping as the block's own value.
type Block struct {
	Start, End token.Position
	Stmts      []Stmt
}

func (n *Chunk) Format(f fmt.State, verb rune) { format(f, verb, "chunk") }
func (n *Chunk) Span() (start, end token.Position) {
	if n.Block != nil {
		return n.Block.Span()
	}
	return n.EOF, n.EOF
}
func (n *Chunk) Walk(v Visitor) {
	if n.Block != nil {
		Walk(v, n.Block)
	}
}

// expr makes Block satisfy Expr, so a `{ ... }` body can be stored wherever
// a body expression is (function bodies, for bodies, if/elif/else bodies);
// only function bodies also accept a `-> expr` form.
func (n *Block) expr() {}

func (n *Block) Format(f fmt.State, verb rune) {
	formatCounts(f, verb, "block", map[string]int{"stmts": len(n.Stmts)})
}
func (n *Block) Span() (start, end token.Position) { return n.Start, n.End }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}

func format(f fmt.State, verb rune, label string) {
	formatCounts(f, verb, label, nil)
}

func formatCounts(f fmt.State, verb rune, label string, counts map[string]int) {
	if verb != 'v' && verb != 's' {
		fmt.Fprintf(f, "%%!%c(%s)", verb, label)
		return
	}

	label = strings.ReplaceAll(label, "\n", "\\n")
	fmt.Fprint(f, label)
	if f.Flag('#') && len(counts) > 0 {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprint(f, " {")
		for i, k := range keys {
			if i > 0 {
				fmt.Fprint(f, ", ")
			}
			fmt.Fprintf(f, "%s=%d", k, counts[k])
		}
		fmt.Fprint(f, "}")
	}
}
