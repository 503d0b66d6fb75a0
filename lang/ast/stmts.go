package ast

import (
	"fmt"

	"github.com/kaelith/lang/lang/token"
)

type (
	// FnDef is a named function definition: `name : arg1 arg2* ... -> expr`
	// or `name : arg1 arg2* ... { block }`, or `name { block }` (zero args).
	FnDef struct {
		Start, End token.Position
		Name       string
		Args       []Param
		Body       Expr
		Variadic   bool
	}

	// For is `for id : range_expr body`. The iterable must be a *Range node
	// (spec restriction, §4.3.3).
	For struct {
		Start, End token.Position
		Id         string
		Iterable   Expr
		Body       Expr
	}

	// Ret is `ret [value]`, valid only inside a function body.
	Ret struct {
		Start, End token.Position
		Value      Expr // nil for a bare `ret`
	}

	// Next is the loop-continuation statement, valid only inside a `for` body.
	Next struct {
		Start, End token.Position
	}

	// Break is the loop-exit statement, valid only inside a `for` body.
	Break struct {
		Start, End token.Position
	}

	// ExprStmt wraps an expression used in statement position; the
	// compiler pops its result, except for a wrapped VarDef, which binds its
	// value without a pop (FnDef/For/Decorated are statements of their own).
	ExprStmt struct {
		X Expr
	}
)

func (n *FnDef) stmt()    {}
func (n *For) stmt()      {}
func (n *Ret) stmt()      {}
func (n *Next) stmt()     {}
func (n *Break) stmt()    {}
func (n *ExprStmt) stmt() {}
func (n *Decorated) stmt() {}

func (n *FnDef) Span() (s, e token.Position)    { return n.Start, n.End }
func (n *For) Span() (s, e token.Position)      { return n.Start, n.End }
func (n *Ret) Span() (s, e token.Position)      { return n.Start, n.End }
func (n *Next) Span() (s, e token.Position)     { return n.Start, n.End }
func (n *Break) Span() (s, e token.Position)    { return n.Start, n.End }
func (n *ExprStmt) Span() (s, e token.Position) { return n.X.Span() }

func (n *FnDef) Format(f fmt.State, verb rune) {
	formatCounts(f, verb, fmt.Sprintf("fn-def %s", n.Name), map[string]int{"args": len(n.Args)})
}
func (n *For) Format(f fmt.State, verb rune)      { format(f, verb, fmt.Sprintf("for %s", n.Id)) }
func (n *Ret) Format(f fmt.State, verb rune)      { format(f, verb, "ret") }
func (n *Next) Format(f fmt.State, verb rune)     { format(f, verb, "next") }
func (n *Break) Format(f fmt.State, verb rune)    { format(f, verb, "break") }
func (n *ExprStmt) Format(f fmt.State, verb rune) { format(f, verb, "expr-stmt") }

func (n *FnDef) Walk(v Visitor) { Walk(v, n.Body) }
func (n *For) Walk(v Visitor) {
	Walk(v, n.Iterable)
	Walk(v, n.Body)
}
func (n *Ret) Walk(v Visitor) {
	if n.Value != nil {
		Walk(v, n.Value)
	}
}
func (n *Next) Walk(_ Visitor)     {}
func (n *Break) Walk(_ Visitor)    {}
func (n *ExprStmt) Walk(v Visitor) { Walk(v, n.X) }
