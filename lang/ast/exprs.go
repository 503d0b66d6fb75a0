package ast

import (
	"fmt"

	"github.com/kaelith/lang/lang/token"
)

type (
	// Number is a numeric literal (spec §3.2 Number{f64}).
	Number struct {
		Start, End token.Position
		Value      float64
		Lit        string // original lexeme, for disassembly/printing
	}

	// String is a string literal (spec §3.2 String{utf8}).
	String struct {
		Start, End token.Position
		Value      string
	}

	// KwLiteral is one of the keyword literals true, false, nil.
	KwLiteral struct {
		Start, End token.Position
		Kind       token.Token // TRUE, FALSE or NIL
	}

	// FieldGet is an identifier reference (Target == nil) or a member access
	// `target.field` (Target != nil).
	FieldGet struct {
		Start, End token.Position
		Target     Expr // nil for a plain identifier
		Field      string
	}

	// Array is an array literal `[a, b, c]`.
	Array struct {
		Start, End token.Position
		Elems      []Expr
	}

	// SizedArray is `[n; v]`: an array of length n filled with v.
	SizedArray struct {
		Start, End token.Position
		Size       Expr
		Elem       Expr
	}

	// Object is an object literal `[| k=v, ... |]`.
	Object struct {
		Start, End token.Position
		Fields     []ObjectField
	}

	// ObjectField is one `name=expr` pair (or `name: args -> body` for a
	// method defined inline) of an Object literal.
	ObjectField struct {
		Name  string
		Value Expr
	}

	// Call is a direct call `callee(args...)`.
	Call struct {
		Start, End token.Position
		Callee     Expr
		Args       []Expr
	}

	// MemberCall is `receiver:field(args...)`. It differs from Call+FieldGet in
	// that the receiver is implicitly re-pushed as the first positional
	// argument (spec §4.3.4).
	MemberCall struct {
		Start, End token.Position
		Receiver   Expr
		Field      string
		Args       []Expr
	}

	// UnOp is a unary operator application: !x, -x, +x, or *x (dereference /
	// splat, produced by the mul/unary backtracking ambiguity, §4.2).
	UnOp struct {
		Start, End token.Position
		Op         token.Token
		Target     Expr
	}

	// BinOp is a binary operator application. Op==LBRACK encodes indexing
	// (a[b]); an Op that IsAssignOp() encodes assignment and compound
	// assignment, in which case Lhs must be a FieldGet or a BinOp(LBRACK, ...).
	BinOp struct {
		Start, End token.Position
		Op         token.Token
		Lhs, Rhs   Expr
	}

	// Range is `start..finish`, a numeric range used by `for`.
	Range struct {
		Start_, End_ token.Position
		Lo, Hi       Expr
	}

	// AnonFnDef is an anonymous function expression `: args -> body`.
	AnonFnDef struct {
		Start, End token.Position
		Args       []Param
		Body       Expr
		Variadic   bool
	}

	// If is the `if/elif/else` expression; its value is the value of whichever
	// arm's body ran, or nil if no arm matched and there is no else.
	If struct {
		Start, End token.Position
		Cases      []IfCase
		Else       Expr // nil if absent
	}

	// IfCase is one `cond { body }` or `elif cond { body }` arm.
	IfCase struct {
		Cond Expr
		Body Expr
	}

	// VarDef is `name := value`, a local variable declaration/definition.
	VarDef struct {
		Start, End token.Position
		Name       string
		Value      Expr
	}

	// Deco is one `@Name(field=v, ...)` decorator application.
	Deco struct {
		Start, End token.Position
		Name       string
		Fields     []ObjectField
	}

	// Decorated wraps a function definition or an expression with one or more
	// decorators (innermost listed first, spec §4.2 desugaring).
	Decorated struct {
		Start, End token.Position
		Decos      []*Deco
		Target     Node // *FnDef or an Expr
	}
)

// Param is one formal parameter: a name plus whether it is marked by-reference
// with a trailing `*`.
type Param struct {
	Name  string
	ByRef bool
}

func (n *Number) expr()     {}
func (n *String) expr()     {}
func (n *KwLiteral) expr()  {}
func (n *FieldGet) expr()   {}
func (n *Array) expr()      {}
func (n *SizedArray) expr() {}
func (n *Object) expr()     {}
func (n *Call) expr()       {}
func (n *MemberCall) expr() {}
func (n *UnOp) expr()       {}
func (n *BinOp) expr()      {}
func (n *Range) expr()      {}
func (n *AnonFnDef) expr()  {}
func (n *If) expr()         {}
func (n *VarDef) expr()     {}

func (n *Number) Span() (s, e token.Position)     { return n.Start, n.End }
func (n *String) Span() (s, e token.Position)     { return n.Start, n.End }
func (n *KwLiteral) Span() (s, e token.Position)  { return n.Start, n.End }
func (n *FieldGet) Span() (s, e token.Position)   { return n.Start, n.End }
func (n *Array) Span() (s, e token.Position)      { return n.Start, n.End }
func (n *SizedArray) Span() (s, e token.Position) { return n.Start, n.End }
func (n *Object) Span() (s, e token.Position)     { return n.Start, n.End }
func (n *Call) Span() (s, e token.Position)       { return n.Start, n.End }
func (n *MemberCall) Span() (s, e token.Position) { return n.Start, n.End }
func (n *UnOp) Span() (s, e token.Position)       { return n.Start, n.End }
func (n *BinOp) Span() (s, e token.Position)      { return n.Start, n.End }
func (n *Range) Span() (s, e token.Position)      { return n.Start_, n.End_ }
func (n *AnonFnDef) Span() (s, e token.Position)  { return n.Start, n.End }
func (n *If) Span() (s, e token.Position)         { return n.Start, n.End }
func (n *VarDef) Span() (s, e token.Position)     { return n.Start, n.End }
func (n *Deco) Span() (s, e token.Position)       { return n.Start, n.End }
func (n *Decorated) Span() (s, e token.Position)  { return n.Start, n.End }

func (n *Number) Format(f fmt.State, verb rune) { format(f, verb, fmt.Sprintf("number %s", n.Lit)) }
func (n *String) Format(f fmt.State, verb rune)  { format(f, verb, fmt.Sprintf("string %q", n.Value)) }
func (n *KwLiteral) Format(f fmt.State, verb rune) {
	format(f, verb, fmt.Sprintf("kw-literal %s", n.Kind))
}
func (n *FieldGet) Format(f fmt.State, verb rune) {
	if n.Target == nil {
		format(f, verb, fmt.Sprintf("ident %s", n.Field))
		return
	}
	format(f, verb, fmt.Sprintf("field-get .%s", n.Field))
}
func (n *Array) Format(f fmt.State, verb rune) {
	formatCounts(f, verb, "array", map[string]int{"elems": len(n.Elems)})
}
func (n *SizedArray) Format(f fmt.State, verb rune) { format(f, verb, "sized-array") }
func (n *Object) Format(f fmt.State, verb rune) {
	formatCounts(f, verb, "object", map[string]int{"fields": len(n.Fields)})
}
func (n *Call) Format(f fmt.State, verb rune) {
	formatCounts(f, verb, "call", map[string]int{"args": len(n.Args)})
}
func (n *MemberCall) Format(f fmt.State, verb rune) {
	formatCounts(f, verb, fmt.Sprintf("member-call :%s", n.Field), map[string]int{"args": len(n.Args)})
}
func (n *UnOp) Format(f fmt.State, verb rune)  { format(f, verb, fmt.Sprintf("unop %s", n.Op)) }
func (n *BinOp) Format(f fmt.State, verb rune) { format(f, verb, fmt.Sprintf("binop %s", n.Op)) }
func (n *Range) Format(f fmt.State, verb rune) { format(f, verb, "range") }
func (n *AnonFnDef) Format(f fmt.State, verb rune) {
	formatCounts(f, verb, "anon-fn-def", map[string]int{"args": len(n.Args)})
}
func (n *If) Format(f fmt.State, verb rune) {
	formatCounts(f, verb, "if", map[string]int{"cases": len(n.Cases)})
}
func (n *VarDef) Format(f fmt.State, verb rune) { format(f, verb, fmt.Sprintf("var-def %s", n.Name)) }
func (n *Deco) Format(f fmt.State, verb rune)   { format(f, verb, fmt.Sprintf("deco @%s", n.Name)) }
func (n *Decorated) Format(f fmt.State, verb rune) {
	formatCounts(f, verb, "decorated", map[string]int{"decos": len(n.Decos)})
}

func (n *Number) Walk(_ Visitor)    {}
func (n *String) Walk(_ Visitor)    {}
func (n *KwLiteral) Walk(_ Visitor) {}
func (n *FieldGet) Walk(v Visitor) {
	if n.Target != nil {
		Walk(v, n.Target)
	}
}
func (n *Array) Walk(v Visitor) {
	for _, e := range n.Elems {
		Walk(v, e)
	}
}
func (n *SizedArray) Walk(v Visitor) {
	Walk(v, n.Size)
	Walk(v, n.Elem)
}
func (n *Object) Walk(v Visitor) {
	for _, fld := range n.Fields {
		Walk(v, fld.Value)
	}
}
func (n *Call) Walk(v Visitor) {
	Walk(v, n.Callee)
	for _, a := range n.Args {
		Walk(v, a)
	}
}
func (n *MemberCall) Walk(v Visitor) {
	Walk(v, n.Receiver)
	for _, a := range n.Args {
		Walk(v, a)
	}
}
func (n *UnOp) Walk(v Visitor) { Walk(v, n.Target) }
func (n *BinOp) Walk(v Visitor) {
	Walk(v, n.Lhs)
	Walk(v, n.Rhs)
}
func (n *Range) Walk(v Visitor) {
	Walk(v, n.Lo)
	Walk(v, n.Hi)
}
func (n *AnonFnDef) Walk(v Visitor) { Walk(v, n.Body) }
func (n *If) Walk(v Visitor) {
	for _, c := range n.Cases {
		Walk(v, c.Cond)
		Walk(v, c.Body)
	}
	if n.Else != nil {
		Walk(v, n.Else)
	}
}
func (n *VarDef) Walk(v Visitor) { Walk(v, n.Value) }
func (n *Deco) Walk(v Visitor) {
	for _, fld := range n.Fields {
		Walk(v, fld.Value)
	}
}
func (n *Decorated) Walk(v Visitor) {
	for _, d := range n.Decos {
		Walk(v, d)
	}
	Walk(v, n.Target)
}
