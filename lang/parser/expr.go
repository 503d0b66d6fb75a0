package parser

import (
	"github.com/kaelith/lang/lang/ast"
	"github.com/kaelith/lang/lang/token"
)

// parseExpr parses `expr := define`, the top of the precedence chain.
func (p *parser) parseExpr() ast.Expr {
	return p.parseDefine()
}

// parseDefine parses `define := assign ( ':=' assign )*`, right-folding a
// chain of `a := b := c` into nested VarDef nodes.
func (p *parser) parseDefine() ast.Expr {
	lhs := p.parseAssign()
	if p.tok.Kind != token.DEFINE {
		return lhs
	}
	name := p.requireIdentName(lhs, "define")
	p.advance()
	value := p.parseDefine()
	start, _ := lhs.Span()
	_, end := value.Span()
	return &ast.VarDef{Start: start, End: end, Name: name, Value: value}
}

// requireIdentName extracts the bare identifier name from x, failing if x is
// not a plain identifier reference (a FieldGet with no target).
func (p *parser) requireIdentName(x ast.Expr, who string) string {
	fg, ok := x.(*ast.FieldGet)
	if !ok || fg.Target != nil {
		start, _ := x.Span()
		p.fail(start, who, "expected an identifier")
	}
	return fg.Field
}

var assignOps = []token.Token{
	token.ASSIGN, token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.PERCENT_EQ,
}

// parseAssign parses `assign := symOr ( assignOp symOr )*`.
func (p *parser) parseAssign() ast.Expr {
	lhs := p.parseSymOr()
	for p.tok.Kind.IsAssignOp() {
		op := p.tok.Kind
		p.advance()
		rhs := p.parseSymOr()
		p.validateAssignTarget(lhs, "assign")
		start, _ := lhs.Span()
		_, end := rhs.Span()
		lhs = &ast.BinOp{Start: start, End: end, Op: op, Lhs: lhs, Rhs: rhs}
	}
	return lhs
}

// validateAssignTarget enforces the invariant that an assignment's lhs is
// either a FieldGet (name or member path) or an index expression
// (BinOp{Op:LBRACK}).
func (p *parser) validateAssignTarget(lhs ast.Expr, who string) {
	switch x := lhs.(type) {
	case *ast.FieldGet:
		return
	case *ast.BinOp:
		if x.Op == token.LBRACK {
			return
		}
	}
	start, _ := lhs.Span()
	p.fail(start, who, "invalid assignment target")
}

func (p *parser) parseSymOr() ast.Expr {
	lhs := p.parseSymAnd()
	for p.tok.Kind == token.PIPE {
		p.advance()
		rhs := p.parseSymAnd()
		start, _ := lhs.Span()
		_, end := rhs.Span()
		lhs = &ast.BinOp{Start: start, End: end, Op: token.PIPE, Lhs: lhs, Rhs: rhs}
	}
	return lhs
}

func (p *parser) parseSymAnd() ast.Expr {
	lhs := p.parseComp()
	for p.tok.Kind == token.AMP {
		p.advance()
		rhs := p.parseComp()
		start, _ := lhs.Span()
		_, end := rhs.Span()
		lhs = &ast.BinOp{Start: start, End: end, Op: token.AMP, Lhs: lhs, Rhs: rhs}
	}
	return lhs
}

var compOps = []token.Token{token.EQ, token.NEQ, token.LT, token.LE, token.GT, token.GE}

func (p *parser) parseComp() ast.Expr {
	lhs := p.parseAdd()
	for isOneOf(p.tok.Kind, compOps) {
		op := p.tok.Kind
		p.advance()
		rhs := p.parseAdd()
		start, _ := lhs.Span()
		_, end := rhs.Span()
		lhs = &ast.BinOp{Start: start, End: end, Op: op, Lhs: lhs, Rhs: rhs}
	}
	return lhs
}

func (p *parser) parseAdd() ast.Expr {
	lhs := p.parseMul()
	for p.tok.Kind == token.PLUS || p.tok.Kind == token.MINUS {
		op := p.tok.Kind
		p.advance()
		rhs := p.parseMul()
		start, _ := lhs.Span()
		_, end := rhs.Span()
		lhs = &ast.BinOp{Start: start, End: end, Op: op, Lhs: lhs, Rhs: rhs}
	}
	return lhs
}

var mulOps = []token.Token{token.STAR, token.SLASH, token.PERCENT}

// parseMul parses `mul := range ( ('*'|'/'|'%') range )*`. A mul operator
// not followed by a valid range operand is reinterpreted as a unary
// dereference/splat on the already-parsed left side, preserving a
// left-associative AST shape: if lhs is itself a BinOp, the unary wraps its
// rhs; otherwise it wraps lhs directly.
func (p *parser) parseMul() ast.Expr {
	lhs := p.parseRange()
	for isOneOf(p.tok.Kind, mulOps) {
		op := p.tok.Kind
		opPos := p.tok.Begin
		p.advance()

		rhs, ok := attempt(p, p.parseRange)
		if !ok {
			if bin, isBin := lhs.(*ast.BinOp); isBin {
				rs, _ := bin.Rhs.Span()
				bin.Rhs = &ast.UnOp{Start: rs, End: opPos, Op: token.STAR, Target: bin.Rhs}
			} else {
				s, _ := lhs.Span()
				lhs = &ast.UnOp{Start: s, End: opPos, Op: token.STAR, Target: lhs}
			}
			continue
		}

		start, _ := lhs.Span()
		_, end := rhs.Span()
		lhs = &ast.BinOp{Start: start, End: end, Op: op, Lhs: lhs, Rhs: rhs}
	}
	return lhs
}

// parseRange parses `range := with ( '..' with )?`.
func (p *parser) parseRange() ast.Expr {
	lo := p.parseWith()
	if p.tok.Kind != token.RANGE {
		return lo
	}
	p.advance()
	hi := p.parseWith()
	start, _ := lo.Span()
	_, end := hi.Span()
	return &ast.Range{Start_: start, End_: end, Lo: lo, Hi: hi}
}

// parseWith parses `with := preUnary ( 'with' preUnary )?`; the rhs must be
// an object literal.
func (p *parser) parseWith() ast.Expr {
	lhs := p.parsePreUnary()
	if p.tok.Kind != token.WITH {
		return lhs
	}
	p.advance()
	rhs := p.parsePreUnary()
	if _, ok := rhs.(*ast.Object); !ok {
		start, _ := rhs.Span()
		p.fail(start, "with", "Expected object on rhs of with expr")
	}
	start, _ := lhs.Span()
	_, end := rhs.Span()
	return &ast.BinOp{Start: start, End: end, Op: token.WITH, Lhs: lhs, Rhs: rhs}
}

// parsePreUnary parses `preUnary := ('!'|'+'|'-')? postUnary`. A leading '+'
// is a no-op (there is no unary-plus opcode) and is discarded rather than
// wrapped in a node.
func (p *parser) parsePreUnary() ast.Expr {
	switch p.tok.Kind {
	case token.BANG, token.MINUS:
		op := p.tok.Kind
		start := p.tok.Begin
		p.advance()
		target := p.parsePostUnary()
		_, end := target.Span()
		return &ast.UnOp{Start: start, End: end, Op: op, Target: target}
	case token.PLUS:
		p.advance()
		return p.parsePostUnary()
	}
	return p.parsePostUnary()
}

// parsePostUnary parses `postUnary := call ( '++' | '--' )?`. The closed
// token enumeration (spec §3.1) has no lexable `++`/`--` token and the
// opcode set has no corresponding instruction, so this production reduces to
// `call` unconditionally; the grammar rule is kept here only to document
// where it would slot in if those tokens were ever added.
func (p *parser) parsePostUnary() ast.Expr {
	return p.parseCall()
}

func isOneOf(tok token.Token, kinds []token.Token) bool {
	for _, k := range kinds {
		if tok == k {
			return true
		}
	}
	return false
}
