package parser

import (
	"strconv"

	"github.com/kaelith/lang/lang/ast"
	"github.com/kaelith/lang/lang/token"
)

// parseCall parses `call := atom ( '(' args ')' | '.' id | '[' expr ']' |
// ':' id '(' args ')' )*`, a left-folded chain of call/field/index/
// member-call postfix operations.
func (p *parser) parseCall() ast.Expr {
	start := p.tok.Begin
	x := p.parseAtom()

	for {
		switch p.tok.Kind {
		case token.LPAREN:
			p.advance()
			args := p.parseArgs()
			end := p.expect("call", token.RPAREN).End
			x = &ast.Call{Start: start, End: end, Callee: x, Args: args}

		case token.DOT:
			p.advance()
			id := p.expect("call", token.IDENT)
			x = &ast.FieldGet{Start: start, End: id.End, Target: x, Field: id.Lexeme}

		case token.LBRACK:
			p.advance()
			idx := p.parseExpr()
			end := p.expect("call", token.RBRACK).End
			x = &ast.BinOp{Start: start, End: end, Op: token.LBRACK, Lhs: x, Rhs: idx}

		case token.COLON:
			// a ':' not followed by `id(args)` begins the next statement
			// (e.g. an anonymous function), not a member call
			mc, ok := attempt(p, func() ast.Expr {
				p.advance()
				field := p.expect("call", token.IDENT).Lexeme
				p.expect("call", token.LPAREN)
				args := p.parseArgs()
				end := p.expect("call", token.RPAREN).End
				return &ast.MemberCall{Start: start, End: end, Receiver: x, Field: field, Args: args}
			})
			if !ok {
				return x
			}
			x = mc

		default:
			return x
		}
	}
}

// parseArgs parses a comma-separated argument list up to (not including) the
// closing ')'.
func (p *parser) parseArgs() []ast.Expr {
	var args []ast.Expr
	for p.tok.Kind != token.RPAREN {
		args = append(args, p.parseExpr())
		if p.tok.Kind == token.COMMA {
			p.advance()
		}
	}
	return args
}

// parseAtom parses `atom := '(' expr ')' | number | string | if |
// functionDef-when-leading-':' | id | array | object | 'true' | 'false' |
// 'nil'`.
func (p *parser) parseAtom() ast.Expr {
	start := p.tok.Begin

	switch p.tok.Kind {
	case token.LPAREN:
		p.advance()
		x := p.parseExpr()
		p.expect("atom", token.RPAREN)
		return x

	case token.NUMBER:
		lit := p.tok.Lexeme
		end := p.tok.End
		p.advance()
		val, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			p.fail(start, "atom", "invalid number literal %q", lit)
		}
		return &ast.Number{Start: start, End: end, Value: val, Lit: lit}

	case token.STRING:
		val := p.tok.Lexeme
		end := p.tok.End
		p.advance()
		return &ast.String{Start: start, End: end, Value: val}

	case token.TRUE, token.FALSE, token.NIL:
		kind := p.tok.Kind
		end := p.tok.End
		p.advance()
		return &ast.KwLiteral{Start: start, End: end, Kind: kind}

	case token.IF:
		return p.parseIf()

	case token.COLON:
		return p.parseAnonFnDef()

	case token.IDENT:
		lit := p.tok.Lexeme
		end := p.tok.End
		p.advance()
		return &ast.FieldGet{Start: start, End: end, Field: lit}

	case token.LBRACK:
		return p.parseArrayOrSizedArray()

	case token.LSQARR:
		return p.parseObject()
	}

	p.fail(start, "atom", "expected atom, found %s", describe(p.tok))
	panic("unreachable")
}

// parseIf parses the `if`/`elif`/`else` expression.
func (p *parser) parseIf() *ast.If {
	start := p.tok.Begin
	p.advance()

	var cases []ast.IfCase
	cond := p.parseExpr()
	body := p.parseBlock()
	cases = append(cases, ast.IfCase{Cond: cond, Body: body})

	for p.tok.Kind == token.ELIF {
		p.advance()
		cond := p.parseExpr()
		body := p.parseBlock()
		cases = append(cases, ast.IfCase{Cond: cond, Body: body})
	}

	var els ast.Expr
	end := p.tok.Begin
	if p.tok.Kind == token.ELSE {
		p.advance()
		elsBlock := p.parseBlock()
		els = elsBlock
		end = elsBlock.End
	} else {
		lastBody := cases[len(cases)-1].Body
		_, end = lastBody.Span()
	}

	return &ast.If{Start: start, End: end, Cases: cases, Else: els}
}

// parseAnonFnDef parses `: args -> expr` or `: args { block }`.
func (p *parser) parseAnonFnDef() *ast.AnonFnDef {
	start := p.tok.Begin
	args := p.parseParams()
	body := p.parseFnBody()
	_, end := body.Span()
	return &ast.AnonFnDef{Start: start, End: end, Args: args, Body: body}
}

// parseArrayOrSizedArray parses `[a, b, c]` or `[n; v]`.
func (p *parser) parseArrayOrSizedArray() ast.Expr {
	start := p.tok.Begin
	p.advance() // consume '['

	if p.tok.Kind == token.RBRACK {
		end := p.tok.End
		p.advance()
		return &ast.Array{Start: start, End: end, Elems: nil}
	}

	first := p.parseExpr()
	if p.tok.Kind == token.SEMI {
		p.advance()
		elem := p.parseExpr()
		end := p.expect("array", token.RBRACK).End
		return &ast.SizedArray{Start: start, End: end, Size: first, Elem: elem}
	}

	elems := []ast.Expr{first}
	for p.tok.Kind == token.COMMA {
		p.advance()
		if p.tok.Kind == token.RBRACK {
			break
		}
		elems = append(elems, p.parseExpr())
	}
	end := p.expect("array", token.RBRACK).End
	return &ast.Array{Start: start, End: end, Elems: elems}
}

// parseObject parses `[| name=expr, name: args -> body, ... |]`.
func (p *parser) parseObject() *ast.Object {
	start := p.tok.Begin
	p.advance() // consume '[|'

	var fields []ast.ObjectField
	for p.tok.Kind == token.IDENT || p.tok.Kind == token.STRING {
		// a string field name (e.g. "+") names an operator-overload method,
		// per the object-field grammar; plain fields use a bare identifier.
		name := p.tok.Lexeme
		p.advance()

		var val ast.Expr
		if p.tok.Kind == token.COLON {
			args := p.parseParams()
			body := p.parseFnBody()
			fstart, fend := body.Span()
			val = &ast.AnonFnDef{Start: fstart, End: fend, Args: args, Body: body}
		} else {
			p.expect("object", token.ASSIGN)
			val = p.parseExpr()
		}

		fields = append(fields, ast.ObjectField{Name: name, Value: val})
		if p.tok.Kind == token.COMMA {
			p.advance()
		}
	}

	end := p.expect("object", token.RSQARR).End
	return &ast.Object{Start: start, End: end, Fields: fields}
}
