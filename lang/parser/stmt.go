package parser

import (
	"github.com/kaelith/lang/lang/ast"
	"github.com/kaelith/lang/lang/token"
)

// parseStatement parses one `statement := decorator* (functionDef | forLoop |
// retStmt | nextStmt | breakStmt | expr)` production.
func (p *parser) parseStatement() ast.Stmt {
	decos := p.parseDecos()

	if p.tok.Kind == token.IDENT {
		next := p.peek()
		if next.Kind == token.LBRACE || next.Kind == token.COLON {
			// `x:foo(...)` also starts with id + colon; it falls through to
			// the expression path as a member call.
			if fn, ok := attempt(p, p.parseFnDef); ok {
				if len(decos) == 0 {
					return fn
				}
				return &ast.Decorated{Start: decos[0].Start, End: p.tok.Begin, Decos: decos, Target: fn}
			}
		}
	}

	switch p.tok.Kind {
	case token.FOR:
		return p.parseFor()
	case token.RET:
		return p.parseRet()
	case token.NEXT:
		start := p.tok.Begin
		end := p.tok.End
		p.advance()
		return &ast.Next{Start: start, End: end}
	case token.BREAK:
		start := p.tok.Begin
		end := p.tok.End
		p.advance()
		return &ast.Break{Start: start, End: end}
	}

	x := p.parseExpr()
	if len(decos) == 0 {
		return &ast.ExprStmt{X: x}
	}
	_, end := x.Span()
	return &ast.Decorated{Start: decos[0].Start, End: end, Decos: decos, Target: x}
}

// parseDecos parses zero or more `@Name(field=v, ...)` decorator
// applications preceding a statement.
func (p *parser) parseDecos() []*ast.Deco {
	var decos []*ast.Deco
	for p.tok.Kind == token.AT {
		start := p.tok.Begin
		p.advance()
		name := p.expect("deco", token.IDENT).Lexeme

		var fields []ast.ObjectField
		if p.tok.Kind == token.LPAREN {
			p.advance()
			for p.tok.Kind == token.IDENT {
				fname := p.expect("deco", token.IDENT).Lexeme
				p.expect("deco", token.ASSIGN)
				fval := p.parseExpr()
				fields = append(fields, ast.ObjectField{Name: fname, Value: fval})
				if p.tok.Kind == token.COMMA {
					p.advance()
				}
			}
			p.expect("deco", token.RPAREN)
		}

		decos = append(decos, &ast.Deco{Start: start, End: p.tok.Begin, Name: name, Fields: fields})
	}
	return decos
}

// parseFor parses `for id : range_expr body`.
func (p *parser) parseFor() *ast.For {
	start := p.expect("for", token.FOR).Begin
	id := p.expect("for", token.IDENT).Lexeme
	p.expect("for", token.COLON)
	iterable := p.parseExpr()
	if _, ok := iterable.(*ast.Range); !ok {
		s, _ := iterable.Span()
		p.fail(s, "for", "for loop requires a range expression")
	}
	body := p.parseBlock()
	return &ast.For{Start: start, End: body.End, Id: id, Iterable: iterable, Body: body}
}

// parseRet parses `ret [value]`.
func (p *parser) parseRet() *ast.Ret {
	start := p.tok.Begin
	end := p.tok.End
	p.advance()

	if p.startsExpr() {
		val, ok := attempt(p, p.parseExpr)
		if ok {
			_, end = val.Span()
			return &ast.Ret{Start: start, End: end, Value: val}
		}
	}
	return &ast.Ret{Start: start, End: end}
}

// startsExpr reports whether the current token could begin an expression,
// used to decide whether a bare `ret` carries a value.
func (p *parser) startsExpr() bool {
	switch p.tok.Kind {
	case token.SEMI, token.RBRACE, token.EOF:
		return false
	}
	return true
}

// parseFnDef parses a named function definition: `name : args... -> expr`,
// `name : args... { block }`, or `name { block }` (zero args).
func (p *parser) parseFnDef() *ast.FnDef {
	start := p.tok.Begin
	name := p.expect("fn-def", token.IDENT).Lexeme
	args := p.parseParams()
	body := p.parseFnBody()
	_, end := body.Span()
	return &ast.FnDef{Start: start, End: end, Name: name, Args: args, Body: body}
}

// parseParams parses the optional `: arg1 arg2* ...` parameter list, where a
// trailing '*' on a parameter name marks it by-reference.
func (p *parser) parseParams() []ast.Param {
	if p.tok.Kind != token.COLON {
		return nil
	}
	p.advance()
	var params []ast.Param
	for p.tok.Kind == token.IDENT {
		name := p.tok.Lexeme
		p.advance()
		byRef := false
		if p.tok.Kind == token.STAR {
			byRef = true
			p.advance()
		}
		params = append(params, ast.Param{Name: name, ByRef: byRef})
	}
	return params
}

// parseFnBody parses a `-> expr`, `-> { block }` or `{ block }` function body.
func (p *parser) parseFnBody() ast.Expr {
	if p.tok.Kind == token.ARROW {
		p.advance()
		if p.tok.Kind == token.LBRACE {
			return p.parseBlock()
		}
		return p.parseExpr()
	}
	return p.parseBlock()
}
