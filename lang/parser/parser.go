// Package parser implements the recursive-descent, operator-precedence
// parser that transforms source code into an abstract syntax tree (AST).
package parser

import (
	"fmt"

	"github.com/kaelith/lang/lang/ast"
	"github.com/kaelith/lang/lang/scanner"
	"github.com/kaelith/lang/lang/token"
)

// Error is a parse error: an unexpected token, a missing closing delimiter,
// or an invalid left-hand side. It carries the expected kind, the observed
// token, and the name of the parser function that reported it, so
// diagnostics can point at both the source and the grammar rule involved.
type Error struct {
	Pos  token.Position
	Who  string
	Msg  string
}

func (e *Error) Error() string {
	if e.Who == "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: %s (in %s)", e.Pos, e.Msg, e.Who)
}

// Parse parses a complete source unit into a Chunk.
func Parse(name string, src []byte) (ch *ast.Chunk, err error) {
	p := &parser{lex: scanner.New(src)}
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			err = pe
		}
	}()
	p.advance()
	ch = p.parseChunk(name)
	return ch, nil
}

// parser holds the mutable state of a single parse: the lexer, the current
// token, and nothing else. Speculative parses (the mul/unary backtrack, and
// the statement-vs-expression lookahead) snapshot and restore the lexer via
// scanner.Mark, which is a cheap full-state value copy.
type parser struct {
	lex *scanner.Lexer
	tok scanner.Token
}

// mark snapshots parser state (lexer position plus current token) for
// backtracking.
type mark struct {
	lex scanner.Mark
	tok scanner.Token
}

func (p *parser) save() mark { return mark{lex: p.lex.Mark(), tok: p.tok} }
func (p *parser) restore(m mark) {
	p.lex.Reset(m.lex)
	p.tok = m.tok
}

func (p *parser) fail(pos token.Position, who, format string, args ...any) {
	panic(&Error{Pos: pos, Who: who, Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) advance() {
	tok, err := p.lex.Next()
	if err != nil {
		if lexErr, ok := err.(*scanner.Error); ok {
			panic(&Error{Pos: lexErr.Pos, Msg: lexErr.Msg})
		}
		panic(&Error{Pos: p.tok.Begin, Msg: err.Error()})
	}
	p.tok = tok
}

// peek returns the next token without consuming the current one.
func (p *parser) peek() scanner.Token {
	m := p.lex.Mark()
	tok, err := p.lex.Next()
	p.lex.Reset(m)
	if err != nil {
		if lexErr, ok := err.(*scanner.Error); ok {
			panic(&Error{Pos: lexErr.Pos, Msg: lexErr.Msg})
		}
		panic(&Error{Pos: p.tok.Begin, Msg: err.Error()})
	}
	return tok
}

func describe(tok scanner.Token) string {
	switch tok.Kind {
	case token.IDENT, token.NUMBER, token.STRING:
		return fmt.Sprintf("%s %q", tok.Kind, tok.Lexeme)
	}
	return tok.Kind.String()
}

// expect consumes and returns the current token if its kind is one of kinds,
// otherwise it fails naming who (the calling parser function) for
// diagnostics.
func (p *parser) expect(who string, kinds ...token.Token) scanner.Token {
	for _, k := range kinds {
		if p.tok.Kind == k {
			tok := p.tok
			p.advance()
			return tok
		}
	}
	var want string
	if len(kinds) == 1 {
		want = kinds[0].String()
	} else {
		want = "one of"
		for i, k := range kinds {
			if i > 0 {
				want += ","
			}
			want += " " + k.String()
		}
	}
	p.fail(p.tok.Begin, who, "expected %s, found %s", want, describe(p.tok))
	panic("unreachable")
}

// attempt runs fn speculatively: if fn panics with a *Error, attempt restores
// the parser to its pre-call state and returns (zero, false) instead of
// propagating. Any other panic (a Go runtime error) propagates normally.
func attempt[T any](p *parser, fn func() T) (result T, ok bool) {
	m := p.save()
	defer func() {
		if r := recover(); r != nil {
			if _, isParseErr := r.(*Error); !isParseErr {
				panic(r)
			}
			p.restore(m)
			ok = false
		}
	}()
	return fn(), true
}

func (p *parser) parseChunk(name string) *ast.Chunk {
	start := p.tok.Begin
	var stmts []ast.Stmt
	for p.tok.Kind != token.EOF {
		stmts = append(stmts, p.parseStatement())
		p.skipSeparators()
	}
	return &ast.Chunk{
		Name:  name,
		Block: &ast.Block{Start: start, End: p.tok.Begin, Stmts: stmts},
		EOF:   p.tok.Begin,
	}
}

// skipSeparators consumes zero or more statement-separator semicolons.
func (p *parser) skipSeparators() {
	for p.tok.Kind == token.SEMI {
		p.advance()
	}
}

// parseBlock parses a `{ statement* }` block.
func (p *parser) parseBlock() *ast.Block {
	start := p.expect("block", token.LBRACE).Begin
	var stmts []ast.Stmt
	p.skipSeparators()
	for p.tok.Kind != token.RBRACE {
		stmts = append(stmts, p.parseStatement())
		p.skipSeparators()
	}
	end := p.tok.End
	p.advance() // consume '}'
	return &ast.Block{Start: start, End: end, Stmts: stmts}
}
