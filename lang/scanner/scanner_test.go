package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kaelith/lang/lang/scanner"
	"github.com/kaelith/lang/lang/token"
)

func kinds(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := scanner.All(scanner.New([]byte(src)))
	require.NoError(t, err)
	out := make([]token.Token, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestIdentsAndKeywords(t *testing.T) {
	got := kinds(t, "foo bar_1 if elif else fun ret next break for of with true false nil")
	want := []token.Token{
		token.IDENT, token.IDENT,
		token.IF, token.ELIF, token.ELSE, token.FUN, token.RET, token.NEXT,
		token.BREAK, token.FOR, token.OF, token.WITH,
		token.TRUE, token.FALSE, token.NIL,
		token.EOF,
	}
	require.Equal(t, want, got)
}

func TestBacktickIdent(t *testing.T) {
	toks, err := scanner.All(scanner.New([]byte("`a weird name` := 1")))
	require.NoError(t, err)
	require.Equal(t, token.IDENT, toks[0].Kind)
	require.Equal(t, "a weird name", toks[0].Lexeme)
}

func TestUnicodeIdentStart(t *testing.T) {
	// half-width katakana and Latin-1 extended chars are valid identifier starts
	toks, err := scanner.All(scanner.New([]byte("ｦhello := 1")))
	require.NoError(t, err)
	require.Equal(t, token.IDENT, toks[0].Kind)
}

func TestNumberLiteral(t *testing.T) {
	toks, err := scanner.All(scanner.New([]byte("123 3.14")))
	require.NoError(t, err)
	require.Equal(t, token.NUMBER, toks[0].Kind)
	require.Equal(t, "123", toks[0].Lexeme)
	require.Equal(t, token.NUMBER, toks[1].Kind)
	require.Equal(t, "3.14", toks[1].Lexeme)
}

func TestNumberRangeSplit(t *testing.T) {
	toks, err := scanner.All(scanner.New([]byte("1..5")))
	require.NoError(t, err)
	require.Equal(t, []token.Token{token.NUMBER, token.RANGE, token.NUMBER, token.EOF},
		[]token.Token{toks[0].Kind, toks[1].Kind, toks[2].Kind, toks[3].Kind})
	require.Equal(t, "1", toks[0].Lexeme)
	require.Equal(t, "5", toks[2].Lexeme)
}

func TestNumberRangeSplitSpaced(t *testing.T) {
	got := kinds(t, "1 .. 5")
	require.Equal(t, []token.Token{token.NUMBER, token.RANGE, token.NUMBER, token.EOF}, got)
}

func TestStringEscape(t *testing.T) {
	toks, err := scanner.All(scanner.New([]byte(`"a\nb"`)))
	require.NoError(t, err)
	require.Equal(t, "a\nb", toks[0].Lexeme)
}

func TestStringUnknownEscape(t *testing.T) {
	_, err := scanner.All(scanner.New([]byte(`"a\qb"`)))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown escape character")
}

func TestStringUnterminated(t *testing.T) {
	_, err := scanner.All(scanner.New([]byte(`"abc`)))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated string")
}

func TestLineComment(t *testing.T) {
	got := kinds(t, "1 // a comment\n2")
	require.Equal(t, []token.Token{token.NUMBER, token.NUMBER, token.EOF}, got)
}

func TestPunctuation(t *testing.T) {
	got := kinds(t, "( ) { } [ ] [| |] , . ; : := -> <- + - * / % += -= *= /= %= == <> < > <= >= & | ! @ \\")
	want := []token.Token{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.LBRACK, token.RBRACK, token.LSQARR, token.RSQARR,
		token.COMMA, token.DOT, token.SEMI, token.COLON, token.DEFINE,
		token.ARROW, token.LARROW,
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.PERCENT_EQ,
		token.EQ, token.NEQ, token.LT, token.GT, token.LE, token.GE,
		token.AMP, token.PIPE, token.BANG, token.AT, token.BSLASH,
		token.EOF,
	}
	require.Equal(t, want, got)
}

func TestIllegalCharacter(t *testing.T) {
	_, err := scanner.All(scanner.New([]byte("1 ? 2")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unrecognized character")
}

func TestPositionTracking(t *testing.T) {
	toks, err := scanner.All(scanner.New([]byte("a\nbb")))
	require.NoError(t, err)
	require.Equal(t, 1, toks[0].Begin.Line)
	require.Equal(t, 2, toks[1].Begin.Line)
}
