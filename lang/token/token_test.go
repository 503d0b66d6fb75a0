package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		if tok.String() == "" {
			t.Errorf("missing string representation of token %d", tok)
		}
	}
}

func TestLookup(t *testing.T) {
	for lit, tok := range Keywords {
		require.Equal(t, tok, Lookup(lit))
	}
	require.Equal(t, IDENT, Lookup("not_a_keyword"))
}

func TestIsAssignOp(t *testing.T) {
	for tok, want := range map[Token]Token{
		ASSIGN:     ILLEGAL,
		PLUS_EQ:    PLUS,
		MINUS_EQ:   MINUS,
		STAR_EQ:    STAR,
		SLASH_EQ:   SLASH,
		PERCENT_EQ: PERCENT,
	} {
		require.True(t, tok.IsAssignOp())
		require.Equal(t, want, tok.ArithOp())
	}
	require.False(t, PLUS.IsAssignOp())
}
