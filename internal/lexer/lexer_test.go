package lexer

import (
	"testing"

	"github.com/totalspectrum/spinc/internal/token"
)

// TestNextToken exercises Spin's operator set, literal forms, and keywords.
func TestNextToken(t *testing.T) {
	input := `CON
  PinMask = $FF
VAR
  long state
PUB main(a, b) | tmp
  tmp := a + b
  outa[4..2] := %110
  repeat i from 10 to 1 step 1
    state <<<= 1
  return tmp =< 5 <> 0
`
	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.CON, "CON"},
		{token.IDENT, "PinMask"},
		{token.CONASSIGN, "="},
		{token.INT, "$FF"},
		{token.VAR, "VAR"},
		{token.IDENT, "long"},
		{token.IDENT, "state"},
		{token.PUB, "PUB"},
		{token.IDENT, "main"},
		{token.LPAREN, "("},
		{token.IDENT, "a"},
		{token.COMMA, ","},
		{token.IDENT, "b"},
		{token.RPAREN, ")"},
		{token.PIPE, "|"},
		{token.IDENT, "tmp"},
		{token.IDENT, "tmp"},
		{token.ASSIGN, ":="},
		{token.IDENT, "a"},
		{token.PLUS, "+"},
		{token.IDENT, "b"},
		{token.IDENT, "outa"},
		{token.LBRACKET, "["},
		{token.INT, "4"},
		{token.DOTDOT, ".."},
		{token.INT, "2"},
		{token.RBRACKET, "]"},
		{token.ASSIGN, ":="},
		{token.INT, "%110"},
		{token.REPEAT, "repeat"},
		{token.IDENT, "i"},
		{token.FROM, "from"},
		{token.INT, "10"},
		{token.TO, "to"},
		{token.INT, "1"},
		{token.STEP, "step"},
		{token.INT, "1"},
		{token.IDENT, "state"},
		{token.ROTL, "<<<"},
		{token.CONASSIGN, "="},
		{token.INT, "1"},
		{token.RETURN, "return"},
		{token.IDENT, "tmp"},
		{token.LE, "=<"},
		{token.INT, "5"},
		{token.NOT_EQ, "<>"},
		{token.INT, "0"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (literal %q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

// TestKeywordsAreCaseInsensitive checks that REPEAT, Repeat, and repeat all
// lex the same way, per Spin's case-insensitive keyword rule, while the
// literal text of the identifier is preserved for diagnostics.
func TestKeywordsAreCaseInsensitive(t *testing.T) {
	for _, src := range []string{"REPEAT", "Repeat", "repeat"} {
		l := New(src)
		tok := l.NextToken()
		if tok.Type != token.REPEAT {
			t.Fatalf("New(%q).NextToken().Type = %q; want REPEAT", src, tok.Type)
		}
		if tok.Literal != src {
			t.Fatalf("New(%q).NextToken().Literal = %q; want %q (literal preserved)", src, tok.Literal, src)
		}
	}
}

// TestLineTracking verifies tokens after a newline report the advanced line.
func TestLineTracking(t *testing.T) {
	l := New("a\nb\n\nc")
	want := []int{1, 2, 4}
	for i, w := range want {
		tok := l.NextToken()
		if tok.Line != w {
			t.Fatalf("token %d (%q) on line %d; want %d", i, tok.Literal, tok.Line, w)
		}
	}
}

// TestBlockCommentsNest ensures nested `{ }` comments are skipped as a unit.
func TestBlockCommentsNest(t *testing.T) {
	l := New("a { outer { inner } still-outer } b")
	first := l.NextToken()
	second := l.NextToken()
	if first.Literal != "a" || second.Literal != "b" {
		t.Fatalf("got %q, %q; want a, b (nested comment skipped whole)", first.Literal, second.Literal)
	}
}
