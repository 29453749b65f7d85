package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestSemicolonsAreWhitespace(t *testing.T) {
	toks := New("a := 1; b := 2").Tokenize()
	require.Equal(t, []Kind{ID, OP, NUM, ID, OP, NUM, EOF}, kinds(toks))
}

func TestLineComment(t *testing.T) {
	toks := New("a := 1 ! trailing comment\nb := 2").Tokenize()
	require.Len(t, toks, 7) // a := 1 b := 2 EOF
}

func TestNumberWithTypeSuffix(t *testing.T) {
	toks := New("42_i64").Tokenize()
	require.Equal(t, NUM, toks[0].Kind)
	require.Equal(t, "42", toks[0].Lexeme)
	require.Equal(t, "i64", toks[0].TypeSuffix)
}

func TestFloatLiteral(t *testing.T) {
	toks := New("3.14e-2").Tokenize()
	require.Equal(t, NUM, toks[0].Kind)
	require.True(t, toks[0].IsFloat)
	require.Equal(t, "3.14e-2", toks[0].Lexeme)
}

func TestDottedIdentifierStopsBeforeTrailingDot(t *testing.T) {
	toks := New("math.").Tokenize()
	require.Equal(t, ID, toks[0].Kind)
	require.Equal(t, "math", toks[0].Lexeme)
	require.Equal(t, PUNC, toks[1].Kind)
	require.Equal(t, ".", toks[1].Lexeme)
}

func TestDottedIdentifierMidName(t *testing.T) {
	toks := New("Sphere.radius").Tokenize()
	require.Equal(t, ID, toks[0].Kind)
	require.Equal(t, "Sphere.radius", toks[0].Lexeme)
}

func TestMultiCharOperators(t *testing.T) {
	toks := New(":= += -= *= /= == <= >= << >> **").Tokenize()
	want := []string{":=", "+=", "-=", "*=", "/=", "==", "<=", ">=", "<<", ">>", "**"}
	for i, w := range want {
		require.Equal(t, w, toks[i].Lexeme)
		require.Equal(t, OP, toks[i].Kind)
	}
}

func TestKeywordsAndTypeNamesBecomeKW(t *testing.T) {
	toks := New("function i32 layout begin").Tokenize()
	for _, tok := range toks[:4] {
		require.Equal(t, KW, tok.Kind)
	}
}

func TestInterpolationMarker(t *testing.T) {
	toks := New("__INTERP_3__").Tokenize()
	require.True(t, toks[0].Interpolation)
	require.Equal(t, ID, toks[0].Kind)
}

func TestUnknownCharactersSkipped(t *testing.T) {
	toks := New("a # $ b").Tokenize()
	require.Equal(t, []Kind{ID, ID, EOF}, kinds(toks))
}

func TestEOFCarriesFinalPosition(t *testing.T) {
	toks := New("ab").Tokenize()
	eof := toks[len(toks)-1]
	require.Equal(t, EOF, eof.Kind)
	require.Equal(t, 1, eof.Line)
}
