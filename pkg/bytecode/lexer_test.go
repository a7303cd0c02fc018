package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, input string) []Token {
	t.Helper()
	l := New(input)
	var toks []Token
	for {
		tok, err := l.NextToken()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}

func TestLexerPunctuationAndKeywords(t *testing.T) {
	toks := scanAll(t, "vtable Point { size : 16 }")
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	assert.Equal(t, []TokenType{
		TokenKeyword, TokenIdent, TokenLBrace, TokenKeyword, TokenColon, TokenInt, TokenRBrace, TokenEOF,
	}, types)
}

func TestLexerHyphenatedKeywords(t *testing.T) {
	toks := scanAll(t, "init-static { } no-jit function")
	require.Len(t, toks, 6)
	assert.Equal(t, TokenKeyword, toks[0].Type)
	assert.Equal(t, "init-static", toks[0].Literal)
	assert.Equal(t, TokenKeyword, toks[3].Type)
	assert.Equal(t, "no-jit", toks[3].Literal)
}

func TestLexerIdentifierWithAngleBrackets(t *testing.T) {
	toks := scanAll(t, "_Equals_<C>_IComparable")
	require.Len(t, toks, 2)
	assert.Equal(t, TokenIdent, toks[0].Type)
	assert.Equal(t, "_Equals_<C>_IComparable", toks[0].Literal)
}

func TestLexerNumbers(t *testing.T) {
	toks := scanAll(t, "42 3.14")
	require.Len(t, toks, 3)
	assert.Equal(t, TokenInt, toks[0].Type)
	assert.Equal(t, "42", toks[0].Literal)
	assert.Equal(t, TokenFloat, toks[1].Type)
	assert.Equal(t, "3.14", toks[1].Literal)
}

func TestLexerStringEscapes(t *testing.T) {
	toks := scanAll(t, `"hello\nworld\t\"quoted\""`)
	require.Len(t, toks, 2)
	assert.Equal(t, TokenString, toks[0].Type)
	assert.Equal(t, "hello\nworld\t\"quoted\"", toks[0].Literal)
}

func TestLexerUnterminatedStringErrors(t *testing.T) {
	l := New(`"no closing quote`)
	_, err := l.NextToken()
	assert.Error(t, err)
}

func TestLexerRawNewlineInStringErrors(t *testing.T) {
	l := New("\"line one\nline two\"")
	_, err := l.NextToken()
	assert.Error(t, err)
}

func TestLexerUnexpectedCharacterErrors(t *testing.T) {
	l := New("#")
	_, err := l.NextToken()
	assert.Error(t, err)
}
