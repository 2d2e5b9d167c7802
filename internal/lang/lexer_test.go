package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_TokenizeOperators(t *testing.T) {
	tokens, err := NewLexer("a => b && c == d != e <= f >= g").Tokenize()
	require.NoError(t, err)

	types := make([]TokenType, 0, len(tokens))
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TokenIdent, TokenArrow, TokenIdent, TokenAndAnd, TokenIdent,
		TokenEq, TokenIdent, TokenNe, TokenIdent, TokenLe, TokenIdent,
		TokenGe, TokenIdent, TokenEOF,
	}, types)
}

func Test_TokenizeKeywords(t *testing.T) {
	tokens, err := NewLexer("rule invariant ghost persistent hook preserved envfree").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, TokenRule, tokens[0].Type)
	assert.Equal(t, TokenInvariant, tokens[1].Type)
	assert.Equal(t, TokenGhost, tokens[2].Type)
	assert.Equal(t, TokenPersistent, tokens[3].Type)
	assert.Equal(t, TokenHook, tokens[4].Type)
	assert.Equal(t, TokenPreserved, tokens[5].Type)
	assert.Equal(t, TokenEnvfree, tokens[6].Type)
}

func Test_TokenizeNumbers(t *testing.T) {
	tokens, err := NewLexer("42 0xFF 0").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, "42", tokens[0].Literal)
	assert.Equal(t, "0xFF", tokens[1].Literal)
	assert.Equal(t, "0", tokens[2].Literal)
	for _, tok := range tokens[:3] {
		assert.Equal(t, TokenNumber, tok.Type)
	}
}

func Test_TokenizeComments(t *testing.T) {
	src := `
// line comment
a /* block
comment */ b`
	tokens, err := NewLexer(src).Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "a", tokens[0].Literal)
	assert.Equal(t, "b", tokens[1].Literal)
	assert.Equal(t, TokenEOF, tokens[2].Type)
}

func Test_TokenizePositions(t *testing.T) {
	tokens, err := NewLexer("a\n  b").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, 1, tokens[0].Line)
	assert.Equal(t, 2, tokens[1].Line)
	assert.Equal(t, 3, tokens[1].Col)
}

func Test_TokenizeUnterminatedString(t *testing.T) {
	_, err := NewLexer(`require(x, "oops`).Tokenize()
	assert.Error(t, err)
}

func Test_TokenizeString(t *testing.T) {
	tokens, err := NewLexer(`assert x > 0, "must be positive";`).Tokenize()
	require.NoError(t, err)

	var str *Token
	for i := range tokens {
		if tokens[i].Type == TokenString {
			str = &tokens[i]
			break
		}
	}
	require.NotNil(t, str)
	assert.Equal(t, "must be positive", str.Literal)
}
