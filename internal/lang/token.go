package lang

import "fmt"

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenNumber
	TokenString

	// punctuation
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenComma
	TokenSemicolon
	TokenDot
	TokenAt
	TokenArrow // =>

	// operators
	TokenAssign
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenBang
	TokenLt
	TokenLe
	TokenGt
	TokenGe
	TokenEq
	TokenNe
	TokenAndAnd
	TokenOrOr

	// keywords
	TokenContract
	TokenInterface
	TokenFunction
	TokenConstructor
	TokenReturns
	TokenReturn
	TokenView
	TokenPure
	TokenExternal
	TokenEnvfree
	TokenMapping
	TokenUint256
	TokenBool
	TokenAddress
	TokenEnv
	TokenRequire
	TokenAssert
	TokenSatisfy
	TokenIf
	TokenElse
	TokenWhile
	TokenRevert
	TokenTrue
	TokenFalse
	TokenRule
	TokenInvariant
	TokenGhost
	TokenPersistent
	TokenHook
	TokenMethods
	TokenPreserved
	TokenWith
	TokenAxiom
	TokenInitState
)

var keywords = map[string]TokenType{
	"contract":    TokenContract,
	"interface":   TokenInterface,
	"function":    TokenFunction,
	"constructor": TokenConstructor,
	"returns":     TokenReturns,
	"return":      TokenReturn,
	"view":        TokenView,
	"pure":        TokenPure,
	"external":    TokenExternal,
	"envfree":     TokenEnvfree,
	"mapping":     TokenMapping,
	"uint256":     TokenUint256,
	"bool":        TokenBool,
	"address":     TokenAddress,
	"env":         TokenEnv,
	"require":     TokenRequire,
	"assert":      TokenAssert,
	"satisfy":     TokenSatisfy,
	"if":          TokenIf,
	"else":        TokenElse,
	"while":       TokenWhile,
	"revert":      TokenRevert,
	"true":        TokenTrue,
	"false":       TokenFalse,
	"rule":        TokenRule,
	"invariant":   TokenInvariant,
	"ghost":       TokenGhost,
	"persistent":  TokenPersistent,
	"hook":        TokenHook,
	"methods":     TokenMethods,
	"preserved":   TokenPreserved,
	"with":        TokenWith,
	"axiom":       TokenAxiom,
	"init_state":  TokenInitState,
}

// Token is one lexical unit with its position for error reporting.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Col     int
}

func (t Token) String() string {
	return fmt.Sprintf("%q@%d:%d", t.Literal, t.Line, t.Col)
}
