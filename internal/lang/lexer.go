package lang

import (
	"fmt"
)

// Lexer scans a contract or specification source into tokens. Both languages
// share one token set.
type Lexer struct {
	input    string
	position int
	line     int
	linePos  int
	tokens   []Token
}

func NewLexer(input string) *Lexer {
	return &Lexer{
		input:    input,
		position: 0,
		line:     1,
		tokens:   make([]Token, 0),
	}
}

// Tokenize processes the entire input and produces the token list, ending
// with an EOF token.
func (l *Lexer) Tokenize() ([]Token, error) {
	for l.position < len(l.input) {
		c := l.input[l.position]
		switch {
		case c == '\n':
			l.line++
			l.linePos = l.position + 1
			l.position++
		case isWhitespace(c):
			l.position++
		case c == '/' && l.peek(1) == '/':
			l.skipLineComment()
		case c == '/' && l.peek(1) == '*':
			if err := l.skipBlockComment(); err != nil {
				return nil, err
			}
		case isLetter(c):
			l.lexIdent()
		case isDigit(c):
			l.lexNumber()
		case c == '"':
			if err := l.lexString(); err != nil {
				return nil, err
			}
		default:
			if err := l.lexOperator(); err != nil {
				return nil, err
			}
		}
	}
	l.addToken(TokenEOF, "")
	return l.tokens, nil
}

func (l *Lexer) peek(offset int) byte {
	if l.position+offset >= len(l.input) {
		return 0
	}
	return l.input[l.position+offset]
}

func (l *Lexer) addToken(typ TokenType, literal string) {
	l.addTokenAt(typ, literal, l.position)
}

func (l *Lexer) addTokenAt(typ TokenType, literal string, pos int) {
	l.tokens = append(l.tokens, Token{
		Type:    typ,
		Literal: literal,
		Line:    l.line,
		Col:     pos - l.linePos + 1,
	})
}

func (l *Lexer) skipLineComment() {
	for l.position < len(l.input) && l.input[l.position] != '\n' {
		l.position++
	}
}

func (l *Lexer) skipBlockComment() error {
	start := l.line
	l.position += 2
	for l.position < len(l.input) {
		if l.input[l.position] == '\n' {
			l.line++
			l.linePos = l.position + 1
		}
		if l.input[l.position] == '*' && l.peek(1) == '/' {
			l.position += 2
			return nil
		}
		l.position++
	}
	return fmt.Errorf("line %d: unterminated block comment", start)
}

func (l *Lexer) lexIdent() {
	start := l.position
	for l.position < len(l.input) && isIdentChar(l.input[l.position]) {
		l.position++
	}
	word := l.input[start:l.position]
	if kw, ok := keywords[word]; ok {
		l.addTokenAt(kw, word, start)
	} else {
		l.addTokenAt(TokenIdent, word, start)
	}
}

func (l *Lexer) lexNumber() {
	start := l.position
	// hex literal
	if l.input[l.position] == '0' && (l.peek(1) == 'x' || l.peek(1) == 'X') {
		l.position += 2
		for l.position < len(l.input) && isHexDigit(l.input[l.position]) {
			l.position++
		}
	} else {
		for l.position < len(l.input) && isDigit(l.input[l.position]) {
			l.position++
		}
	}
	l.addTokenAt(TokenNumber, l.input[start:l.position], start)
}

func (l *Lexer) lexString() error {
	start := l.position
	l.position++
	for l.position < len(l.input) && l.input[l.position] != '"' {
		if l.input[l.position] == '\n' {
			return fmt.Errorf("line %d: unterminated string", l.line)
		}
		l.position++
	}
	if l.position >= len(l.input) {
		return fmt.Errorf("line %d: unterminated string", l.line)
	}
	word := l.input[start+1 : l.position]
	l.position++
	l.addTokenAt(TokenString, word, start)
	return nil
}

func (l *Lexer) lexOperator() error {
	two := ""
	if l.position+1 < len(l.input) {
		two = l.input[l.position : l.position+2]
	}
	switch two {
	case "=>":
		l.addToken(TokenArrow, two)
		l.position += 2
		return nil
	case "==":
		l.addToken(TokenEq, two)
		l.position += 2
		return nil
	case "!=":
		l.addToken(TokenNe, two)
		l.position += 2
		return nil
	case "<=":
		l.addToken(TokenLe, two)
		l.position += 2
		return nil
	case ">=":
		l.addToken(TokenGe, two)
		l.position += 2
		return nil
	case "&&":
		l.addToken(TokenAndAnd, two)
		l.position += 2
		return nil
	case "||":
		l.addToken(TokenOrOr, two)
		l.position += 2
		return nil
	}

	c := l.input[l.position]
	var typ TokenType
	switch c {
	case '(':
		typ = TokenLParen
	case ')':
		typ = TokenRParen
	case '{':
		typ = TokenLBrace
	case '}':
		typ = TokenRBrace
	case '[':
		typ = TokenLBracket
	case ']':
		typ = TokenRBracket
	case ',':
		typ = TokenComma
	case ';':
		typ = TokenSemicolon
	case '.':
		typ = TokenDot
	case '@':
		typ = TokenAt
	case '=':
		typ = TokenAssign
	case '+':
		typ = TokenPlus
	case '-':
		typ = TokenMinus
	case '*':
		typ = TokenStar
	case '/':
		typ = TokenSlash
	case '%':
		typ = TokenPercent
	case '!':
		typ = TokenBang
	case '<':
		typ = TokenLt
	case '>':
		typ = TokenGt
	default:
		return fmt.Errorf("line %d: unexpected character %q", l.line, string(c))
	}
	l.addToken(typ, string(c))
	l.position++
	return nil
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c)
}
