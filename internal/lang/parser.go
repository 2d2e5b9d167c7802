package lang

import (
	"fmt"
	"math/big"
	"strings"
)

// Parser is a recursive-descent parser over the token stream. The same
// parser handles contract files and specification files; specMode relaxes
// the rules that only make sense for one of the two (uninitialized locals,
// rule-only statements).
type Parser struct {
	tokens   []Token
	pos      int
	specMode bool
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseContractSource lexes and parses one contract source file.
func ParseContractSource(src string) (*File, error) {
	tokens, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	return p.parseContractFile()
}

// ParseSpecSource lexes and parses one specification source file.
func ParseSpecSource(src string) (*File, error) {
	tokens, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	p.specMode = true
	return p.parseSpecFile()
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) next() Token {
	tok := p.cur()
	p.pos++
	return tok
}

func (p *Parser) accept(typ TokenType) bool {
	if p.cur().Type == typ {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) expect(typ TokenType, what string) (Token, error) {
	tok := p.cur()
	if tok.Type != typ {
		return tok, p.errorf(tok, "expected %s, found %q", what, tok.Literal)
	}
	p.pos++
	return tok, nil
}

func (p *Parser) errorf(tok Token, format string, args ...interface{}) error {
	return fmt.Errorf("line %d:%d: %s", tok.Line, tok.Col, fmt.Sprintf(format, args...))
}

// ---- files ----

func (p *Parser) parseContractFile() (*File, error) {
	file := &File{}
	for p.cur().Type != TokenEOF {
		switch p.cur().Type {
		case TokenContract:
			contract, err := p.parseContract()
			if err != nil {
				return nil, err
			}
			file.Contracts = append(file.Contracts, contract)
		case TokenInterface:
			iface, err := p.parseInterface()
			if err != nil {
				return nil, err
			}
			file.Interfaces = append(file.Interfaces, iface)
		default:
			return nil, p.errorf(p.cur(), "expected contract or interface declaration, found %q", p.cur().Literal)
		}
	}
	return file, nil
}

func (p *Parser) parseSpecFile() (*File, error) {
	file := &File{}
	for p.cur().Type != TokenEOF {
		switch p.cur().Type {
		case TokenMethods:
			methods, err := p.parseMethods()
			if err != nil {
				return nil, err
			}
			if file.Methods != nil {
				return nil, p.errorf(p.cur(), "duplicate methods block")
			}
			file.Methods = methods
		case TokenRule:
			rule, err := p.parseRule()
			if err != nil {
				return nil, err
			}
			file.Rules = append(file.Rules, rule)
		case TokenInvariant:
			inv, err := p.parseInvariant()
			if err != nil {
				return nil, err
			}
			file.Invariants = append(file.Invariants, inv)
		case TokenGhost, TokenPersistent:
			ghost, err := p.parseGhost()
			if err != nil {
				return nil, err
			}
			file.Ghosts = append(file.Ghosts, ghost)
		case TokenHook:
			hook, err := p.parseHook()
			if err != nil {
				return nil, err
			}
			file.Hooks = append(file.Hooks, hook)
		default:
			return nil, p.errorf(p.cur(), "expected specification declaration, found %q", p.cur().Literal)
		}
	}
	return file, nil
}

// ---- contract declarations ----

func (p *Parser) parseContract() (*ContractDecl, error) {
	p.next() // contract
	name, err := p.expect(TokenIdent, "contract name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLBrace, "{"); err != nil {
		return nil, err
	}
	contract := &ContractDecl{Name: name.Literal}
	for p.cur().Type != TokenRBrace {
		switch p.cur().Type {
		case TokenFunction, TokenConstructor:
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			contract.Functions = append(contract.Functions, fn)
		case TokenEOF:
			return nil, p.errorf(p.cur(), "unexpected end of file in contract %s", contract.Name)
		default:
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			varName, err := p.expect(TokenIdent, "storage variable name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenSemicolon, ";"); err != nil {
				return nil, err
			}
			contract.Storage = append(contract.Storage, StorageVar{Name: varName.Literal, Type: typ})
		}
	}
	p.next() // }
	return contract, nil
}

func (p *Parser) parseInterface() (*InterfaceDecl, error) {
	p.next() // interface
	name, err := p.expect(TokenIdent, "interface name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLBrace, "{"); err != nil {
		return nil, err
	}
	iface := &InterfaceDecl{Name: name.Literal}
	for p.cur().Type != TokenRBrace {
		if _, err := p.expect(TokenFunction, "function"); err != nil {
			return nil, err
		}
		fnName, err := p.expect(TokenIdent, "function name")
		if err != nil {
			return nil, err
		}
		params, err := p.parseParamList(true)
		if err != nil {
			return nil, err
		}
		sig := FunctionSig{Name: fnName.Literal, Params: params}
		for {
			if p.accept(TokenExternal) {
				continue
			}
			if p.accept(TokenView) {
				sig.View = true
				continue
			}
			break
		}
		if p.accept(TokenReturns) {
			ret, err := p.parseReturnType()
			if err != nil {
				return nil, err
			}
			sig.Returns = ret
		}
		if _, err := p.expect(TokenSemicolon, ";"); err != nil {
			return nil, err
		}
		iface.Functions = append(iface.Functions, sig)
	}
	p.next() // }
	return iface, nil
}

func (p *Parser) parseFunction() (*FunctionDecl, error) {
	fn := &FunctionDecl{}
	if p.cur().Type == TokenConstructor {
		p.next()
		fn.IsConstructor = true
		fn.Name = "constructor"
	} else {
		p.next() // function
		name, err := p.expect(TokenIdent, "function name")
		if err != nil {
			return nil, err
		}
		fn.Name = name.Literal
	}
	params, err := p.parseParamList(false)
	if err != nil {
		return nil, err
	}
	fn.Params = params
	for {
		if p.accept(TokenView) {
			fn.Mutability = MutView
			continue
		}
		if p.accept(TokenPure) {
			fn.Mutability = MutPure
			continue
		}
		if p.accept(TokenExternal) {
			continue
		}
		break
	}
	if p.accept(TokenReturns) {
		ret, err := p.parseReturnType()
		if err != nil {
			return nil, err
		}
		fn.Returns = ret
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (p *Parser) parseReturnType() (*Type, error) {
	if _, err := p.expect(TokenLParen, "("); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	// an optional name on the return value is accepted and ignored
	p.accept(TokenIdent)
	if _, err := p.expect(TokenRParen, ")"); err != nil {
		return nil, err
	}
	return typ, nil
}

// parseParamList parses "(type name, ...)". When namesOptional is set a bare
// type is accepted, as in interface and methods-block signatures.
func (p *Parser) parseParamList(namesOptional bool) ([]Param, error) {
	if _, err := p.expect(TokenLParen, "("); err != nil {
		return nil, err
	}
	var params []Param
	for p.cur().Type != TokenRParen {
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		param := Param{Type: typ}
		if p.cur().Type == TokenIdent {
			param.Name = p.next().Literal
		} else if !namesOptional {
			return nil, p.errorf(p.cur(), "expected parameter name")
		}
		params = append(params, param)
		if !p.accept(TokenComma) {
			break
		}
	}
	if _, err := p.expect(TokenRParen, ")"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseType() (*Type, error) {
	tok := p.cur()
	switch tok.Type {
	case TokenUint256:
		p.next()
		return &Type{Kind: TypeUint256}, nil
	case TokenBool:
		p.next()
		return &Type{Kind: TypeBool}, nil
	case TokenAddress:
		p.next()
		return &Type{Kind: TypeAddress}, nil
	case TokenEnv:
		p.next()
		return &Type{Kind: TypeEnv}, nil
	case TokenMapping:
		p.next()
		if _, err := p.expect(TokenLParen, "("); err != nil {
			return nil, err
		}
		key, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenArrow, "=>"); err != nil {
			return nil, err
		}
		value, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return &Type{Kind: TypeMapping, Key: key, Value: value}, nil
	case TokenIdent:
		p.next()
		return &Type{Kind: TypeInterface, Name: tok.Literal}, nil
	}
	return nil, p.errorf(tok, "expected type, found %q", tok.Literal)
}

// ---- statements ----

func (p *Parser) parseBlock() (*Block, error) {
	if _, err := p.expect(TokenLBrace, "{"); err != nil {
		return nil, err
	}
	block := &Block{}
	for p.cur().Type != TokenRBrace {
		if p.cur().Type == TokenEOF {
			return nil, p.errorf(p.cur(), "unexpected end of file in block")
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	p.next() // }
	return block, nil
}

func (p *Parser) parseBlockOrStmt() (*Block, error) {
	if p.cur().Type == TokenLBrace {
		return p.parseBlock()
	}
	stmt, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &Block{Stmts: []Stmt{stmt}}, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	tok := p.cur()
	switch tok.Type {
	case TokenRequire:
		p.next()
		cond, msg, err := p.parseCondWithMessage()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSemicolon, ";"); err != nil {
			return nil, err
		}
		return &RequireStmt{Tok: tok, Cond: cond, Msg: msg}, nil
	case TokenAssert:
		if !p.specMode {
			return nil, p.errorf(tok, "assert is only valid in specification code")
		}
		p.next()
		cond, msg, err := p.parseCondWithMessage()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSemicolon, ";"); err != nil {
			return nil, err
		}
		return &AssertStmt{Tok: tok, Cond: cond, Msg: msg}, nil
	case TokenSatisfy:
		if !p.specMode {
			return nil, p.errorf(tok, "satisfy is only valid in specification code")
		}
		p.next()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSemicolon, ";"); err != nil {
			return nil, err
		}
		return &SatisfyStmt{Tok: tok, Cond: cond}, nil
	case TokenIf:
		p.next()
		if _, err := p.expect(TokenLParen, "("); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		then, err := p.parseBlockOrStmt()
		if err != nil {
			return nil, err
		}
		stmt := &IfStmt{Tok: tok, Cond: cond, Then: then}
		if p.accept(TokenElse) {
			els, err := p.parseBlockOrStmt()
			if err != nil {
				return nil, err
			}
			stmt.Else = els
		}
		return stmt, nil
	case TokenWhile:
		p.next()
		if _, err := p.expect(TokenLParen, "("); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Tok: tok, Cond: cond, Body: body}, nil
	case TokenReturn:
		p.next()
		stmt := &ReturnStmt{Tok: tok}
		if p.cur().Type != TokenSemicolon {
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			stmt.Value = value
		}
		if _, err := p.expect(TokenSemicolon, ";"); err != nil {
			return nil, err
		}
		return stmt, nil
	case TokenRevert:
		p.next()
		if p.accept(TokenLParen) {
			// an optional reason string is accepted and ignored
			p.accept(TokenString)
			if _, err := p.expect(TokenRParen, ")"); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(TokenSemicolon, ";"); err != nil {
			return nil, err
		}
		return &RevertStmt{Tok: tok}, nil
	case TokenUint256, TokenBool, TokenAddress, TokenEnv, TokenMapping:
		return p.parseDecl()
	}

	// identifier-led: declaration with interface type, assignment, or call
	if tok.Type == TokenIdent && p.peek().Type == TokenIdent {
		return p.parseDecl()
	}
	target, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.accept(TokenAssign) {
		switch target.(type) {
		case *Ident, *IndexExpr:
		default:
			return nil, p.errorf(tok, "cannot assign to this expression")
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSemicolon, ";"); err != nil {
			return nil, err
		}
		return &AssignStmt{Tok: tok, Target: target, Value: value}, nil
	}
	if _, err := p.expect(TokenSemicolon, ";"); err != nil {
		return nil, err
	}
	return &ExprStmt{Tok: tok, X: target}, nil
}

func (p *Parser) parseDecl() (Stmt, error) {
	tok := p.cur()
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdent, "variable name")
	if err != nil {
		return nil, err
	}
	stmt := &DeclStmt{Tok: tok, Type: typ, Name: name.Literal}
	if p.accept(TokenAssign) {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	} else if !p.specMode {
		return nil, p.errorf(tok, "local %q needs an initializer in contract code", name.Literal)
	}
	if _, err := p.expect(TokenSemicolon, ";"); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseCondWithMessage handles the shared require/assert shapes:
// cond, "(cond)", "(cond, msg)" and "cond, msg".
func (p *Parser) parseCondWithMessage() (Expr, string, error) {
	if p.cur().Type == TokenLParen {
		// try the parenthesized form first; "(e)" is also a valid expression,
		// so fall back when nothing message-like follows
		save := p.pos
		p.next()
		cond, err := p.parseExpr()
		if err == nil && p.accept(TokenComma) {
			msg, err := p.expect(TokenString, "message string")
			if err != nil {
				return nil, "", err
			}
			if _, err := p.expect(TokenRParen, ")"); err != nil {
				return nil, "", err
			}
			return cond, msg.Literal, nil
		}
		if err == nil && p.accept(TokenRParen) && p.cur().Type == TokenSemicolon {
			return cond, "", nil
		}
		p.pos = save
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, "", err
	}
	msg := ""
	if p.accept(TokenComma) {
		msgTok, err := p.expect(TokenString, "message string")
		if err != nil {
			return nil, "", err
		}
		msg = msgTok.Literal
	}
	return cond, msg, nil
}

// ---- expressions ----

// precedence climbing; higher binds tighter
func binaryPrecedence(op TokenType) int {
	switch op {
	case TokenArrow:
		return 1
	case TokenOrOr:
		return 2
	case TokenAndAnd:
		return 3
	case TokenEq, TokenNe:
		return 4
	case TokenLt, TokenLe, TokenGt, TokenGe:
		return 5
	case TokenPlus, TokenMinus:
		return 6
	case TokenStar, TokenSlash, TokenPercent:
		return 7
	}
	return 0
}

func (p *Parser) parseExpr() (Expr, error) {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		opTok := p.cur()
		prec := binaryPrecedence(opTok.Type)
		if prec < minPrec {
			return left, nil
		}
		p.next()
		nextMin := prec + 1
		if opTok.Type == TokenArrow {
			// implication associates to the right
			nextMin = prec
		}
		right, err := p.parseBinary(nextMin)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Tok: opTok, Op: opTok.Type, X: left, Y: right}
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	tok := p.cur()
	if tok.Type == TokenBang || tok.Type == TokenMinus {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Tok: tok, Op: tok.Type, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Type {
		case TokenLBracket:
			open := p.next()
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRBracket, "]"); err != nil {
				return nil, err
			}
			expr = &IndexExpr{Tok: open, X: expr, Index: index}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case TokenNumber:
		p.next()
		value := new(big.Int)
		var ok bool
		if strings.HasPrefix(tok.Literal, "0x") || strings.HasPrefix(tok.Literal, "0X") {
			_, ok = value.SetString(tok.Literal[2:], 16)
		} else {
			_, ok = value.SetString(tok.Literal, 10)
		}
		if !ok {
			return nil, p.errorf(tok, "bad number literal %q", tok.Literal)
		}
		if value.BitLen() > 256 {
			return nil, p.errorf(tok, "number literal %q does not fit in 256 bits", tok.Literal)
		}
		return &NumberLit{Tok: tok, Value: value}, nil
	case TokenString:
		p.next()
		return &StringLit{Tok: tok, Value: tok.Literal}, nil
	case TokenTrue:
		p.next()
		return &BoolLit{Tok: tok, Value: true}, nil
	case TokenFalse:
		p.next()
		return &BoolLit{Tok: tok, Value: false}, nil
	case TokenLParen:
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return expr, nil
	case TokenIdent:
		return p.parseIdentExpr()
	}
	return nil, p.errorf(tok, "unexpected token %q in expression", tok.Literal)
}

// parseIdentExpr resolves the identifier-led forms: plain names, dotted
// members (msg.sender, e.block.number), direct and receiver calls, and
// f@withrevert(...).
func (p *Parser) parseIdentExpr() (Expr, error) {
	tok := p.next()
	name := tok.Literal

	// dotted member chain
	if p.cur().Type == TokenDot {
		var path []string
		for p.accept(TokenDot) {
			part, err := p.expect(TokenIdent, "member name")
			if err != nil {
				return nil, err
			}
			path = append(path, part.Literal)
		}
		// recv.f(args) external call
		if p.cur().Type == TokenLParen && len(path) == 1 {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &CallExpr{Tok: tok, Recv: name, Name: path[0], Args: args}, nil
		}
		return &MemberExpr{Tok: tok, Base: name, Path: path}, nil
	}

	// f@withrevert(args)
	if p.cur().Type == TokenAt {
		p.next()
		mod, err := p.expect(TokenIdent, "call modifier")
		if err != nil {
			return nil, err
		}
		if mod.Literal != "withrevert" {
			return nil, p.errorf(mod, "unknown call modifier %q", mod.Literal)
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &CallExpr{Tok: tok, Name: name, WithRevert: true, Args: args}, nil
	}

	// f(args)
	if p.cur().Type == TokenLParen {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &CallExpr{Tok: tok, Name: name, Args: args}, nil
	}

	return &Ident{Tok: tok, Name: name}, nil
}

func (p *Parser) parseArgs() ([]Expr, error) {
	if _, err := p.expect(TokenLParen, "("); err != nil {
		return nil, err
	}
	var args []Expr
	for p.cur().Type != TokenRParen {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.accept(TokenComma) {
			break
		}
	}
	if _, err := p.expect(TokenRParen, ")"); err != nil {
		return nil, err
	}
	return args, nil
}

// ---- spec declarations ----

func (p *Parser) parseMethods() (*MethodsDecl, error) {
	p.next() // methods
	if _, err := p.expect(TokenLBrace, "{"); err != nil {
		return nil, err
	}
	methods := &MethodsDecl{}
	for p.cur().Type != TokenRBrace {
		if _, err := p.expect(TokenFunction, "function"); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent, "method name")
		if err != nil {
			return nil, err
		}
		params, err := p.parseParamList(true)
		if err != nil {
			return nil, err
		}
		entry := MethodEntry{Name: name.Literal, Params: params}
		for {
			if p.accept(TokenExternal) {
				continue
			}
			if p.accept(TokenEnvfree) {
				entry.Envfree = true
				continue
			}
			if p.cur().Type == TokenReturns {
				p.next()
				ret, err := p.parseReturnType()
				if err != nil {
					return nil, err
				}
				entry.Returns = ret
				continue
			}
			break
		}
		if _, err := p.expect(TokenSemicolon, ";"); err != nil {
			return nil, err
		}
		methods.Entries = append(methods.Entries, entry)
	}
	p.next() // }
	return methods, nil
}

func (p *Parser) parseRule() (*RuleDecl, error) {
	p.next() // rule
	name, err := p.expect(TokenIdent, "rule name")
	if err != nil {
		return nil, err
	}
	rule := &RuleDecl{Name: name.Literal}
	if p.cur().Type == TokenLParen {
		params, err := p.parseParamList(false)
		if err != nil {
			return nil, err
		}
		rule.Params = params
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	rule.Body = body
	return rule, nil
}

func (p *Parser) parseInvariant() (*InvariantDecl, error) {
	p.next() // invariant
	name, err := p.expect(TokenIdent, "invariant name")
	if err != nil {
		return nil, err
	}
	inv := &InvariantDecl{Name: name.Literal}
	params, err := p.parseParamList(false)
	if err != nil {
		return nil, err
	}
	inv.Params = params
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	inv.Cond = cond
	if p.cur().Type == TokenLBrace {
		p.next()
		for p.cur().Type != TokenRBrace {
			block, err := p.parsePreserved()
			if err != nil {
				return nil, err
			}
			inv.Preserved = append(inv.Preserved, *block)
		}
		p.next() // }
	} else if _, err := p.expect(TokenSemicolon, ";"); err != nil {
		return nil, err
	}
	return inv, nil
}

func (p *Parser) parsePreserved() (*PreservedBlock, error) {
	if _, err := p.expect(TokenPreserved, "preserved"); err != nil {
		return nil, err
	}
	block := &PreservedBlock{}
	if p.cur().Type == TokenIdent {
		// preserved f(uint256 x) ...
		name := p.next()
		block.FuncName = name.Literal
		params, err := p.parseParamList(false)
		if err != nil {
			return nil, err
		}
		block.Params = params
	}
	if p.accept(TokenWith) {
		if _, err := p.expect(TokenLParen, "("); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenEnv, "env"); err != nil {
			return nil, err
		}
		envName, err := p.expect(TokenIdent, "environment name")
		if err != nil {
			return nil, err
		}
		block.EnvName = envName.Literal
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	block.Body = body
	return block, nil
}

func (p *Parser) parseGhost() (*GhostDecl, error) {
	ghost := &GhostDecl{}
	if p.accept(TokenPersistent) {
		ghost.Persistent = true
	}
	if _, err := p.expect(TokenGhost, "ghost"); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	ghost.Type = typ
	name, err := p.expect(TokenIdent, "ghost name")
	if err != nil {
		return nil, err
	}
	ghost.Name = name.Literal
	if p.cur().Type == TokenLBrace {
		p.next()
		for p.cur().Type != TokenRBrace {
			initState := p.accept(TokenInitState)
			if _, err := p.expect(TokenAxiom, "axiom"); err != nil {
				return nil, err
			}
			cond, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenSemicolon, ";"); err != nil {
				return nil, err
			}
			if initState {
				ghost.InitAxioms = append(ghost.InitAxioms, cond)
			} else {
				ghost.Axioms = append(ghost.Axioms, cond)
			}
		}
		p.next() // }
	} else if _, err := p.expect(TokenSemicolon, ";"); err != nil {
		return nil, err
	}
	return ghost, nil
}

// parseHook handles the two access patterns:
//
//	hook Sstore balances[KEY address a] uint256 v (uint256 old) { ... }
//	hook Sstore total uint256 v { ... }
//	hook Sload uint256 v balances[KEY address a] { ... }
func (p *Parser) parseHook() (*HookDecl, error) {
	p.next() // hook
	kindTok, err := p.expect(TokenIdent, "Sstore or Sload")
	if err != nil {
		return nil, err
	}
	hook := &HookDecl{}
	switch kindTok.Literal {
	case "Sstore":
		hook.Kind = HookSstore
		if err := p.parseHookPattern(hook); err != nil {
			return nil, err
		}
		valueParam, err := p.parseTypedName("new value")
		if err != nil {
			return nil, err
		}
		hook.ValueParam = valueParam
		if p.cur().Type == TokenLParen {
			p.next()
			oldParam, err := p.parseTypedName("old value")
			if err != nil {
				return nil, err
			}
			hook.OldParam = &oldParam
			if _, err := p.expect(TokenRParen, ")"); err != nil {
				return nil, err
			}
		}
	case "Sload":
		hook.Kind = HookSload
		valueParam, err := p.parseTypedName("loaded value")
		if err != nil {
			return nil, err
		}
		hook.ValueParam = valueParam
		if err := p.parseHookPattern(hook); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf(kindTok, "unknown hook kind %q", kindTok.Literal)
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	hook.Body = body
	return hook, nil
}

func (p *Parser) parseHookPattern(hook *HookDecl) error {
	varTok, err := p.expect(TokenIdent, "storage variable")
	if err != nil {
		return err
	}
	hook.Variable = varTok.Literal
	if p.accept(TokenLBracket) {
		keyTok, err := p.expect(TokenIdent, "KEY")
		if err != nil {
			return err
		}
		if keyTok.Literal != "KEY" {
			return p.errorf(keyTok, "expected KEY, found %q", keyTok.Literal)
		}
		keyParam, err := p.parseTypedName("key")
		if err != nil {
			return err
		}
		hook.KeyParam = &keyParam
		if _, err := p.expect(TokenRBracket, "]"); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseTypedName(what string) (Param, error) {
	typ, err := p.parseType()
	if err != nil {
		return Param{}, err
	}
	name, err := p.expect(TokenIdent, what+" name")
	if err != nil {
		return Param{}, err
	}
	return Param{Type: typ, Name: name.Literal}, nil
}
