package lang

import "math/big"

// ---- types ----

type TypeKind int

const (
	TypeUint256 TypeKind = iota
	TypeBool
	TypeAddress
	TypeEnv
	TypeMapping
	TypeInterface
)

type Type struct {
	Kind  TypeKind
	Key   *Type  // mapping key
	Value *Type  // mapping value
	Name  string // interface name
}

func (t *Type) String() string {
	switch t.Kind {
	case TypeUint256:
		return "uint256"
	case TypeBool:
		return "bool"
	case TypeAddress:
		return "address"
	case TypeEnv:
		return "env"
	case TypeMapping:
		return "mapping(" + t.Key.String() + " => " + t.Value.String() + ")"
	case TypeInterface:
		return t.Name
	}
	return "unknown"
}

func (t *Type) IsMapping() bool {
	return t != nil && t.Kind == TypeMapping
}

// ---- expressions ----

type Expr interface {
	exprNode()
	Pos() Token
}

type NumberLit struct {
	Tok   Token
	Value *big.Int
}

type BoolLit struct {
	Tok   Token
	Value bool
}

type StringLit struct {
	Tok   Token
	Value string
}

type Ident struct {
	Tok  Token
	Name string
}

// MemberExpr covers msg.sender, block.timestamp, e.msg.value and friends.
// Path holds the dotted chain after the leading identifier.
type MemberExpr struct {
	Tok  Token
	Base string
	Path []string
}

type IndexExpr struct {
	Tok   Token
	X     Expr
	Index Expr
}

// CallExpr is both a contract-internal call f(args), an external call
// recv.f(args), and a spec call f(args) / f@withrevert(args).
type CallExpr struct {
	Tok        Token
	Recv       string // receiver identifier, "" for direct calls
	Name       string
	WithRevert bool
	Args       []Expr
}

type UnaryExpr struct {
	Tok Token
	Op  TokenType
	X   Expr
}

type BinaryExpr struct {
	Tok Token
	Op  TokenType
	X   Expr
	Y   Expr
}

func (*NumberLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*StringLit) exprNode()  {}
func (*Ident) exprNode()      {}
func (*MemberExpr) exprNode() {}
func (*IndexExpr) exprNode()  {}
func (*CallExpr) exprNode()   {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}

func (e *NumberLit) Pos() Token  { return e.Tok }
func (e *BoolLit) Pos() Token    { return e.Tok }
func (e *StringLit) Pos() Token  { return e.Tok }
func (e *Ident) Pos() Token      { return e.Tok }
func (e *MemberExpr) Pos() Token { return e.Tok }
func (e *IndexExpr) Pos() Token  { return e.Tok }
func (e *CallExpr) Pos() Token   { return e.Tok }
func (e *UnaryExpr) Pos() Token  { return e.Tok }
func (e *BinaryExpr) Pos() Token { return e.Tok }

// ---- statements ----

type Stmt interface {
	stmtNode()
	Pos() Token
}

type Block struct {
	Stmts []Stmt
}

// DeclStmt declares a local. A nil Value in specification code leaves the
// local as a fresh unconstrained symbol; contract code requires an
// initializer, which the parser enforces.
type DeclStmt struct {
	Tok   Token
	Type  *Type
	Name  string
	Value Expr
}

type AssignStmt struct {
	Tok    Token
	Target Expr // Ident or IndexExpr
	Value  Expr
}

type RequireStmt struct {
	Tok  Token
	Cond Expr
	Msg  string
}

type AssertStmt struct {
	Tok  Token
	Cond Expr
	Msg  string
}

type SatisfyStmt struct {
	Tok  Token
	Cond Expr
}

type IfStmt struct {
	Tok  Token
	Cond Expr
	Then *Block
	Else *Block // nil when absent
}

type WhileStmt struct {
	Tok  Token
	Cond Expr
	Body *Block
}

type ReturnStmt struct {
	Tok   Token
	Value Expr // nil for bare return
}

type RevertStmt struct {
	Tok Token
}

type ExprStmt struct {
	Tok Token
	X   Expr
}

func (*DeclStmt) stmtNode()    {}
func (*AssignStmt) stmtNode()  {}
func (*RequireStmt) stmtNode() {}
func (*AssertStmt) stmtNode()  {}
func (*SatisfyStmt) stmtNode() {}
func (*IfStmt) stmtNode()      {}
func (*WhileStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode()  {}
func (*RevertStmt) stmtNode()  {}
func (*ExprStmt) stmtNode()    {}

func (s *DeclStmt) Pos() Token    { return s.Tok }
func (s *AssignStmt) Pos() Token  { return s.Tok }
func (s *RequireStmt) Pos() Token { return s.Tok }
func (s *AssertStmt) Pos() Token  { return s.Tok }
func (s *SatisfyStmt) Pos() Token { return s.Tok }
func (s *IfStmt) Pos() Token      { return s.Tok }
func (s *WhileStmt) Pos() Token   { return s.Tok }
func (s *ReturnStmt) Pos() Token  { return s.Tok }
func (s *RevertStmt) Pos() Token  { return s.Tok }
func (s *ExprStmt) Pos() Token    { return s.Tok }

// ---- declarations ----

type Param struct {
	Type *Type
	Name string
}

type Mutability int

const (
	MutDefault Mutability = iota
	MutView
	MutPure
)

type StorageVar struct {
	Name string
	Type *Type
}

type FunctionDecl struct {
	Name          string
	Params        []Param
	Returns       *Type
	Mutability    Mutability
	IsConstructor bool
	Body          *Block
}

type ContractDecl struct {
	Name      string
	Storage   []StorageVar
	Functions []*FunctionDecl
}

type FunctionSig struct {
	Name    string
	Params  []Param
	Returns *Type
	View    bool
}

type InterfaceDecl struct {
	Name      string
	Functions []FunctionSig
}

type MethodEntry struct {
	Name    string
	Params  []Param
	Returns *Type
	Envfree bool
}

type MethodsDecl struct {
	Entries []MethodEntry
}

type RuleDecl struct {
	Name   string
	Params []Param
	Body   *Block
}

// PreservedBlock attaches extra preconditions to the inductive step of an
// invariant. FuncName "" is the generic block applied to every operation.
type PreservedBlock struct {
	FuncName string
	Params   []Param
	EnvName  string
	Body     *Block
}

type InvariantDecl struct {
	Name      string
	Params    []Param
	Cond      Expr
	Preserved []PreservedBlock
}

type GhostDecl struct {
	Name       string
	Type       *Type
	Persistent bool
	InitAxioms []Expr
	Axioms     []Expr
}

type HookKind int

const (
	HookSstore HookKind = iota
	HookSload
)

// HookDecl binds a storage access pattern to a body run at every matching
// access. For Sstore the value param carries the new value and OldParam, when
// present, the pre-write value; for Sload the value param carries the value
// being read.
type HookDecl struct {
	Kind      HookKind
	Variable  string
	KeyParam  *Param // non-nil for mapping patterns
	ValueParam Param
	OldParam  *Param
	Body      *Block
}

// File is everything parsed out of one source file; contract files fill the
// first two lists, spec files the rest.
type File struct {
	Contracts  []*ContractDecl
	Interfaces []*InterfaceDecl
	Methods    *MethodsDecl
	Rules      []*RuleDecl
	Invariants []*InvariantDecl
	Ghosts     []*GhostDecl
	Hooks      []*HookDecl
}
