package engine

import (
	"math/big"

	"github.com/pkg/errors"

	"gprover/internal/funcs"
	"gprover/internal/lang"
	"gprover/internal/smt"
	"gprover/internal/state"
)

// EvalResult pairs a value with the state that produced it. Expressions
// containing calls can fork, so one expression yields one result per path.
type EvalResult struct {
	State *state.GlobalState
	Value smt.StorableType
}

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// EvalExpr evaluates an expression in the current frame. Invariant
// predicates and axioms go through here.
func (e *Engine) EvalExpr(gs *state.GlobalState, expr lang.Expr) ([]EvalResult, error) {
	return e.evalExpr(gs, expr)
}

func (e *Engine) evalExpr(gs *state.GlobalState, expr lang.Expr) ([]EvalResult, error) {
	switch x := expr.(type) {
	case *lang.NumberLit:
		return single(gs, smt.NewBitVecVal(x.Value, smt.DefaultBitVecSize)), nil
	case *lang.BoolLit:
		return single(gs, smt.NewBoolVal(x.Value)), nil
	case *lang.StringLit:
		return nil, errors.Errorf("line %d: string literal used as a value", x.Tok.Line)
	case *lang.Ident:
		return e.evalIdent(gs, x)
	case *lang.MemberExpr:
		return e.evalMember(gs, x)
	case *lang.IndexExpr:
		return e.evalIndex(gs, x)
	case *lang.UnaryExpr:
		return e.evalUnary(gs, x)
	case *lang.BinaryExpr:
		return e.evalBinary(gs, x)
	case *lang.CallExpr:
		return e.evalCall(gs, x)
	}
	return nil, errors.Errorf("line %d: unsupported expression", expr.Pos().Line)
}

func single(gs *state.GlobalState, value smt.StorableType) []EvalResult {
	return []EvalResult{{State: gs, Value: value}}
}

func (e *Engine) evalIdent(gs *state.GlobalState, x *lang.Ident) ([]EvalResult, error) {
	switch x.Name {
	case "lastReverted":
		return single(gs, smt.NewBoolVal(gs.LastReverted)), nil
	case "max_uint256":
		return single(gs, smt.NewBitVecVal(maxUint256, smt.DefaultBitVecSize)), nil
	}
	if value, ok := gs.LookupLocal(x.Name); ok {
		return single(gs, value), nil
	}
	if _, ok := gs.LookupEnv(x.Name); ok {
		return nil, errors.Errorf("line %d: environment %q used as a value", x.Tok.Line, x.Name)
	}
	if ghost, ok := e.spec.Ghost(x.Name); ok {
		if ghost.Type.IsMapping() {
			return nil, errors.Errorf("line %d: ghost mapping %q needs a key", x.Tok.Line, x.Name)
		}
		value, err := gs.Ghosts.Get(x.Name)
		if err != nil {
			return nil, err
		}
		return single(gs, presentAs(value, ghost.Type)), nil
	}
	return e.evalStorageScalar(gs, x)
}

func (e *Engine) evalStorageScalar(gs *state.GlobalState, x *lang.Ident) ([]EvalResult, error) {
	contractName, dispatch := e.storageContext(gs)
	c, ok := e.system.Contract(contractName)
	if !ok {
		return nil, errors.Errorf("line %d: unknown name %q", x.Tok.Line, x.Name)
	}
	typ, ok := c.StorageType(x.Name)
	if !ok {
		return nil, errors.Errorf("line %d: unknown name %q", x.Tok.Line, x.Name)
	}
	if typ.IsMapping() {
		return nil, errors.Errorf("line %d: storage mapping %q needs a key", x.Tok.Line, x.Name)
	}
	if dispatch {
		return e.readStorage(gs, contractName, x.Name, nil, typ)
	}
	storage, err := gs.Storage(contractName)
	if err != nil {
		return nil, err
	}
	value, err := storage.Get(x.Name)
	if err != nil {
		return nil, err
	}
	return single(gs, presentAs(value, typ)), nil
}

// storageContext names the contract whose storage bare identifiers resolve
// to, and whether accesses fire hooks. Specification code reads the verified
// contract directly; hook bodies read without re-dispatching.
func (e *Engine) storageContext(gs *state.GlobalState) (string, bool) {
	frame := gs.CurrentFrame()
	if frame.Kind == state.SpecFrame {
		return e.target.Name, false
	}
	return frame.ContractName, frame.Kind == state.ContractFrame
}

func (e *Engine) evalMember(gs *state.GlobalState, x *lang.MemberExpr) ([]EvalResult, error) {
	if env, ok := gs.LookupEnv(x.Base); ok {
		value, err := env.Field(x.Path)
		if err != nil {
			return nil, err
		}
		return single(gs, value), nil
	}
	if x.Base == "msg" || x.Base == "block" {
		frame := gs.CurrentFrame()
		if frame.Env == nil {
			return nil, errors.Errorf("line %d: no call environment for %s", x.Tok.Line, x.Base)
		}
		value, err := frame.Env.Field(append([]string{x.Base}, x.Path...))
		if err != nil {
			return nil, err
		}
		return single(gs, value), nil
	}
	return nil, errors.Errorf("line %d: unknown member access %s", x.Tok.Line, x.Base)
}

func (e *Engine) evalIndex(gs *state.GlobalState, x *lang.IndexExpr) ([]EvalResult, error) {
	base, ok := x.X.(*lang.Ident)
	if !ok {
		return nil, errors.Errorf("line %d: only named mappings can be indexed", x.Tok.Line)
	}
	keyResults, err := e.evalExpr(gs, x.Index)
	if err != nil {
		return nil, err
	}
	var results []EvalResult
	for _, kr := range keyResults {
		key := kr.Value.AsBitVec()
		if ghost, ok := e.spec.Ghost(base.Name); ok {
			if !ghost.Type.IsMapping() {
				return nil, errors.Errorf("line %d: ghost %q is not a mapping", x.Tok.Line, base.Name)
			}
			value, err := kr.State.Ghosts.MapGet(base.Name, key)
			if err != nil {
				return nil, err
			}
			results = append(results, EvalResult{State: kr.State, Value: presentAs(value, ghost.Type.Value)})
			continue
		}
		sub, err := e.evalStorageMap(kr.State, base, key)
		if err != nil {
			return nil, err
		}
		results = append(results, sub...)
	}
	return results, nil
}

func (e *Engine) evalStorageMap(gs *state.GlobalState, base *lang.Ident, key *smt.BitVec) ([]EvalResult, error) {
	contractName, dispatch := e.storageContext(gs)
	c, ok := e.system.Contract(contractName)
	if !ok {
		return nil, errors.Errorf("line %d: unknown mapping %q", base.Tok.Line, base.Name)
	}
	typ, ok := c.StorageType(base.Name)
	if !ok || !typ.IsMapping() {
		return nil, errors.Errorf("line %d: unknown mapping %q", base.Tok.Line, base.Name)
	}
	if dispatch {
		return e.readStorage(gs, contractName, base.Name, key, typ.Value)
	}
	storage, err := gs.Storage(contractName)
	if err != nil {
		return nil, err
	}
	value, err := storage.MapGet(base.Name, key)
	if err != nil {
		return nil, err
	}
	return single(gs, presentAs(value, typ.Value)), nil
}

func (e *Engine) evalUnary(gs *state.GlobalState, x *lang.UnaryExpr) ([]EvalResult, error) {
	results, err := e.evalExpr(gs, x.X)
	if err != nil {
		return nil, err
	}
	for i := range results {
		switch x.Op {
		case lang.TokenBang:
			results[i].Value = results[i].Value.AsBool().Not()
		case lang.TokenMinus:
			results[i].Value = results[i].Value.AsBitVec().Neg()
		default:
			return nil, errors.Errorf("line %d: unsupported unary operator", x.Tok.Line)
		}
	}
	return results, nil
}

func (e *Engine) evalBinary(gs *state.GlobalState, x *lang.BinaryExpr) ([]EvalResult, error) {
	leftResults, err := e.evalExpr(gs, x.X)
	if err != nil {
		return nil, err
	}
	var results []EvalResult
	for _, lr := range leftResults {
		rightResults, err := e.evalExpr(lr.State, x.Y)
		if err != nil {
			return nil, err
		}
		for _, rr := range rightResults {
			value, err := applyBinary(x.Op, lr.Value, rr.Value, x.Tok.Line)
			if err != nil {
				return nil, err
			}
			results = append(results, EvalResult{State: rr.State, Value: value})
		}
	}
	return results, nil
}

// applyBinary maps operators to 256-bit wrap-around bitvector semantics.
// Comparisons are unsigned; division and modulo by zero yield zero.
func applyBinary(op lang.TokenType, left, right smt.StorableType, line int) (smt.StorableType, error) {
	switch op {
	case lang.TokenPlus:
		return left.AsBitVec().Add(right.AsBitVec()), nil
	case lang.TokenMinus:
		return left.AsBitVec().Sub(right.AsBitVec()), nil
	case lang.TokenStar:
		return left.AsBitVec().Mul(right.AsBitVec()), nil
	case lang.TokenSlash:
		return left.AsBitVec().UDiv(right.AsBitVec()), nil
	case lang.TokenPercent:
		return left.AsBitVec().URem(right.AsBitVec()), nil
	case lang.TokenLt:
		return left.AsBitVec().Ult(right.AsBitVec()), nil
	case lang.TokenLe:
		return left.AsBitVec().Ule(right.AsBitVec()), nil
	case lang.TokenGt:
		return left.AsBitVec().Ugt(right.AsBitVec()), nil
	case lang.TokenGe:
		return left.AsBitVec().Uge(right.AsBitVec()), nil
	case lang.TokenEq:
		if left.Type() == smt.BoolType && right.Type() == smt.BoolType {
			return left.AsBool().Iff(right.AsBool()), nil
		}
		return left.AsBitVec().Eq(right.AsBitVec()), nil
	case lang.TokenNe:
		if left.Type() == smt.BoolType && right.Type() == smt.BoolType {
			return left.AsBool().Iff(right.AsBool()).Not(), nil
		}
		return left.AsBitVec().Ne(right.AsBitVec()), nil
	case lang.TokenAndAnd:
		return left.AsBool().And(right.AsBool()), nil
	case lang.TokenOrOr:
		return left.AsBool().Or(right.AsBool()), nil
	case lang.TokenArrow:
		return left.AsBool().Implies(right.AsBool()), nil
	}
	return nil, errors.Errorf("line %d: unsupported binary operator", line)
}

func (e *Engine) evalCall(gs *state.GlobalState, x *lang.CallExpr) ([]EvalResult, error) {
	if x.Recv == "" && x.Name == "keccak256" {
		if len(x.Args) != 1 {
			return nil, errors.Errorf("line %d: keccak256 takes one argument", x.Tok.Line)
		}
		argResults, err := e.evalExpr(gs, x.Args[0])
		if err != nil {
			return nil, err
		}
		for i := range argResults {
			argResults[i].Value = funcs.Kfm.CreateKeccak(argResults[i].Value.AsBitVec())
		}
		return argResults, nil
	}
	if x.Recv != "" {
		return e.callExternal(gs, x)
	}
	if gs.CurrentFrame().Kind == state.SpecFrame {
		return e.callFromSpec(gs, x)
	}
	return e.callInternal(gs, x)
}

// presentAs converts a stored 256-bit word back to its declared surface
// type, so a stored bool compares as a bool.
func presentAs(value *smt.BitVec, typ *lang.Type) smt.StorableType {
	if typ != nil && typ.Kind == lang.TypeBool {
		return value.AsBool()
	}
	return value
}
