package engine

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gprover/internal/contract"
	"gprover/internal/lang"
	"gprover/internal/smt"
	"gprover/internal/state"
)

type argResult struct {
	State  *state.GlobalState
	Values []*smt.BitVec
}

// evalArgs evaluates an argument list left to right, threading forks.
func (e *Engine) evalArgs(gs *state.GlobalState, args []lang.Expr) ([]argResult, error) {
	results := []argResult{{State: gs}}
	for _, arg := range args {
		var next []argResult
		for _, r := range results {
			sub, err := e.evalExpr(r.State, arg)
			if err != nil {
				return nil, err
			}
			for _, sr := range sub {
				values := make([]*smt.BitVec, len(r.Values), len(r.Values)+1)
				copy(values, r.Values)
				next = append(next, argResult{
					State:  sr.State,
					Values: append(values, sr.Value.AsBitVec()),
				})
			}
		}
		results = next
	}
	return results, nil
}

// callFromSpec invokes a function of the verified contract from rule code.
// Reverting paths are dropped for a plain call and rolled back for a
// @withrevert call, with lastReverted recording the outcome.
func (e *Engine) callFromSpec(gs *state.GlobalState, x *lang.CallExpr) ([]EvalResult, error) {
	entry, ok := e.spec.Methods[x.Name]
	if !ok {
		return nil, errors.Errorf("line %d: %q is not declared in the methods block", x.Tok.Line, x.Name)
	}
	fn, ok := e.target.Function(x.Name)
	if !ok {
		return nil, errors.Errorf("line %d: contract %s has no function %q", x.Tok.Line, e.target.Name, x.Name)
	}

	args := x.Args
	var env *state.Enviroment
	if !entry.Envfree {
		if len(args) == 0 {
			return nil, errors.Errorf("line %d: %q needs an env argument", x.Tok.Line, x.Name)
		}
		envIdent, ok := args[0].(*lang.Ident)
		if !ok {
			return nil, errors.Errorf("line %d: first argument of %q must name an env", x.Tok.Line, x.Name)
		}
		env, ok = gs.LookupEnv(envIdent.Name)
		if !ok {
			return nil, errors.Errorf("line %d: %q is not an env", x.Tok.Line, envIdent.Name)
		}
		args = args[1:]
	}

	argResults, err := e.evalArgs(gs, args)
	if err != nil {
		return nil, err
	}

	var results []EvalResult
	for _, ar := range argResults {
		storageSnap := snapshotStorages(ar.State)
		ghostSnap := ar.State.Ghosts.Snapshot()

		leaves, retvals, err := e.CallFunction(ar.State, e.target, fn, env, ar.Values)
		if err != nil {
			return nil, err
		}
		for i, leaf := range leaves {
			if leaf.Reverted {
				if !x.WithRevert {
					continue
				}
				restoreStorages(leaf, storageSnap)
				leaf.Ghosts.Restore(ghostSnap)
				leaf.Reverted = false
				leaf.LastReverted = true
				results = append(results, EvalResult{State: leaf, Value: zeroOf(fn.Returns)})
				continue
			}
			leaf.LastReverted = false
			value := retvals[i]
			if value == nil {
				value = zeroOf(fn.Returns)
			}
			results = append(results, EvalResult{State: leaf, Value: value})
		}
	}
	if len(results) == 0 {
		log.WithField("function", x.Name).Debug("every call path reverted")
	}
	return results, nil
}

// callInternal is a same-contract call: the callee shares the caller's
// environment and a revert aborts the whole activation chain.
func (e *Engine) callInternal(gs *state.GlobalState, x *lang.CallExpr) ([]EvalResult, error) {
	frame := gs.CurrentFrame()
	c, ok := e.system.Contract(frame.ContractName)
	if !ok {
		return nil, errors.Errorf("line %d: unknown contract %q", x.Tok.Line, frame.ContractName)
	}
	fn, ok := c.Function(x.Name)
	if !ok {
		return nil, errors.Errorf("line %d: contract %s has no function %q", x.Tok.Line, c.Name, x.Name)
	}
	argResults, err := e.evalArgs(gs, x.Args)
	if err != nil {
		return nil, err
	}
	var results []EvalResult
	for _, ar := range argResults {
		leaves, retvals, err := e.CallFunction(ar.State, c, fn, frame.Env, ar.Values)
		if err != nil {
			return nil, err
		}
		for i, leaf := range leaves {
			results = append(results, EvalResult{State: leaf, Value: retvals[i]})
		}
	}
	return results, nil
}

// callExternal handles recv.f(args) in contract code. The receiver is
// either an interface-typed storage field, resolved through the link and
// dispatcher configuration with a havoc fallback, or a contract name.
func (e *Engine) callExternal(gs *state.GlobalState, x *lang.CallExpr) ([]EvalResult, error) {
	frame := gs.CurrentFrame()
	if frame.Kind == state.SpecFrame {
		return nil, errors.Errorf("line %d: external calls are contract code only", x.Tok.Line)
	}
	caller, ok := e.system.Contract(frame.ContractName)
	if !ok {
		return nil, errors.Errorf("line %d: unknown contract %q", x.Tok.Line, frame.ContractName)
	}

	if impl, ok := e.system.Contract(x.Recv); ok {
		return e.callResolved(gs, impl, x)
	}

	fieldType, ok := caller.StorageType(x.Recv)
	if !ok || fieldType.Kind != lang.TypeInterface {
		return nil, errors.Errorf("line %d: %q is not an interface-typed field", x.Tok.Line, x.Recv)
	}
	iface, ok := e.system.Interfaces[fieldType.Name]
	if !ok {
		return nil, errors.Errorf("line %d: unknown interface %q", x.Tok.Line, fieldType.Name)
	}

	if implName, ok := e.cfg.LinkTarget(caller.Name, x.Recv); ok {
		impl, ok := e.system.Contract(implName)
		if !ok {
			return nil, errors.Errorf("link target %q is not a known contract", implName)
		}
		return e.callResolved(gs, impl, x)
	}

	if candidates, ok := e.cfg.Dispatcher[fieldType.Name]; ok && len(candidates) > 0 {
		return e.callDispatched(gs, candidates, x)
	}

	return e.callHavoc(gs, caller, iface, x)
}

func (e *Engine) callResolved(gs *state.GlobalState, impl *contract.Contract, x *lang.CallExpr) ([]EvalResult, error) {
	fn, ok := impl.Function(x.Name)
	if !ok {
		return nil, errors.Errorf("line %d: contract %s has no function %q", x.Tok.Line, impl.Name, x.Name)
	}
	argResults, err := e.evalArgs(gs, x.Args)
	if err != nil {
		return nil, err
	}
	var results []EvalResult
	for _, ar := range argResults {
		env := state.NewEnviroment(fmt.Sprintf("call_%s", state.NextSymID()))
		leaves, retvals, err := e.CallFunction(ar.State, impl, fn, env, ar.Values)
		if err != nil {
			return nil, err
		}
		for i, leaf := range leaves {
			results = append(results, EvalResult{State: leaf, Value: retvals[i]})
		}
	}
	return results, nil
}

// callDispatched forks one path per configured candidate implementation.
// Only the listed candidates are modeled, an under-approximation the
// configuration opted into.
func (e *Engine) callDispatched(gs *state.GlobalState, candidates []string, x *lang.CallExpr) ([]EvalResult, error) {
	var results []EvalResult
	for i, name := range candidates {
		impl, ok := e.system.Contract(name)
		if !ok {
			return nil, errors.Errorf("dispatcher candidate %q is not a known contract", name)
		}
		branch := gs
		if i < len(candidates)-1 {
			branch = gs.Clone()
		}
		sub, err := e.callResolved(branch, impl, x)
		if err != nil {
			return nil, err
		}
		results = append(results, sub...)
	}
	return results, nil
}

// callHavoc models an unresolved external call. A view call cannot touch
// state and yields a fresh unconstrained result; anything else may have
// reentered every other contract, so their storage and the regular ghosts
// are havoced. The caller's own storage is never havoced.
func (e *Engine) callHavoc(gs *state.GlobalState, caller *contract.Contract,
	iface *lang.InterfaceDecl, x *lang.CallExpr) ([]EvalResult, error) {
	var sig *lang.FunctionSig
	for i := range iface.Functions {
		if iface.Functions[i].Name == x.Name {
			sig = &iface.Functions[i]
			break
		}
	}
	if sig == nil {
		return nil, errors.Errorf("line %d: interface %s has no function %q", x.Tok.Line, iface.Name, x.Name)
	}

	argResults, err := e.evalArgs(gs, x.Args)
	if err != nil {
		return nil, err
	}
	var results []EvalResult
	for _, ar := range argResults {
		label := fmt.Sprintf("havoc_%s", state.NextSymID())
		if !sig.View {
			for name, storage := range ar.State.Contracts {
				if name == caller.Name {
					continue
				}
				ar.State.AddConstraints(storage.Havoc(label)...)
			}
			ar.State.AddConstraints(ar.State.Ghosts.Havoc(label)...)
			if err := e.AssumeGhostAxioms(ar.State, false); err != nil {
				return nil, err
			}
		}
		var value smt.StorableType
		if sig.Returns != nil {
			value = freshLocal(fmt.Sprintf("%s_ret", x.Name), sig.Returns)
		}
		results = append(results, EvalResult{State: ar.State, Value: value})
	}
	return results, nil
}

func zeroOf(typ *lang.Type) smt.StorableType {
	if typ != nil && typ.Kind == lang.TypeBool {
		return smt.NewBoolVal(false)
	}
	return smt.NewBitVecValInt64(0, smt.DefaultBitVecSize)
}

func snapshotStorages(gs *state.GlobalState) map[string]*state.Storage {
	snap := make(map[string]*state.Storage, len(gs.Contracts))
	for name, storage := range gs.Contracts {
		snap[name] = storage.Clone()
	}
	return snap
}

func restoreStorages(gs *state.GlobalState, snap map[string]*state.Storage) {
	for name, storage := range snap {
		gs.Contracts[name] = storage.Clone()
	}
}
