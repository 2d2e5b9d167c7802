package engine

import (
	"github.com/pkg/errors"

	"gprover/internal/lang"
	"gprover/internal/smt"
	"gprover/internal/state"
)

// readStorage loads a storage slot from contract code and runs the matching
// Sload hooks with the loaded value bound. Hooks fire only on accesses by
// the verified contract, and never re-dispatch from inside a hook body.
func (e *Engine) readStorage(gs *state.GlobalState, contractName, varName string,
	key *smt.BitVec, valueType *lang.Type) ([]EvalResult, error) {
	storage, err := gs.Storage(contractName)
	if err != nil {
		return nil, err
	}
	var raw *smt.BitVec
	if key != nil {
		raw, err = storage.MapGet(varName, key)
	} else {
		raw, err = storage.Get(varName)
	}
	if err != nil {
		return nil, err
	}
	value := presentAs(raw, valueType)

	hooks := e.hooksToRun(gs, contractName, lang.HookSload, varName)
	if len(hooks) == 0 {
		return single(gs, value), nil
	}
	states, err := e.runHooks(gs, hooks, key, raw, nil)
	if err != nil {
		return nil, err
	}
	results := make([]EvalResult, len(states))
	for i, s := range states {
		results[i] = EvalResult{State: s, Value: value}
	}
	return results, nil
}

// writeStorage stores into a slot and runs the matching Sstore hooks with
// the new value, the key for mapping patterns, and the overwritten value
// when the hook asks for it.
func (e *Engine) writeStorage(gs *state.GlobalState, contractName, varName string,
	key, value *smt.BitVec) ([]*state.GlobalState, error) {
	storage, err := gs.Storage(contractName)
	if err != nil {
		return nil, err
	}
	var old *smt.BitVec
	if key != nil {
		if old, err = storage.MapGet(varName, key); err != nil {
			return nil, err
		}
		if err = storage.MapSet(varName, key, value); err != nil {
			return nil, err
		}
	} else {
		if old, err = storage.Get(varName); err != nil {
			return nil, err
		}
		if err = storage.Set(varName, value); err != nil {
			return nil, err
		}
	}

	hooks := e.hooksToRun(gs, contractName, lang.HookSstore, varName)
	if len(hooks) == 0 {
		return []*state.GlobalState{gs}, nil
	}
	return e.runHooks(gs, hooks, key, value, old)
}

// hooksToRun filters the spec's hooks for one access: the pattern must name
// the variable, the access must belong to the verified contract, and hook
// bodies themselves do not trigger further hooks.
func (e *Engine) hooksToRun(gs *state.GlobalState, contractName string,
	kind lang.HookKind, varName string) []*lang.HookDecl {
	if contractName != e.target.Name {
		return nil
	}
	if gs.CurrentFrame().Kind != state.ContractFrame {
		return nil
	}
	if kind == lang.HookSstore {
		return e.spec.SstoreHooks(varName)
	}
	return e.spec.SloadHooks(varName)
}

// runHooks executes hook bodies in declaration order, threading the forks
// of one body into the next.
func (e *Engine) runHooks(gs *state.GlobalState, hooks []*lang.HookDecl,
	key, value, old *smt.BitVec) ([]*state.GlobalState, error) {
	states := []*state.GlobalState{gs}
	for _, hook := range hooks {
		var next []*state.GlobalState
		for _, s := range states {
			sub, err := e.runHookBody(s, hook, key, value, old)
			if err != nil {
				return nil, err
			}
			next = append(next, sub...)
		}
		states = next
	}
	return states, nil
}

func (e *Engine) runHookBody(gs *state.GlobalState, hook *lang.HookDecl,
	key, value, old *smt.BitVec) ([]*state.GlobalState, error) {
	caller := gs.CurrentFrame()
	frame := state.NewFrame(state.HookFrame, caller.ContractName, caller.Env)
	frame.Vars[hook.ValueParam.Name] = presentAs(value, hook.ValueParam.Type)
	if hook.KeyParam != nil {
		if key == nil {
			return nil, errors.Errorf("hook on %q expects a key pattern", hook.Variable)
		}
		frame.Vars[hook.KeyParam.Name] = presentAs(key, hook.KeyParam.Type)
	}
	if hook.OldParam != nil {
		frame.Vars[hook.OldParam.Name] = presentAs(old, hook.OldParam.Type)
	}
	gs.PushFrame(frame)
	leaves, err := e.ExecBlock(gs, hook.Body)
	if err != nil {
		return nil, err
	}
	for _, leaf := range leaves {
		if _, err := leaf.PopFrame(); err != nil {
			return nil, err
		}
	}
	return leaves, nil
}
