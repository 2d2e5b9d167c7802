package engine

import (
	"fmt"

	"github.com/pkg/errors"

	"gprover/internal/lang"
	"gprover/internal/smt"
	"gprover/internal/state"
)

// execStmts runs a statement sequence in continuation style: the head
// statement may fork, and every successor carries on with the tail. A path
// that reverted or returned skips the rest of its activation.
func (e *Engine) execStmts(gs *state.GlobalState, stmts []lang.Stmt) ([]*state.GlobalState, error) {
	if err := e.checkDeadline(); err != nil {
		return nil, err
	}
	if len(stmts) == 0 || gs.Reverted || gs.CurrentFrame().Returned {
		return []*state.GlobalState{gs}, nil
	}
	successors, err := e.execStmt(gs, stmts[0])
	if err != nil {
		return nil, err
	}
	var leaves []*state.GlobalState
	for _, successor := range successors {
		sub, err := e.execStmts(successor, stmts[1:])
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, sub...)
	}
	return leaves, nil
}

func (e *Engine) execStmt(gs *state.GlobalState, stmt lang.Stmt) ([]*state.GlobalState, error) {
	switch s := stmt.(type) {
	case *lang.DeclStmt:
		return e.execDecl(gs, s)
	case *lang.AssignStmt:
		return e.execAssign(gs, s)
	case *lang.RequireStmt:
		return e.execRequire(gs, s)
	case *lang.AssertStmt:
		return e.execAssert(gs, s)
	case *lang.SatisfyStmt:
		return e.execSatisfy(gs, s)
	case *lang.IfStmt:
		return e.execIf(gs, s)
	case *lang.WhileStmt:
		return e.execWhile(gs, s, e.cfg.LoopIter)
	case *lang.ReturnStmt:
		return e.execReturn(gs, s)
	case *lang.RevertStmt:
		gs.Reverted = true
		return []*state.GlobalState{gs}, nil
	case *lang.ExprStmt:
		results, err := e.evalExpr(gs, s.X)
		if err != nil {
			return nil, err
		}
		return statesOf(results), nil
	}
	return nil, errors.Errorf("line %d: unsupported statement", stmt.Pos().Line)
}

func (e *Engine) execDecl(gs *state.GlobalState, s *lang.DeclStmt) ([]*state.GlobalState, error) {
	if s.Type.Kind == lang.TypeEnv {
		gs.SetEnv(s.Name, state.NewEnviroment(fmt.Sprintf("%s_%s", s.Name, state.NextSymID())))
		return []*state.GlobalState{gs}, nil
	}
	if s.Value == nil {
		gs.CurrentFrame().Vars[s.Name] = freshLocal(s.Name, s.Type)
		return []*state.GlobalState{gs}, nil
	}
	results, err := e.evalExpr(gs, s.Value)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		r.State.CurrentFrame().Vars[s.Name] = coerceToType(r.Value, s.Type)
	}
	return statesOf(results), nil
}

func (e *Engine) execAssign(gs *state.GlobalState, s *lang.AssignStmt) ([]*state.GlobalState, error) {
	switch target := s.Target.(type) {
	case *lang.Ident:
		results, err := e.evalExpr(gs, s.Value)
		if err != nil {
			return nil, err
		}
		var leaves []*state.GlobalState
		for _, r := range results {
			sub, err := e.assignScalar(r.State, target.Name, r.Value)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, sub...)
		}
		return leaves, nil
	case *lang.IndexExpr:
		base, ok := target.X.(*lang.Ident)
		if !ok {
			return nil, errors.Errorf("line %d: assignment target must be a name or an index", s.Tok.Line)
		}
		keyResults, err := e.evalExpr(gs, target.Index)
		if err != nil {
			return nil, err
		}
		var leaves []*state.GlobalState
		for _, kr := range keyResults {
			valResults, err := e.evalExpr(kr.State, s.Value)
			if err != nil {
				return nil, err
			}
			for _, vr := range valResults {
				sub, err := e.assignMapEntry(vr.State, base.Name, kr.Value.AsBitVec(), vr.Value)
				if err != nil {
					return nil, err
				}
				leaves = append(leaves, sub...)
			}
		}
		return leaves, nil
	}
	return nil, errors.Errorf("line %d: invalid assignment target", s.Tok.Line)
}

// assignScalar resolves a bare-name assignment: local first, then ghost,
// then current contract storage. Storage writes run Sstore hooks.
func (e *Engine) assignScalar(gs *state.GlobalState, name string, value smt.StorableType) ([]*state.GlobalState, error) {
	if _, ok := gs.LookupLocal(name); ok {
		gs.SetLocal(name, value)
		return []*state.GlobalState{gs}, nil
	}
	if ghost, ok := e.spec.Ghost(name); ok {
		if ghost.Type.IsMapping() {
			return nil, errors.Errorf("ghost %q is a mapping, index it", name)
		}
		if err := gs.Ghosts.Set(name, coerceGhost(value, ghost.Type)); err != nil {
			return nil, err
		}
		return []*state.GlobalState{gs}, nil
	}
	frame := gs.CurrentFrame()
	if frame.Kind != state.SpecFrame {
		c, ok := e.system.Contract(frame.ContractName)
		if ok {
			if typ, ok := c.StorageType(name); ok {
				if typ.IsMapping() {
					return nil, errors.Errorf("storage mapping %q needs a key", name)
				}
				return e.writeStorage(gs, frame.ContractName, name, nil, coerceGhost(value, typ))
			}
		}
	}
	return nil, errors.Errorf("cannot assign to unknown name %q", name)
}

func (e *Engine) assignMapEntry(gs *state.GlobalState, name string, key *smt.BitVec, value smt.StorableType) ([]*state.GlobalState, error) {
	if ghost, ok := e.spec.Ghost(name); ok {
		if !ghost.Type.IsMapping() {
			return nil, errors.Errorf("ghost %q is not a mapping", name)
		}
		if err := gs.Ghosts.MapSet(name, key, coerceGhost(value, ghost.Type.Value)); err != nil {
			return nil, err
		}
		return []*state.GlobalState{gs}, nil
	}
	frame := gs.CurrentFrame()
	if frame.Kind != state.SpecFrame {
		c, ok := e.system.Contract(frame.ContractName)
		if ok {
			if typ, ok := c.StorageType(name); ok && typ.IsMapping() {
				return e.writeStorage(gs, frame.ContractName, name, key, coerceGhost(value, typ.Value))
			}
		}
	}
	return nil, errors.Errorf("cannot index unknown mapping %q", name)
}

// coerceGhost stores booleans as 0/1 words, the representation ghost and
// storage slots use.
func coerceGhost(value smt.StorableType, typ *lang.Type) *smt.BitVec {
	if typ != nil && typ.Kind == lang.TypeBool {
		return value.AsBool().AsBitVec()
	}
	return value.AsBitVec()
}

// execRequire narrows the path in specification and hook code and forks a
// revert in contract code. The failing contract branch survives only when
// feasible.
func (e *Engine) execRequire(gs *state.GlobalState, s *lang.RequireStmt) ([]*state.GlobalState, error) {
	results, err := e.evalExpr(gs, s.Cond)
	if err != nil {
		return nil, err
	}
	var leaves []*state.GlobalState
	for _, r := range results {
		cond := r.Value.AsBool()
		if kind := r.State.CurrentFrame().Kind; kind == state.SpecFrame || kind == state.HookFrame {
			r.State.AddConstraint(cond)
			if r.State.Constraint.IsPossible() {
				leaves = append(leaves, r.State)
			}
			continue
		}
		failed := r.State.Clone()
		failed.AddConstraint(cond.Not())
		if failed.Constraint.IsPossible() {
			failed.Reverted = true
			leaves = append(leaves, failed)
		}
		r.State.AddConstraint(cond)
		if r.State.Constraint.IsPossible() {
			leaves = append(leaves, r.State)
		}
	}
	return leaves, nil
}

// execAssert records the violation query for this path and then assumes the
// asserted condition, so later checks are not blamed for an earlier failure.
func (e *Engine) execAssert(gs *state.GlobalState, s *lang.AssertStmt) ([]*state.GlobalState, error) {
	results, err := e.evalExpr(gs, s.Cond)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		cond := r.Value.AsBool()
		message := s.Msg
		if message == "" {
			message = fmt.Sprintf("assert at line %d", s.Tok.Line)
		}
		ob := state.NewObligation(state.ObAssert, append(pathConds(r.State), cond.Not()), message)
		ob.Named = CollectNamed(r.State)
		r.State.AddObligation(ob)
		r.State.AddConstraint(cond)
	}
	return statesOf(results), nil
}

// execSatisfy records a witness query keyed by the statement: one feasible
// instance across all paths witnesses it. Execution continues unnarrowed.
func (e *Engine) execSatisfy(gs *state.GlobalState, s *lang.SatisfyStmt) ([]*state.GlobalState, error) {
	results, err := e.evalExpr(gs, s.Cond)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		cond := r.Value.AsBool()
		ob := state.NewObligation(state.ObSatisfy, append(pathConds(r.State), cond),
			fmt.Sprintf("satisfy at line %d", s.Tok.Line))
		ob.SatisfyKey = s
		ob.Named = CollectNamed(r.State)
		r.State.AddObligation(ob)
	}
	return statesOf(results), nil
}

func (e *Engine) execIf(gs *state.GlobalState, s *lang.IfStmt) ([]*state.GlobalState, error) {
	results, err := e.evalExpr(gs, s.Cond)
	if err != nil {
		return nil, err
	}
	var leaves []*state.GlobalState
	for _, r := range results {
		cond := r.Value.AsBool()

		elseState := r.State.Clone()
		elseState.AddConstraint(cond.Not())

		r.State.AddConstraint(cond)
		if r.State.Constraint.IsPossible() {
			sub, err := e.ExecBlock(r.State, s.Then)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, sub...)
		}
		if elseState.Constraint.IsPossible() {
			sub, err := e.ExecBlock(elseState, s.Else)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, sub...)
		}
	}
	return leaves, nil
}

// execWhile unrolls the loop up to the configured bound. When the budget
// runs out with the guard still feasible, the pessimistic mode records a
// bound obligation and the optimistic mode silently assumes the exit.
func (e *Engine) execWhile(gs *state.GlobalState, s *lang.WhileStmt, budget int) ([]*state.GlobalState, error) {
	if err := e.checkDeadline(); err != nil {
		return nil, err
	}
	if gs.Reverted || gs.CurrentFrame().Returned {
		return []*state.GlobalState{gs}, nil
	}
	results, err := e.evalExpr(gs, s.Cond)
	if err != nil {
		return nil, err
	}
	var leaves []*state.GlobalState
	for _, r := range results {
		cond := r.Value.AsBool()

		exitState := r.State.Clone()
		exitState.AddConstraint(cond.Not())

		r.State.AddConstraint(cond)
		enterFeasible := r.State.Constraint.IsPossible()

		if enterFeasible {
			if budget == 0 {
				if !e.cfg.OptimisticLoop {
					ob := state.NewObligation(state.ObLoopBound, pathConds(r.State),
						fmt.Sprintf("loop at line %d exceeds %d iterations", s.Tok.Line, e.cfg.LoopIter))
					ob.Named = CollectNamed(r.State)
					e.loopBounds = append(e.loopBounds, ob)
				}
			} else {
				bodyLeaves, err := e.ExecBlock(r.State, s.Body)
				if err != nil {
					return nil, err
				}
				for _, bodyLeaf := range bodyLeaves {
					sub, err := e.execWhile(bodyLeaf, s, budget-1)
					if err != nil {
						return nil, err
					}
					leaves = append(leaves, sub...)
				}
			}
		}
		if exitState.Constraint.IsPossible() {
			leaves = append(leaves, exitState)
		}
	}
	return leaves, nil
}

func (e *Engine) execReturn(gs *state.GlobalState, s *lang.ReturnStmt) ([]*state.GlobalState, error) {
	if s.Value == nil {
		gs.CurrentFrame().Returned = true
		return []*state.GlobalState{gs}, nil
	}
	results, err := e.evalExpr(gs, s.Value)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		frame := r.State.CurrentFrame()
		frame.RetVal = r.Value
		frame.Returned = true
	}
	return statesOf(results), nil
}

func statesOf(results []EvalResult) []*state.GlobalState {
	states := make([]*state.GlobalState, len(results))
	for i, r := range results {
		states[i] = r.State
	}
	return states
}
