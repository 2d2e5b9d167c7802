package verifier

import (
	"fmt"
	"time"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gprover/internal/engine"
	"gprover/internal/lang"
	"gprover/internal/report"
	"gprover/internal/smt"
	"gprover/internal/state"
)

// checkInvariant proves an invariant by induction: it must hold right after
// the constructor on zeroed storage, and every mutating function must
// preserve it from any pre-state already satisfying it.
func (v *Verifier) checkInvariant(inv *lang.InvariantDecl) *report.Report {
	started := time.Now()
	rep := &report.Report{
		Name:   inv.Name,
		Kind:   "invariant",
		Status: report.StatusVerified,
	}
	defer func() { rep.Duration = time.Since(started) }()

	e := v.newEngine()
	if !v.invariantBase(e, inv, rep) {
		return rep
	}
	v.invariantStep(e, inv, rep)
	if rep.Status == report.StatusVerified {
		discharge(e.LoopBoundObligations(), rep)
	}
	return rep
}

// invariantBase runs the constructor on all-zero storage, with the ghosts'
// init_state axioms assumed, and checks the predicate on every path.
func (v *Verifier) invariantBase(e *engine.Engine, inv *lang.InvariantDecl, rep *report.Report) bool {
	storages := make(map[string]*state.Storage)
	var conds []*smt.Bool
	for _, name := range v.system.ContractNames() {
		c, _ := v.system.Contract(name)
		if name == v.target.Name {
			storages[name] = state.NewConcreteStorage(c)
			continue
		}
		storage, storageConds := state.NewSymbolicStorage(c, "pre")
		storages[name] = storage
		conds = append(conds, storageConds...)
	}
	ghosts, ghostConds := v.initialGhosts()
	conds = append(conds, ghostConds...)

	gs := state.NewGlobalState(storages, ghosts)
	gs.AddConstraints(conds...)
	gs.PushFrame(state.NewFrame(state.SpecFrame, v.target.Name, nil))

	if !runStatus(v.assumeAxioms(e, gs, true), rep) {
		return false
	}
	bindRuleParams(gs, inv.Params)

	leaves := []*state.GlobalState{gs}
	if ctor := v.target.Constructor; ctor != nil {
		env := state.NewEnviroment(fmt.Sprintf("ctor_%s", state.NextSymID()))
		args := freshArgs(ctor.Params)
		ctorLeaves, _, err := e.CallFunction(gs, v.target, ctor, env, args)
		if !runStatus(err, rep) {
			return false
		}
		leaves = nil
		for _, leaf := range ctorLeaves {
			if !leaf.Reverted {
				leaves = append(leaves, leaf)
			}
		}
	}

	for _, leaf := range leaves {
		if !v.predicateHolds(e, leaf, inv, rep, "base case") {
			return false
		}
	}
	return true
}

// invariantStep checks preservation: for each mutating function, assume the
// invariant and the preserved blocks on an arbitrary pre-state, run the
// function, and re-check the predicate on every non-reverting path.
func (v *Verifier) invariantStep(e *engine.Engine, inv *lang.InvariantDecl, rep *report.Report) {
	for _, fn := range v.target.MutatingFunctions() {
		log.WithFields(log.Fields{
			"invariant": inv.Name,
			"function":  fn.Name,
		}).Debug("inductive step")
		if !v.invariantStepFunc(e, inv, fn, rep) {
			return
		}
	}
}

func (v *Verifier) invariantStepFunc(e *engine.Engine, inv *lang.InvariantDecl,
	fn *lang.FunctionDecl, rep *report.Report) bool {
	storages := make(map[string]*state.Storage)
	var conds []*smt.Bool
	for _, name := range v.system.ContractNames() {
		c, _ := v.system.Contract(name)
		storage, storageConds := state.NewSymbolicStorage(c, "pre")
		storages[name] = storage
		conds = append(conds, storageConds...)
	}
	ghosts, ghostConds := v.initialGhosts()
	conds = append(conds, ghostConds...)

	gs := state.NewGlobalState(storages, ghosts)
	gs.AddConstraints(conds...)
	gs.PushFrame(state.NewFrame(state.SpecFrame, v.target.Name, nil))

	if !runStatus(v.assumeAxioms(e, gs, false), rep) {
		return false
	}
	bindRuleParams(gs, inv.Params)

	assumed, err := e.EvalExpr(gs, inv.Cond)
	if !runStatus(err, rep) {
		return false
	}

	env := state.NewEnviroment(fmt.Sprintf("step_%s", state.NextSymID()))
	args := freshArgs(fn.Params)

	for _, pre := range assumed {
		pre.State.AddConstraint(pre.Value.AsBool())
		if !pre.State.Constraint.IsPossible() {
			continue
		}
		preStates, err := v.applyPreserved(e, pre.State, inv, fn, env, args)
		if !runStatus(err, rep) {
			return false
		}
		for _, preState := range preStates {
			leaves, _, err := e.CallFunction(preState, v.target, fn, env, args)
			if !runStatus(err, rep) {
				return false
			}
			for _, leaf := range leaves {
				if leaf.Reverted {
					continue
				}
				if !v.predicateHolds(e, leaf, inv, rep, fmt.Sprintf("not preserved by %s", fn.Name)) {
					return false
				}
			}
		}
	}
	return true
}

// applyPreserved runs the matching preserved blocks as specification code:
// the generic block first, then the block naming the function. Block
// parameters bind to the call's arguments and the with-clause env to the
// call's environment.
func (v *Verifier) applyPreserved(e *engine.Engine, gs *state.GlobalState, inv *lang.InvariantDecl,
	fn *lang.FunctionDecl, env *state.Enviroment, args []*smt.BitVec) ([]*state.GlobalState, error) {
	states := []*state.GlobalState{gs}
	for i := range inv.Preserved {
		pb := &inv.Preserved[i]
		if pb.FuncName != "" && pb.FuncName != fn.Name {
			continue
		}
		if pb.FuncName != "" && len(pb.Params) != len(fn.Params) {
			return nil, errors.Errorf("preserved block for %q has %d parameters, function has %d",
				fn.Name, len(pb.Params), len(fn.Params))
		}
		var next []*state.GlobalState
		for _, s := range states {
			frame := s.CurrentFrame()
			if pb.EnvName != "" {
				frame.Envs[pb.EnvName] = env
			}
			for j, param := range pb.Params {
				if param.Type.Kind == lang.TypeBool {
					frame.Vars[param.Name] = args[j].AsBool()
				} else {
					frame.Vars[param.Name] = args[j]
				}
			}
			leaves, err := e.ExecBlock(s, pb.Body)
			if err != nil {
				return nil, err
			}
			next = append(next, leaves...)
		}
		states = next
	}
	return states, nil
}

// predicateHolds checks that no path model falsifies the invariant
// predicate in the given state.
func (v *Verifier) predicateHolds(e *engine.Engine, gs *state.GlobalState,
	inv *lang.InvariantDecl, rep *report.Report, phase string) bool {
	results, err := e.EvalExpr(gs, inv.Cond)
	if !runStatus(err, rep) {
		return false
	}
	for _, r := range results {
		status, model, err := r.State.Constraint.CheckWith(r.Value.AsBool().Not())
		if err != nil {
			rep.Status = report.StatusError
			rep.Message = err.Error()
			return false
		}
		switch status {
		case yices2.StatusSat:
			rep.Status = report.StatusViolated
			rep.Message = fmt.Sprintf("invariant %s: %s", inv.Name, phase)
			for name, bv := range engine.CollectNamed(r.State) {
				if value := smt.EvalBitVec(model, bv); value != nil {
					rep.AddWitness(name, value.String())
				}
			}
			rep.SortWitness()
			return false
		case yices2.StatusUnsat:
		default:
			rep.Status = report.StatusIncomplete
			rep.Message = fmt.Sprintf("solver returned unknown (%s)", phase)
		}
	}
	return true
}

func freshArgs(params []lang.Param) []*smt.BitVec {
	args := make([]*smt.BitVec, len(params))
	for i, param := range params {
		args[i] = smt.NewBitVec(fmt.Sprintf("arg_%s_%s", param.Name, state.NextSymID()), smt.DefaultBitVecSize)
	}
	return args
}
