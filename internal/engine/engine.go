// Package engine is the symbolic evaluator: it executes rule bodies and
// contract functions over bitvector terms, forking one GlobalState per
// feasible path and recording solver obligations along the way.
package engine

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gprover/internal/config"
	"gprover/internal/contract"
	"gprover/internal/lang"
	"gprover/internal/smt"
	"gprover/internal/spec"
	"gprover/internal/state"
)

var ErrTimeout = errors.New("verification timeout exceeded")

type Engine struct {
	system     *contract.System
	spec       *spec.Spec
	cfg        *config.Config
	target     *contract.Contract
	deadline   time.Time
	loopBounds []*state.Obligation
}

func New(system *contract.System, sp *spec.Spec, cfg *config.Config, target *contract.Contract) *Engine {
	return &Engine{
		system: system,
		spec:   sp,
		cfg:    cfg,
		target: target,
	}
}

func (e *Engine) Target() *contract.Contract {
	return e.target
}

// LoopBoundObligations returns the unrolling-bound obligations recorded
// during exploration. They live on the engine, not on a path state: the
// unrolled exit can be infeasible at the bound, and the state carrying it
// pruned, while the bound condition itself still needs a solver check.
func (e *Engine) LoopBoundObligations() []*state.Obligation {
	return e.loopBounds
}

// AssumeGhostAxioms narrows the state by every ghost's standing axioms,
// and by the init_state axioms too when initState is set. Re-run after a
// ghost havoc so the fresh symbols still satisfy them.
func (e *Engine) AssumeGhostAxioms(gs *state.GlobalState, initState bool) error {
	for _, name := range e.spec.GhostOrder {
		ghost := e.spec.Ghosts[name]
		axioms := make([]lang.Expr, 0, len(ghost.Axioms)+len(ghost.InitAxioms))
		axioms = append(axioms, ghost.Axioms...)
		if initState {
			axioms = append(axioms, ghost.InitAxioms...)
		}
		for _, axiom := range axioms {
			results, err := e.EvalExpr(gs, axiom)
			if err != nil {
				return errors.Wrapf(err, "axiom of ghost %q", name)
			}
			if len(results) != 1 {
				return errors.Errorf("axiom of ghost %q must not fork", name)
			}
			gs.AddConstraint(results[0].Value.AsBool())
		}
	}
	return nil
}

// SetDeadline bounds one rule or invariant run; exploration past the
// deadline aborts with ErrTimeout.
func (e *Engine) SetDeadline(deadline time.Time) {
	e.deadline = deadline
}

func (e *Engine) checkDeadline() error {
	if !e.deadline.IsZero() && time.Now().After(e.deadline) {
		return ErrTimeout
	}
	return nil
}

// ExecBlock runs a statement block in the current frame and returns the
// feasible leaf states.
func (e *Engine) ExecBlock(gs *state.GlobalState, block *lang.Block) ([]*state.GlobalState, error) {
	if block == nil {
		return []*state.GlobalState{gs}, nil
	}
	return e.execStmts(gs, block.Stmts)
}

// CallFunction activates a contract function: a fresh contract frame with
// the parameters bound, the body executed, the frame popped on every leaf.
// Reverted leaves keep their flag set for the caller to handle.
func (e *Engine) CallFunction(gs *state.GlobalState, c *contract.Contract, fn *lang.FunctionDecl,
	env *state.Enviroment, args []*smt.BitVec) ([]*state.GlobalState, []smt.StorableType, error) {
	if len(args) != len(fn.Params) {
		return nil, nil, errors.Errorf("%s.%s expects %d arguments, got %d",
			c.Name, fn.Name, len(fn.Params), len(args))
	}
	frame := state.NewFrame(state.ContractFrame, c.Name, env)
	for i, param := range fn.Params {
		frame.Vars[param.Name] = coerceToType(args[i], param.Type)
	}
	gs.PushFrame(frame)

	log.WithFields(log.Fields{
		"contract": c.Name,
		"function": fn.Name,
	}).Debug("executing function")

	leaves, err := e.ExecBlock(gs, fn.Body)
	if err != nil {
		return nil, nil, err
	}
	results := make([]smt.StorableType, len(leaves))
	for i, leaf := range leaves {
		frame, err := leaf.PopFrame()
		if err != nil {
			return nil, nil, err
		}
		results[i] = returnValue(frame, fn.Returns)
	}
	return leaves, results, nil
}

// returnValue reads the activation's result, substituting the zero value
// when the body fell off the end without a return.
func returnValue(frame *state.Frame, typ *lang.Type) smt.StorableType {
	if frame.RetVal != nil {
		return frame.RetVal
	}
	if typ == nil {
		return nil
	}
	if typ.Kind == lang.TypeBool {
		return smt.NewBoolVal(false)
	}
	return smt.NewBitVecValInt64(0, smt.DefaultBitVecSize)
}

// coerceToType normalizes a value to its declared type: booleans travel as
// smt.Bool, everything word-sized as a 256-bit vector.
func coerceToType(value smt.StorableType, typ *lang.Type) smt.StorableType {
	if typ != nil && typ.Kind == lang.TypeBool {
		return value.AsBool()
	}
	return value.AsBitVec()
}

// freshLocal builds the unconstrained symbol a declaration without an
// initializer stands for.
func freshLocal(name string, typ *lang.Type) smt.StorableType {
	label := fmt.Sprintf("%s_%s", name, state.NextSymID())
	if typ.Kind == lang.TypeBool {
		return smt.NewBool(label)
	}
	return smt.NewBitVec(label, smt.DefaultBitVecSize)
}

// CollectNamed gathers every named symbol visible in a state, keyed by a
// readable name. Counterexample models are read through this map.
func CollectNamed(gs *state.GlobalState) map[string]*smt.BitVec {
	named := make(map[string]*smt.BitVec)
	for contractName, storage := range gs.Contracts {
		for _, scalar := range storage.ScalarNames() {
			if value, err := storage.Get(scalar); err == nil {
				named[contractName+"."+scalar] = value
			}
		}
	}
	for _, ghost := range gs.Ghosts.Order() {
		if gs.Ghosts.IsMapping(ghost) {
			continue
		}
		if value, err := gs.Ghosts.Get(ghost); err == nil {
			named[ghost] = value
		}
	}
	for _, frame := range gs.Frames {
		for name, value := range frame.Vars {
			named[name] = value.AsBitVec()
		}
		for _, env := range frame.Envs {
			addEnvNamed(named, env)
		}
		if frame.Env != nil {
			addEnvNamed(named, frame.Env)
		}
	}
	return named
}

func addEnvNamed(named map[string]*smt.BitVec, env *state.Enviroment) {
	named[env.Name+".msg.sender"] = env.MsgSender
	named[env.Name+".msg.value"] = env.MsgValue
	named[env.Name+".block.timestamp"] = env.BlockTimestamp
	named[env.Name+".block.number"] = env.BlockNumber
}

// pathConds snapshots the path condition for an obligation; later appends
// on the live state must not leak in.
func pathConds(gs *state.GlobalState) []*smt.Bool {
	conds := gs.Constraint.GetConstraints()
	snapshot := make([]*smt.Bool, len(conds))
	copy(snapshot, conds)
	return snapshot
}
