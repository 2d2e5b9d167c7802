package state

import (
	"fmt"

	"gprover/internal/smt"
)

type FrameKind int

const (
	SpecFrame FrameKind = iota
	ContractFrame
	HookFrame
)

// Frame is one lexical scope of execution: the rule body, a contract
// function activation, or a hook body. Contract frames carry the active
// contract and call environment; Returned short-circuits the remainder of
// the activation's statements.
type Frame struct {
	Kind         FrameKind
	ContractName string
	Env          *Enviroment
	Vars         map[string]smt.StorableType
	Envs         map[string]*Enviroment
	Returned     bool
	RetVal       smt.StorableType
}

func NewFrame(kind FrameKind, contractName string, env *Enviroment) *Frame {
	return &Frame{
		Kind:         kind,
		ContractName: contractName,
		Env:          env,
		Vars:         make(map[string]smt.StorableType),
		Envs:         make(map[string]*Enviroment),
	}
}

func (f *Frame) Clone() *Frame {
	result := &Frame{
		Kind:         f.Kind,
		ContractName: f.ContractName,
		Env:          f.Env.Clone(),
		Vars:         make(map[string]smt.StorableType, len(f.Vars)),
		Envs:         make(map[string]*Enviroment, len(f.Envs)),
		Returned:     f.Returned,
	}
	for k, v := range f.Vars {
		result.Vars[k] = v.Clone()
	}
	for k, v := range f.Envs {
		result.Envs[k] = v.Clone()
	}
	if f.RetVal != nil {
		result.RetVal = f.RetVal.Clone()
	}
	return result
}

type ObligationKind int

const (
	ObAssert ObligationKind = iota
	ObSatisfy
	ObLoopBound
)

// Obligation is one recorded solver query: the full condition set to check
// and the names to read a counterexample from. Obligations are recorded
// during exploration and discharged afterwards; forked paths share the
// obligations recorded before the fork, hence the ID for deduplication.
type Obligation struct {
	ID      int
	Kind    ObligationKind
	Conds   []*smt.Bool
	Message string
	// SatisfyKey groups the instances of one satisfy statement across paths;
	// any sat instance witnesses the statement.
	SatisfyKey interface{}
	Named      map[string]*smt.BitVec
}

var nextObligationID int

func NewObligation(kind ObligationKind, conds []*smt.Bool, message string) *Obligation {
	nextObligationID++
	return &Obligation{
		ID:      nextObligationID,
		Kind:    kind,
		Conds:   conds,
		Message: message,
		Named:   make(map[string]*smt.BitVec),
	}
}

// GlobalState is one symbolic execution path: per-contract storage, ghost
// state, the path condition, the frame stack, and the path's revert status.
type GlobalState struct {
	Contracts    map[string]*Storage
	Ghosts       *GhostState
	Constraint   *Constraint
	Frames       []*Frame
	Reverted     bool
	LastReverted bool
	Obligations  []*Obligation
}

func NewGlobalState(contracts map[string]*Storage, ghosts *GhostState) *GlobalState {
	return &GlobalState{
		Contracts:  contracts,
		Ghosts:     ghosts,
		Constraint: NewConstraints(),
	}
}

func (gs *GlobalState) AddConstraint(cond *smt.Bool) {
	gs.Constraint.AppendBool(cond)
}

func (gs *GlobalState) AddConstraints(conds ...*smt.Bool) {
	gs.Constraint.AppendBools(conds...)
}

func (gs *GlobalState) PushFrame(frame *Frame) {
	gs.Frames = append(gs.Frames, frame)
}

func (gs *GlobalState) PopFrame() (*Frame, error) {
	if len(gs.Frames) == 0 {
		return nil, fmt.Errorf("frame stack underflow")
	}
	frame := gs.Frames[len(gs.Frames)-1]
	gs.Frames = gs.Frames[:len(gs.Frames)-1]
	return frame, nil
}

func (gs *GlobalState) CurrentFrame() *Frame {
	if len(gs.Frames) == 0 {
		return nil
	}
	return gs.Frames[len(gs.Frames)-1]
}

// LookupLocal searches the frame stack top-down. Hook and contract frames
// do not see spec locals of the rule below them, so the search stops at the
// first non-spec frame unless it began in one.
func (gs *GlobalState) LookupLocal(name string) (smt.StorableType, bool) {
	for i := len(gs.Frames) - 1; i >= 0; i-- {
		frame := gs.Frames[i]
		if value, ok := frame.Vars[name]; ok {
			return value, true
		}
		if frame.Kind != SpecFrame {
			return nil, false
		}
	}
	return nil, false
}

// SetLocal rebinds an existing local wherever it is visible, or binds a new
// one in the current frame.
func (gs *GlobalState) SetLocal(name string, value smt.StorableType) {
	for i := len(gs.Frames) - 1; i >= 0; i-- {
		frame := gs.Frames[i]
		if _, ok := frame.Vars[name]; ok {
			frame.Vars[name] = value
			return
		}
		if frame.Kind != SpecFrame {
			break
		}
	}
	gs.CurrentFrame().Vars[name] = value
}

// LookupEnv resolves an env-typed local with the same visibility as
// LookupLocal.
func (gs *GlobalState) LookupEnv(name string) (*Enviroment, bool) {
	for i := len(gs.Frames) - 1; i >= 0; i-- {
		frame := gs.Frames[i]
		if env, ok := frame.Envs[name]; ok {
			return env, true
		}
		if frame.Kind != SpecFrame {
			return nil, false
		}
	}
	return nil, false
}

func (gs *GlobalState) SetEnv(name string, env *Enviroment) {
	gs.CurrentFrame().Envs[name] = env
}

func (gs *GlobalState) Storage(contractName string) (*Storage, error) {
	storage, ok := gs.Contracts[contractName]
	if !ok {
		return nil, fmt.Errorf("no storage for contract %q", contractName)
	}
	return storage, nil
}

func (gs *GlobalState) AddObligation(ob *Obligation) {
	gs.Obligations = append(gs.Obligations, ob)
}

func (gs *GlobalState) Clone() *GlobalState {
	result := &GlobalState{
		Contracts:    make(map[string]*Storage, len(gs.Contracts)),
		Ghosts:       gs.Ghosts.Clone(),
		Constraint:   gs.Constraint.Clone(),
		Frames:       make([]*Frame, len(gs.Frames)),
		Reverted:     gs.Reverted,
		LastReverted: gs.LastReverted,
		Obligations:  make([]*Obligation, len(gs.Obligations)),
	}
	for name, storage := range gs.Contracts {
		result.Contracts[name] = storage.Clone()
	}
	for i, frame := range gs.Frames {
		result.Frames[i] = frame.Clone()
	}
	copy(result.Obligations, gs.Obligations)
	return result
}
