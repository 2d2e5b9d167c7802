package state

import (
	"fmt"

	"gprover/internal/lang"
	"gprover/internal/smt"
)

// GhostState carries the specification-only variables. Regular ghosts are
// rolled back on revert and replaced by fresh symbols on unresolved-call
// havoc; persistent ghosts only ever change through explicit assignment.
// Both kinds start unconstrained at the beginning of every rule execution
// and at an invariant's base case.
type GhostState struct {
	decls   map[string]*lang.GhostDecl
	order   []string
	scalars map[string]*smt.BitVec
	maps    map[string]*smt.Array
}

// GhostSnapshot captures the regular ghosts at a call boundary, for the
// rollback a revert performs.
type GhostSnapshot struct {
	scalars map[string]*smt.BitVec
	maps    map[string]*smt.Array
}

func NewGhostState(decls map[string]*lang.GhostDecl, order []string) *GhostState {
	return &GhostState{
		decls:   decls,
		order:   order,
		scalars: make(map[string]*smt.BitVec),
		maps:    make(map[string]*smt.Array),
	}
}

func (gh *GhostState) Declared(name string) bool {
	_, ok := gh.decls[name]
	return ok
}

func (gh *GhostState) IsPersistent(name string) bool {
	decl, ok := gh.decls[name]
	return ok && decl.Persistent
}

func (gh *GhostState) IsMapping(name string) bool {
	decl, ok := gh.decls[name]
	return ok && decl.Type.IsMapping()
}

func (gh *GhostState) Order() []string {
	return gh.order
}

// InitFresh gives every ghost a fresh unconstrained symbol. The returned
// conditions are the 0/1 bounds of bool-typed ghosts.
func (gh *GhostState) InitFresh(label string) []*smt.Bool {
	var conds []*smt.Bool
	for _, name := range gh.order {
		conds = append(conds, gh.freshen(name, label)...)
	}
	return conds
}

// Havoc replaces the regular ghosts with fresh symbols, leaving persistent
// ghosts untouched.
func (gh *GhostState) Havoc(label string) []*smt.Bool {
	var conds []*smt.Bool
	for _, name := range gh.order {
		if gh.decls[name].Persistent {
			continue
		}
		conds = append(conds, gh.freshen(name, label)...)
	}
	return conds
}

func (gh *GhostState) freshen(name, label string) []*smt.Bool {
	decl := gh.decls[name]
	if decl.Type.IsMapping() {
		gh.maps[name] = smt.NewArray(fmt.Sprintf("%s_ghost.%s", label, name))
		return nil
	}
	sym := smt.NewBitVec(fmt.Sprintf("%s_ghost.%s", label, name), smt.DefaultBitVecSize)
	gh.scalars[name] = sym
	if decl.Type.Kind == lang.TypeBool {
		return []*smt.Bool{sym.Ule(smt.NewBitVecValInt64(1, smt.DefaultBitVecSize))}
	}
	return nil
}

func (gh *GhostState) Get(name string) (*smt.BitVec, error) {
	value, ok := gh.scalars[name]
	if !ok {
		return nil, fmt.Errorf("no scalar ghost %q", name)
	}
	return value, nil
}

func (gh *GhostState) Set(name string, value *smt.BitVec) error {
	if _, ok := gh.scalars[name]; !ok {
		return fmt.Errorf("no scalar ghost %q", name)
	}
	gh.scalars[name] = value
	return nil
}

func (gh *GhostState) MapGet(name string, key *smt.BitVec) (*smt.BitVec, error) {
	array, ok := gh.maps[name]
	if !ok {
		return nil, fmt.Errorf("no ghost mapping %q", name)
	}
	return array.Get(key)
}

func (gh *GhostState) MapSet(name string, key, value *smt.BitVec) error {
	array, ok := gh.maps[name]
	if !ok {
		return fmt.Errorf("no ghost mapping %q", name)
	}
	return array.Set(key, value)
}

// Snapshot copies the regular ghosts only; persistent ghosts survive the
// rollback a snapshot exists for.
func (gh *GhostState) Snapshot() *GhostSnapshot {
	snap := &GhostSnapshot{
		scalars: make(map[string]*smt.BitVec),
		maps:    make(map[string]*smt.Array),
	}
	for name, value := range gh.scalars {
		if gh.decls[name].Persistent {
			continue
		}
		snap.scalars[name] = value
	}
	for name, array := range gh.maps {
		if gh.decls[name].Persistent {
			continue
		}
		snap.maps[name] = array.Clone()
	}
	return snap
}

func (gh *GhostState) Restore(snap *GhostSnapshot) {
	for name, value := range snap.scalars {
		gh.scalars[name] = value
	}
	for name, array := range snap.maps {
		gh.maps[name] = array.Clone()
	}
}

func (gh *GhostState) Clone() *GhostState {
	result := &GhostState{
		decls:   gh.decls,
		order:   gh.order,
		scalars: make(map[string]*smt.BitVec, len(gh.scalars)),
		maps:    make(map[string]*smt.Array, len(gh.maps)),
	}
	for k, v := range gh.scalars {
		result.scalars[k] = v
	}
	for k, v := range gh.maps {
		result.maps[k] = v.Clone()
	}
	return result
}
