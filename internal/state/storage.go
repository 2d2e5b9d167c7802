package state

import (
	"fmt"
	"strconv"

	"gprover/internal/contract"
	"gprover/internal/lang"
	"gprover/internal/smt"
)

var nextSymID int

// NextSymID disambiguates fresh symbol names across havocs and environments
// within one verification run.
func NextSymID() string {
	nextSymID++
	return strconv.Itoa(nextSymID)
}

func ResetCounter() {
	nextSymID = 0
}

// mapWrite is one recorded store into a concrete mapping, in program order.
type mapWrite struct {
	key   *smt.BitVec
	value *smt.BitVec
}

// Storage is one contract's symbolic storage. Concrete storage starts zeroed
// (the post-deployment state): scalar reads of unwritten slots and mapping
// reads of unwritten keys return zero. Symbolic storage starts as fresh
// unconstrained symbols (an arbitrary reachable state).
type Storage struct {
	contract *contract.Contract
	concrete bool
	scalars  map[string]*smt.BitVec
	maps     map[string]*smt.Array
	// writes holds concrete mappings as their write history; reads select
	// over it so a symbolic key may alias any written key.
	writes map[string][]mapWrite
}

func NewConcreteStorage(c *contract.Contract) *Storage {
	s := &Storage{
		contract: c,
		concrete: true,
		scalars:  make(map[string]*smt.BitVec),
		maps:     make(map[string]*smt.Array),
		writes:   make(map[string][]mapWrite),
	}
	for _, name := range c.StorageOrder {
		typ := c.Storage[name]
		if typ.IsMapping() {
			s.writes[name] = nil
		} else {
			s.scalars[name] = smt.NewBitVecValInt64(0, smt.DefaultBitVecSize)
		}
	}
	return s
}

// NewSymbolicStorage builds an arbitrary storage state. The returned
// conditions bound bool-typed slots to 0/1 and must go on the path
// condition by the caller.
func NewSymbolicStorage(c *contract.Contract, label string) (*Storage, []*smt.Bool) {
	s := &Storage{
		contract: c,
		scalars:  make(map[string]*smt.BitVec),
		maps:     make(map[string]*smt.Array),
	}
	var conds []*smt.Bool
	for _, name := range c.StorageOrder {
		typ := c.Storage[name]
		if typ.IsMapping() {
			s.maps[name] = smt.NewArray(fmt.Sprintf("%s_%s.%s", label, c.Name, name))
			continue
		}
		sym := smt.NewBitVec(fmt.Sprintf("%s_%s.%s", label, c.Name, name), smt.DefaultBitVecSize)
		s.scalars[name] = sym
		if typ.Kind == lang.TypeBool {
			conds = append(conds, sym.Ule(smt.NewBitVecValInt64(1, smt.DefaultBitVecSize)))
		}
	}
	return s, conds
}

func (s *Storage) Contract() *contract.Contract {
	return s.contract
}

func (s *Storage) Get(name string) (*smt.BitVec, error) {
	value, ok := s.scalars[name]
	if !ok {
		return nil, fmt.Errorf("contract %s has no scalar storage %q", s.contract.Name, name)
	}
	return value, nil
}

func (s *Storage) Set(name string, value *smt.BitVec) error {
	if _, ok := s.scalars[name]; !ok {
		return fmt.Errorf("contract %s has no scalar storage %q", s.contract.Name, name)
	}
	s.scalars[name] = value
	return nil
}

func (s *Storage) MapGet(name string, key *smt.BitVec) (*smt.BitVec, error) {
	if s.concrete {
		writes, ok := s.writes[name]
		if !ok {
			return nil, fmt.Errorf("contract %s has no mapping %q", s.contract.Name, name)
		}
		// fresh deployment: any key outside the write history holds zero,
		// and the latest matching write wins
		value := smt.NewBitVecValInt64(0, smt.DefaultBitVecSize)
		for _, w := range writes {
			value = smt.Ite(key.Eq(w.key), w.value, value)
		}
		return value, nil
	}
	array, ok := s.maps[name]
	if !ok {
		return nil, fmt.Errorf("contract %s has no mapping %q", s.contract.Name, name)
	}
	return array.Get(key)
}

func (s *Storage) MapSet(name string, key, value *smt.BitVec) error {
	if s.concrete {
		writes, ok := s.writes[name]
		if !ok {
			return fmt.Errorf("contract %s has no mapping %q", s.contract.Name, name)
		}
		s.writes[name] = append(writes, mapWrite{key: key, value: value})
		return nil
	}
	array, ok := s.maps[name]
	if !ok {
		return fmt.Errorf("contract %s has no mapping %q", s.contract.Name, name)
	}
	return array.Set(key, value)
}

// Havoc replaces the whole storage with fresh symbols, the effect of an
// unresolved external call that may have reentered this contract.
func (s *Storage) Havoc(label string) []*smt.Bool {
	fresh, conds := NewSymbolicStorage(s.contract, label)
	s.concrete = false
	s.scalars = fresh.scalars
	s.maps = fresh.maps
	s.writes = nil
	return conds
}

func (s *Storage) Clone() *Storage {
	result := &Storage{
		contract: s.contract,
		concrete: s.concrete,
		scalars:  make(map[string]*smt.BitVec, len(s.scalars)),
		maps:     make(map[string]*smt.Array, len(s.maps)),
	}
	for k, v := range s.scalars {
		result.scalars[k] = v
	}
	for k, v := range s.maps {
		result.maps[k] = v.Clone()
	}
	if s.concrete {
		// exact-length copies so appends in one fork never alias the other
		result.writes = make(map[string][]mapWrite, len(s.writes))
		for name, writes := range s.writes {
			result.writes[name] = append([]mapWrite(nil), writes...)
		}
	}
	return result
}

// ScalarNames lists scalar slots in declaration order, for counterexample
// output.
func (s *Storage) ScalarNames() []string {
	var names []string
	for _, name := range s.contract.StorageOrder {
		if _, ok := s.scalars[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
