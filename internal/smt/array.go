package smt

import (
	"fmt"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

// Array is a symbolic bv256 -> bv256 map built on a yices function term;
// Set produces an updated function term via Update1. Mappings in contract
// storage and ghost mappings both use it.
type Array struct {
	Name string
	rng  uint32
	term yices2.TermT
}

func NewArray(name string) *Array {
	t1 := yices2.BvType(DefaultBitVecSize)
	t2 := yices2.BvType(DefaultBitVecSize)
	term := yices2.NewUninterpretedTerm(yices2.FunctionType1(t1, t2))
	if name != "" {
		yices2.SetTermName(term, name)
	}
	return &Array{
		Name: name,
		rng:  DefaultBitVecSize,
		term: term,
	}
}

func (array *Array) GetRange() uint32 {
	return array.rng
}

func (array *Array) Get(index *BitVec) (*BitVec, error) {
	term := yices2.Application1(array.term, index.GetRaw())
	if term == yices2.NullTerm {
		return nil, fmt.Errorf("%s", yices2.ErrorString())
	}
	return NewBitVecFromTerm(term, array.rng), nil
}

func (array *Array) Set(index, value *BitVec) error {
	array.term = yices2.Update1(array.term, index.GetRaw(), value.GetRaw())
	if errorcode := yices2.ErrorCode(); errorcode != 0 {
		return fmt.Errorf("array set: %s", yices2.ErrorString())
	}
	return nil
}

func (array *Array) GetRaw() yices2.TermT {
	return array.term
}

// Clone copies the descriptor; later Set calls on either copy replace only
// that copy's term, so forked states do not see each other's writes.
func (array *Array) Clone() *Array {
	return &Array{
		Name: array.Name,
		rng:  array.rng,
		term: array.term,
	}
}
