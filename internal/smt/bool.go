package smt

import (
	"fmt"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

type Bool struct {
	name  string
	value yices2.TermT
}

func NewBoolVal(value bool) *Bool {
	if value {
		return &Bool{value: yices2.True()}
	}
	return &Bool{value: yices2.False()}
}

func NewBool(name string) *Bool {
	term := yices2.NewUninterpretedTerm(yices2.BoolType())
	errcode := yices2.SetTermName(term, name)
	if errcode < 0 {
		fmt.Println("set term name ", errcode)
	}
	return &Bool{
		name:  name,
		value: term,
	}
}

func NewBoolFromTerm(term yices2.TermT) *Bool {
	return &Bool{value: term}
}

func (b *Bool) Clone() StorableType {
	return &Bool{
		name:  b.name,
		value: b.value,
	}
}

// AsBitVec encodes the bool as a 256-bit 0/1 word, the storage carrier for
// bool-typed slots and ghosts.
func (b *Bool) AsBitVec() *BitVec {
	term := yices2.Ite(b.value,
		yices2.BvconstInt64(DefaultBitVecSize, 1),
		yices2.BvconstInt64(DefaultBitVecSize, 0))
	bv := NewBitVecFromTerm(term, DefaultBitVecSize)
	bv.name = b.name
	return bv
}

func (b *Bool) AsBool() *Bool {
	return b
}

func (b *Bool) GetRaw() yices2.TermT {
	return b.value
}

func (b *Bool) Type() string {
	return BoolType
}

func (b *Bool) Size() uint32 {
	return 0
}

func (b *Bool) Not() *Bool {
	return &Bool{value: yices2.Not(b.value)}
}

func (b *Bool) And(other *Bool) *Bool {
	return &Bool{value: yices2.And2(b.value, other.value)}
}

func (b *Bool) Or(other *Bool) *Bool {
	return &Bool{value: yices2.Or2(b.value, other.value)}
}

func (b *Bool) Implies(other *Bool) *Bool {
	return &Bool{value: yices2.Or2(yices2.Not(b.value), other.value)}
}

func (b *Bool) Iff(other *Bool) *Bool {
	return &Bool{value: yices2.Eq(b.value, other.value)}
}

func (b *Bool) IsSymbolic() bool {
	return yices2.TrmCnstrBoolConstant != yices2.TermConstructor(b.value)
}

func (b *Bool) IsTrue() bool {
	var val int32
	errcode := yices2.BoolConstValue(b.value, &val)
	if errcode != 0 {
		return false
	}
	return val != 0
}

func (b *Bool) IsFalse() bool {
	var val int32
	errcode := yices2.BoolConstValue(b.value, &val)
	if errcode != 0 {
		return false
	}
	return val == 0
}

// AndAll folds a slice of conditions into one conjunction.
func AndAll(conds ...*Bool) *Bool {
	if len(conds) == 0 {
		return NewBoolVal(true)
	}
	terms := make([]yices2.TermT, len(conds))
	for i := range conds {
		terms[i] = conds[i].value
	}
	return &Bool{value: yices2.And(terms)}
}
