package smt

import (
	"math/big"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

// EvalBitVec reads a concrete witness value for term out of a sat model.
// Terms the model never constrained come back nil; callers skip those in
// counterexample output.
func EvalBitVec(model *yices2.ModelT, bv *BitVec) *big.Int {
	if model == nil {
		return nil
	}
	return GetModelBvValue(model, bv.GetRaw())
}

// EvalBool reads a concrete bool witness out of a sat model. The query goes
// through the 0/1 bitvector encoding so only the bitvector model API is used.
func EvalBool(model *yices2.ModelT, b *Bool) (bool, bool) {
	if model == nil {
		return false, false
	}
	val := GetModelBvValue(model, b.AsBitVec().GetRaw())
	if val == nil {
		return false, false
	}
	return val.Sign() != 0, true
}
