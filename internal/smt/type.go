package smt

import yices2 "github.com/ianamason/yices2_go_bindings/yices_api"

const (
	BitVecType = "bitvec"
	BoolType   = "bool"
)

// StorableType is anything the evaluator can keep in storage, ghost state or
// a local frame. Conversions between the two carriers go through AsBitVec and
// AsBool so callers never touch raw terms.
type StorableType interface {
	GetRaw() yices2.TermT
	Clone() StorableType
	AsBitVec() *BitVec
	AsBool() *Bool
	Type() string
	Size() uint32
}
