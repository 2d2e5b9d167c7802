package smt

import (
	"encoding/hex"
	"fmt"
	"math/big"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

const DefaultBitVecSize = 256

// BitVec wraps a yices bitvector term. All contract and ghost scalars are
// 256-bit vectors, matching EVM word semantics.
type BitVec struct {
	name  string
	value yices2.TermT
}

func NewBitVec(name string, size uint32) *BitVec {
	term := yices2.NewUninterpretedTerm(yices2.BvType(size))
	errcode := yices2.SetTermName(term, name)
	if errcode < 0 {
		fmt.Println("set term name ", errcode)
	}
	return &BitVec{
		name:  name,
		value: term,
	}
}

func NewBitVecVal(value *big.Int, size uint32) *BitVec {
	return newBitVecValFromBigInt(value, size)
}

func NewBitVecValInt64(value int64, size uint32) *BitVec {
	return newBitVecValFromBigInt(big.NewInt(value), size)
}

func NewBitVecFromTerm(value yices2.TermT, size uint32) *BitVec {
	return &BitVec{
		name:  "",
		value: value,
	}
}

func newBitVecValFromBigInt(value *big.Int, size uint32) *BitVec {
	v := make([]int32, value.BitLen())
	for j := 0; j < value.BitLen(); j++ {
		v[j] = int32(value.Bit(j))
	}
	// padding
	if uint32(len(v)) < size {
		v = append(v, make([]int32, size-uint32(len(v)))...)
	}
	if uint32(len(v)) != size {
		panic(fmt.Errorf("bvsize not %d", size))
	}
	return &BitVec{
		name:  "",
		value: yices2.BvconstFromArray(v),
	}
}

func GetBigBvValue(value yices2.TermT) *big.Int {
	intVal := make([]int32, yices2.TermBitsize(value))
	errorcode := yices2.BvConstValue(value, intVal)
	if errorcode != 0 {
		result := big.NewInt(0)
		for i := 0; i < len(intVal); i++ {
			b := yices2.Bitextract(value, uint32(i))
			if yices2.True() == b {
				result = result.SetBit(result, i, 1)
			} else {
				result = result.SetBit(result, i, 0)
			}
		}
		return result
	}
	result := big.NewInt(0)
	for i := 0; i < len(intVal); i++ {
		result = result.SetBit(result, i, uint(intVal[i]))
	}
	return result
}

// GetModelBvValue reads the bitvector assignment for term out of a sat model.
func GetModelBvValue(model *yices2.ModelT, term yices2.TermT) *big.Int {
	intVal := make([]int32, yices2.TermBitsize(term))
	errorcode := yices2.GetBvValue(*model, term, intVal)
	if errorcode != 0 {
		return nil
	}
	result := big.NewInt(0)
	for i := 0; i < len(intVal); i++ {
		result = result.SetBit(result, i, uint(intVal[i]))
	}
	return result
}

func (bv *BitVec) Clone() StorableType {
	return &BitVec{
		name:  bv.name,
		value: bv.value,
	}
}

func (bv *BitVec) AsBitVec() *BitVec {
	return bv
}

// AsBool maps the EVM truth convention: anything nonzero is true.
func (bv *BitVec) AsBool() *Bool {
	zero := NewBitVecValInt64(0, bv.Size())
	return &Bool{
		name:  bv.name,
		value: yices2.Not(yices2.Eq(zero.value, bv.value)),
	}
}

func (bv *BitVec) Type() string {
	return BitVecType
}

func (bv *BitVec) Size() uint32 {
	return yices2.TermBitsize(bv.value)
}

func (bv *BitVec) GetRaw() yices2.TermT {
	return bv.value
}

func (bv *BitVec) GetName() string {
	return bv.name
}

func (bv *BitVec) IsSymbolic() bool {
	return yices2.TermConstructor(bv.value) > 2
}

func (bv *BitVec) GetBigInt() *big.Int {
	return GetBigBvValue(bv.GetRaw())
}

func (bv *BitVec) Value() int64 {
	return GetBigBvValue(bv.GetRaw()).Int64()
}

func (bv *BitVec) String() string {
	return GetBigBvValue(bv.GetRaw()).String()
}

// HexString returns the big-endian hex encoding.
func (bv *BitVec) HexString() string {
	return hex.EncodeToString(bv.GetBigInt().Bytes())
}

func (bv *BitVec) Add(other *BitVec) *BitVec {
	return &BitVec{
		name:  bv.name,
		value: yices2.Bvadd(bv.value, other.value),
	}
}

func (bv *BitVec) Sub(other *BitVec) *BitVec {
	return &BitVec{
		name:  bv.name,
		value: yices2.Bvsub(bv.value, other.value),
	}
}

func (bv *BitVec) Mul(other *BitVec) *BitVec {
	return &BitVec{
		name:  bv.name,
		value: yices2.Bvmul(bv.value, other.value),
	}
}

// UDiv follows the EVM DIV convention: division by zero yields zero, not the
// SMT-LIB all-ones default.
func (bv *BitVec) UDiv(other *BitVec) *BitVec {
	zero := NewBitVecValInt64(0, bv.Size())
	term := yices2.Ite(
		yices2.Eq(other.value, zero.value),
		zero.value,
		yices2.Bvdiv(bv.value, other.value))
	return &BitVec{
		name:  bv.name,
		value: term,
	}
}

// URem follows the EVM MOD convention: modulo by zero yields zero.
func (bv *BitVec) URem(other *BitVec) *BitVec {
	zero := NewBitVecValInt64(0, bv.Size())
	term := yices2.Ite(
		yices2.Eq(other.value, zero.value),
		zero.value,
		yices2.Bvrem(bv.value, other.value))
	return &BitVec{
		name:  bv.name,
		value: term,
	}
}

func (bv *BitVec) Neg() *BitVec {
	zero := NewBitVecValInt64(0, bv.Size())
	return zero.Sub(bv)
}

func (bv *BitVec) And(other *BitVec) *BitVec {
	return &BitVec{
		name:  bv.name,
		value: yices2.Bvand2(bv.value, other.value),
	}
}

func (bv *BitVec) Or(other *BitVec) *BitVec {
	return &BitVec{
		name:  bv.name,
		value: yices2.Bvor2(bv.value, other.value),
	}
}

func (bv *BitVec) Xor(other *BitVec) *BitVec {
	return &BitVec{
		name:  bv.name,
		value: yices2.Bvxor2(bv.value, other.value),
	}
}

func (bv *BitVec) Not() *BitVec {
	return &BitVec{
		name:  bv.name,
		value: yices2.Bvnot(bv.value),
	}
}

func (bv *BitVec) Shl(other *BitVec) *BitVec {
	return &BitVec{
		name:  bv.name,
		value: yices2.Bvshl(bv.value, other.value),
	}
}

func (bv *BitVec) Shr(other *BitVec) *BitVec {
	return &BitVec{
		name:  bv.name,
		value: yices2.Bvlshr(bv.value, other.value),
	}
}

// Ult and friends are the unsigned comparisons; everything in the contract
// language is unsigned.
func (bv *BitVec) Ult(other *BitVec) *Bool {
	return &Bool{
		name:  bv.name,
		value: yices2.BvltAtom(bv.value, other.value),
	}
}

func (bv *BitVec) Ule(other *BitVec) *Bool {
	return &Bool{
		name:  bv.name,
		value: yices2.BvleAtom(bv.value, other.value),
	}
}

func (bv *BitVec) Ugt(other *BitVec) *Bool {
	return &Bool{
		name:  bv.name,
		value: yices2.BvgtAtom(bv.value, other.value),
	}
}

func (bv *BitVec) Uge(other *BitVec) *Bool {
	return &Bool{
		name:  bv.name,
		value: yices2.BvgeAtom(bv.value, other.value),
	}
}

func (bv *BitVec) Eq(other *BitVec) *Bool {
	return &Bool{
		name:  bv.name,
		value: yices2.Eq(bv.value, other.value),
	}
}

func (bv *BitVec) Ne(other *BitVec) *Bool {
	return &Bool{
		name:  bv.name,
		value: yices2.BvneqAtom(bv.value, other.value),
	}
}

// Ite selects between two vectors under a symbolic condition.
func Ite(cond *Bool, then, els *BitVec) *BitVec {
	return &BitVec{
		name:  "",
		value: yices2.Ite(cond.value, then.value, els.value),
	}
}
