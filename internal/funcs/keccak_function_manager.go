// Package funcs models keccak256 with an uninterpreted function plus an
// explicit inverse, so the solver treats hashing as injective without ever
// inverting it. Concrete inputs are hashed for real and pinned with
// equality conditions.
package funcs

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"gprover/internal/smt"
)

type KeccakFunctionManager struct {
	hashFunc       *smt.Function
	inverseFunc    *smt.Function
	symbolicInputs []*smt.BitVec
	concreteHashes map[*smt.BitVec]*smt.BitVec
}

func NewKeccakFunctionManager() *KeccakFunctionManager {
	return &KeccakFunctionManager{
		hashFunc:       smt.NewFunction("keccak256_256", []uint32{smt.DefaultBitVecSize}, smt.DefaultBitVecSize),
		inverseFunc:    smt.NewFunction("keccak256_256-1", []uint32{smt.DefaultBitVecSize}, smt.DefaultBitVecSize),
		concreteHashes: make(map[*smt.BitVec]*smt.BitVec),
	}
}

// FindConcreteKeccak hashes a concrete word for real, big-endian padded to
// 32 bytes, matching EVM keccak256(abi.encode(x)).
func (kfm *KeccakFunctionManager) FindConcreteKeccak(data *smt.BitVec) *smt.BitVec {
	word := make([]byte, 32)
	data.GetBigInt().FillBytes(word)
	digest := new(big.Int)
	digest.SetBytes(crypto.Keccak256(word))
	return smt.NewBitVecVal(digest, smt.DefaultBitVecSize)
}

// CreateKeccak returns the hash term for data and records whatever side
// condition the term needs; CreateConditions collects them per query.
func (kfm *KeccakFunctionManager) CreateKeccak(data *smt.BitVec) *smt.BitVec {
	if !data.IsSymbolic() {
		concreteHash := kfm.FindConcreteKeccak(data)
		kfm.concreteHashes[data] = concreteHash
		return concreteHash
	}
	kfm.symbolicInputs = append(kfm.symbolicInputs, data)
	return kfm.hashFunc.Call(data)
}

// CreateConditions builds the conjunction every solver query has to carry:
// inverse(hash(x)) == x for each symbolic input, and hash(c) pinned to the
// real digest for each concrete input.
func (kfm *KeccakFunctionManager) CreateConditions() *smt.Bool {
	condition := smt.NewBoolVal(true)
	for _, input := range kfm.symbolicInputs {
		hashed := kfm.hashFunc.Call(input)
		inverted := kfm.inverseFunc.Call(hashed)
		condition = condition.And(inverted.Eq(input))
	}
	for concreteInput, concreteHash := range kfm.concreteHashes {
		hashed := kfm.hashFunc.Call(concreteInput)
		condition = condition.And(hashed.Eq(concreteHash))
	}
	return condition
}

// Reset drops recorded inputs between rule executions; hash conditions never
// carry across independent runs.
func (kfm *KeccakFunctionManager) Reset() {
	kfm.symbolicInputs = nil
	kfm.concreteHashes = make(map[*smt.BitVec]*smt.BitVec)
}
