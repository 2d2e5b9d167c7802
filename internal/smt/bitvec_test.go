package smt

import (
	"math/big"
	"testing"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
)

func Test_BitVecWrapAround(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	a := NewBitVecVal(max, 256)
	one := NewBitVecValInt64(1, 256)

	// max + 1 wraps to 0
	sum := a.Add(one)
	solver := NewSolver()
	status, _, err := solver.CheckBools(sum.Eq(NewBitVecValInt64(0, 256)))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusSat, status)

	solver = NewSolver()
	status, _, err = solver.CheckBools(sum.Ne(NewBitVecValInt64(0, 256)))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_BitVecDivByZero(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	x := NewBitVec("x", 256)
	zero := NewBitVecValInt64(0, 256)

	// x / 0 == 0 must hold for every x
	q := x.UDiv(zero)
	solver := NewSolver()
	status, _, err := solver.CheckBools(q.Ne(zero))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)

	r := x.URem(zero)
	solver = NewSolver()
	status, _, err = solver.CheckBools(r.Ne(zero))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_BitVecComparisonsUnsigned(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	// 2^255 is negative as a signed word but large unsigned
	big255 := NewBitVecVal(new(big.Int).Lsh(big.NewInt(1), 255), 256)
	one := NewBitVecValInt64(1, 256)

	solver := NewSolver()
	status, _, err := solver.CheckBools(one.Ult(big255))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusSat, status)

	solver = NewSolver()
	status, _, err = solver.CheckBools(big255.Ult(one))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_BitVecModelValue(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	x := NewBitVec("x", 256)
	want := NewBitVecValInt64(12345, 256)

	solver := NewSolver()
	status, model, err := solver.CheckBools(x.Eq(want))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusSat, status)

	got := EvalBitVec(model, x)
	assert.NotNil(t, got)
	assert.Equal(t, "12345", got.String())
}

func Test_Ite(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	x := NewBitVec("x", 256)
	zero := NewBitVecValInt64(0, 256)
	one := NewBitVecValInt64(1, 256)

	picked := Ite(x.Eq(zero), one, zero)

	// x == 0 forces picked == 1
	solver := NewSolver()
	status, _, err := solver.CheckBools(x.Eq(zero), picked.Ne(one))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_BitVecAsBool(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	zero := NewBitVecValInt64(0, 256)
	two := NewBitVecValInt64(2, 256)

	solver := NewSolver()
	status, _, err := solver.CheckBools(zero.AsBool())
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)

	solver = NewSolver()
	status, _, err = solver.CheckBools(two.AsBool())
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusSat, status)
}
