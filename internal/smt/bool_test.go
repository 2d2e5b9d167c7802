package smt

import (
	"testing"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
)

func Test_BoolConstants(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	assert.True(t, NewBoolVal(true).IsTrue())
	assert.True(t, NewBoolVal(false).IsFalse())
	assert.False(t, NewBoolVal(true).IsSymbolic())
	assert.True(t, NewBool("b").IsSymbolic())
}

func Test_BoolImplies(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	a := NewBool("a")
	b := NewBool("b")

	// a && (a => b) && !b is unsat
	solver := NewSolver()
	status, _, err := solver.CheckBools(a, a.Implies(b), b.Not())
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)

	// !a satisfies a => b for any b
	solver = NewSolver()
	status, _, err = solver.CheckBools(a.Not(), a.Implies(b))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusSat, status)
}

func Test_BoolBitVecRoundTrip(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	b := NewBool("b")
	word := b.AsBitVec()

	// the carrier is 0/1 and AsBool recovers the original
	solver := NewSolver()
	status, _, err := solver.CheckBools(word.Ugt(NewBitVecValInt64(1, 256)))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)

	solver = NewSolver()
	status, _, err = solver.CheckBools(b.Iff(word.AsBool()).Not())
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_AndAll(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	assert.True(t, AndAll().IsTrue())

	a := NewBoolVal(true)
	b := NewBoolVal(false)
	solver := NewSolver()
	status, _, err := solver.CheckBools(AndAll(a, b))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)
}
