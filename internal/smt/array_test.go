package smt

import (
	"testing"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ArraySetGet(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	balances := NewArray("balances")
	key := NewBitVecValInt64(7, 256)
	value := NewBitVecValInt64(100, 256)

	require.NoError(t, balances.Set(key, value))
	got, err := balances.Get(key)
	require.NoError(t, err)

	solver := NewSolver()
	status, _, err := solver.CheckBools(got.Ne(value))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_ArrayCloneIsolation(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	original := NewArray("m")
	key := NewBitVecValInt64(1, 256)
	require.NoError(t, original.Set(key, NewBitVecValInt64(10, 256)))

	fork := original.Clone()
	require.NoError(t, fork.Set(key, NewBitVecValInt64(20, 256)))

	origVal, err := original.Get(key)
	require.NoError(t, err)
	forkVal, err := fork.Get(key)
	require.NoError(t, err)

	// the write to the clone must not show through the original
	solver := NewSolver()
	status, _, err := solver.CheckBools(origVal.Ne(NewBitVecValInt64(10, 256)))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)

	solver = NewSolver()
	status, _, err = solver.CheckBools(forkVal.Ne(NewBitVecValInt64(20, 256)))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_FunctionApplication(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	f := NewFunction("f", []uint32{256}, 256)
	x := NewBitVec("x", 256)
	y := NewBitVec("y", 256)

	// congruence: x == y forces f(x) == f(y)
	solver := NewSolver()
	status, _, err := solver.CheckBools(x.Eq(y), f.Call(x).Ne(f.Call(y)))
	assert.NoError(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)
}
