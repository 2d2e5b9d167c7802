package state

import (
	"testing"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gprover/internal/contract"
	"gprover/internal/funcs"
	"gprover/internal/lang"
	"gprover/internal/smt"
)

func testContract() *contract.Contract {
	return &contract.Contract{
		Name: "Vault",
		Storage: map[string]*lang.Type{
			"total":  {Kind: lang.TypeUint256},
			"paused": {Kind: lang.TypeBool},
			"balances": {
				Kind:  lang.TypeMapping,
				Key:   &lang.Type{Kind: lang.TypeUint256},
				Value: &lang.Type{Kind: lang.TypeUint256},
			},
		},
		StorageOrder: []string{"total", "paused", "balances"},
	}
}

func Test_ConcreteStorageIsZeroed(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	storage := NewConcreteStorage(testContract())

	total, err := storage.Get("total")
	require.NoError(t, err)
	assert.False(t, total.IsSymbolic())
	assert.Equal(t, int64(0), total.Value())

	// an unwritten mapping key reads zero
	key := smt.NewBitVecValInt64(9, 256)
	value, err := storage.MapGet("balances", key)
	require.NoError(t, err)

	solver := smt.NewSolver()
	status, _, cerr := solver.CheckBools(value.Ne(smt.NewBitVecValInt64(0, 256)))
	assert.NoError(t, cerr)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_SymbolicStorageBoolRange(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	storage, conds := NewSymbolicStorage(testContract(), "pre")
	require.NotEmpty(t, conds)

	paused, err := storage.Get("paused")
	require.NoError(t, err)
	assert.True(t, paused.IsSymbolic())

	// the range conditions keep the bool slot inside 0/1
	conds = append(conds, paused.Ugt(smt.NewBitVecValInt64(1, 256)))
	solver := smt.NewSolver()
	status, _, cerr := solver.CheckBools(conds...)
	assert.NoError(t, cerr)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_StorageCloneIsolation(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	storage := NewConcreteStorage(testContract())
	fork := storage.Clone()

	require.NoError(t, fork.Set("total", smt.NewBitVecValInt64(5, 256)))
	require.NoError(t, fork.MapSet("balances", smt.NewBitVecValInt64(1, 256), smt.NewBitVecValInt64(50, 256)))

	total, err := storage.Get("total")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total.Value())

	value, err := storage.MapGet("balances", smt.NewBitVecValInt64(1, 256))
	require.NoError(t, err)
	solver := smt.NewSolver()
	status, _, cerr := solver.CheckBools(value.Ne(smt.NewBitVecValInt64(0, 256)))
	assert.NoError(t, cerr)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_StorageHavocForgetsWrites(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	storage := NewConcreteStorage(testContract())
	require.NoError(t, storage.Set("total", smt.NewBitVecValInt64(5, 256)))

	storage.Havoc("h")
	total, err := storage.Get("total")
	require.NoError(t, err)
	assert.True(t, total.IsSymbolic())

	// the havoced slot can be anything
	solver := smt.NewSolver()
	status, _, cerr := solver.CheckBools(total.Eq(smt.NewBitVecValInt64(123, 256)))
	assert.NoError(t, cerr)
	assert.Equal(t, yices2.StatusSat, status)
}

func Test_ConstraintIsPossible(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	x := smt.NewBitVec("x", 256)
	c := NewConstraints(x.Ult(smt.NewBitVecValInt64(10, 256)))
	assert.True(t, c.IsPossible())

	c.AppendBool(x.Ugt(smt.NewBitVecValInt64(20, 256)))
	assert.False(t, c.IsPossible())
}

func Test_ConcreteMappingSymbolicKeyAliasing(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	storage := NewConcreteStorage(testContract())
	who := smt.NewBitVec("who", 256)
	require.NoError(t, storage.MapSet("balances", who, smt.NewBitVecValInt64(5, 256)))

	key := smt.NewBitVec("key", 256)
	value, err := storage.MapGet("balances", key)
	require.NoError(t, err)

	solver := smt.NewSolver()

	// a key equal to the written one reads the written value
	status, _, cerr := solver.CheckBools(key.Eq(who), value.Ne(smt.NewBitVecValInt64(5, 256)))
	assert.NoError(t, cerr)
	assert.Equal(t, yices2.StatusUnsat, status)

	// every other key still reads zero
	status, _, cerr = solver.CheckBools(key.Ne(who), value.Ne(smt.NewBitVecValInt64(0, 256)))
	assert.NoError(t, cerr)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_ConcreteMappingLatestWriteWins(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	storage := NewConcreteStorage(testContract())
	who := smt.NewBitVec("who", 256)
	require.NoError(t, storage.MapSet("balances", who, smt.NewBitVecValInt64(5, 256)))
	require.NoError(t, storage.MapSet("balances", who, smt.NewBitVecValInt64(7, 256)))

	value, err := storage.MapGet("balances", who)
	require.NoError(t, err)

	solver := smt.NewSolver()
	status, _, cerr := solver.CheckBools(value.Ne(smt.NewBitVecValInt64(7, 256)))
	assert.NoError(t, cerr)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_ConcreteMappingCloneWriteIsolation(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	storage := NewConcreteStorage(testContract())
	base := smt.NewBitVec("base", 256)
	require.NoError(t, storage.MapSet("balances", base, smt.NewBitVecValInt64(1, 256)))

	fork := storage.Clone()
	require.NoError(t, fork.MapSet("balances", smt.NewBitVecValInt64(2, 256), smt.NewBitVecValInt64(9, 256)))

	// the original never sees the fork's write
	value, err := storage.MapGet("balances", smt.NewBitVecValInt64(2, 256))
	require.NoError(t, err)

	solver := smt.NewSolver()
	status, _, cerr := solver.CheckBools(value.Eq(smt.NewBitVecValInt64(9, 256)), base.Ne(smt.NewBitVecValInt64(2, 256)))
	assert.NoError(t, cerr)
	assert.Equal(t, yices2.StatusUnsat, status)
}
