package state

import (
	"testing"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gprover/internal/funcs"
	"gprover/internal/lang"
	"gprover/internal/smt"
)

func testGhosts() *GhostState {
	decls := map[string]*lang.GhostDecl{
		"sum":  {Name: "sum", Type: &lang.Type{Kind: lang.TypeUint256}},
		"seen": {Name: "seen", Type: &lang.Type{Kind: lang.TypeBool}, Persistent: true},
		"perBalance": {Name: "perBalance", Type: &lang.Type{
			Kind:  lang.TypeMapping,
			Key:   &lang.Type{Kind: lang.TypeUint256},
			Value: &lang.Type{Kind: lang.TypeUint256},
		}},
	}
	gh := NewGhostState(decls, []string{"sum", "seen", "perBalance"})
	gh.InitFresh("init")
	return gh
}

func Test_GhostSnapshotRestore(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	gh := testGhosts()
	snap := gh.Snapshot()

	require.NoError(t, gh.Set("sum", smt.NewBitVecValInt64(7, 256)))
	require.NoError(t, gh.Set("seen", smt.NewBitVecValInt64(1, 256)))

	gh.Restore(snap)

	sum, err := gh.Get("sum")
	require.NoError(t, err)
	assert.True(t, sum.IsSymbolic(), "regular ghost rolls back to the snapshot")

	seen, err := gh.Get("seen")
	require.NoError(t, err)
	assert.False(t, seen.IsSymbolic(), "persistent ghost keeps the reverted write")
	assert.Equal(t, int64(1), seen.Value())
}

func Test_GhostHavocSparesPersistent(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	gh := testGhosts()
	require.NoError(t, gh.Set("sum", smt.NewBitVecValInt64(7, 256)))
	require.NoError(t, gh.Set("seen", smt.NewBitVecValInt64(1, 256)))

	gh.Havoc("h")

	sum, err := gh.Get("sum")
	require.NoError(t, err)
	assert.True(t, sum.IsSymbolic())

	seen, err := gh.Get("seen")
	require.NoError(t, err)
	assert.Equal(t, int64(1), seen.Value())
}

func Test_GhostMapping(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	gh := testGhosts()
	key := smt.NewBitVecValInt64(3, 256)
	require.NoError(t, gh.MapSet("perBalance", key, smt.NewBitVecValInt64(42, 256)))

	got, err := gh.MapGet("perBalance", key)
	require.NoError(t, err)

	solver := smt.NewSolver()
	status, _, cerr := solver.CheckBools(got.Ne(smt.NewBitVecValInt64(42, 256)))
	assert.NoError(t, cerr)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_GhostCloneIsolation(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	gh := testGhosts()
	fork := gh.Clone()
	require.NoError(t, fork.Set("sum", smt.NewBitVecValInt64(9, 256)))

	sum, err := gh.Get("sum")
	require.NoError(t, err)
	assert.True(t, sum.IsSymbolic())
}

func Test_FrameStackVisibility(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	gs := NewGlobalState(map[string]*Storage{}, testGhosts())
	specFrame := NewFrame(SpecFrame, "Vault", nil)
	specFrame.Vars["x"] = smt.NewBitVecValInt64(1, 256)
	gs.PushFrame(specFrame)

	callFrame := NewFrame(ContractFrame, "Vault", NewEnviroment("e"))
	gs.PushFrame(callFrame)

	// contract frames do not see the rule's locals
	_, ok := gs.LookupLocal("x")
	assert.False(t, ok)

	_, err := gs.PopFrame()
	require.NoError(t, err)
	_, ok = gs.LookupLocal("x")
	assert.True(t, ok)
}
