package verifier

import (
	"testing"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gprover/internal/config"
	"gprover/internal/contract"
	"gprover/internal/funcs"
	"gprover/internal/lang"
	"gprover/internal/report"
	"gprover/internal/spec"
)

// runVerification builds the system and spec from source and runs every
// rule and invariant, returning the reports in declaration order.
func runVerification(t *testing.T, contractSrc, specSrc, verify string,
	mutate func(*config.Config)) []*report.Report {
	t.Helper()
	funcs.Init()

	file, err := lang.ParseContractSource(contractSrc)
	require.NoError(t, err)
	system, err := contract.Load([]*lang.File{file})
	require.NoError(t, err)

	target, ok := system.Contract(verify)
	require.True(t, ok)

	specFile, err := lang.ParseSpecSource(specSrc)
	require.NoError(t, err)
	sp, err := spec.Load(specFile, target)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Verify = verify
	if mutate != nil {
		mutate(cfg)
	}

	v, err := New(system, sp, cfg)
	require.NoError(t, err)
	return v.Run()
}

const counterSrc = `
contract Counter {
    uint256 count;

    function increment() external {
        count = count + 1;
    }

    function get() external view returns (uint256) {
        return count;
    }
}
`

const counterMethods = `
methods {
    function increment() external;
    function get() external returns (uint256) envfree;
}
`

func Test_RuleIncrementVerified(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, counterSrc, counterMethods+`
rule incrementAdds(env e) {
    uint256 before = get();
    require before < max_uint256;
    increment(e);
    assert get() == before + 1, "count must go up by one";
}
`, "Counter", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

func Test_RuleOverflowViolated(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	// without the bound, count == max_uint256 wraps to zero
	reports := runVerification(t, counterSrc, counterMethods+`
rule incrementAdds(env e) {
    uint256 before = get();
    increment(e);
    assert get() == before + 1 && get() > before;
}
`, "Counter", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusViolated, reports[0].Status)
	assert.NotEmpty(t, reports[0].Witness, "violation carries a counterexample")
}

func Test_RuleFromZeroCountsToOne(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, counterSrc, counterMethods+`
rule fromZero(env e) {
    require get() == 0;
    increment(e);
    assert get() == 1;
}
`, "Counter", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

const mathSrc = `
contract Math {
    function add(uint256 x, uint256 y) external returns (uint256) {
        uint256 z = x + y;
        require(z >= x);
        return z;
    }
}
`

func Test_RuleAddRevertsExactlyOnOverflow(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, mathSrc, `
methods {
    function add(uint256, uint256) external returns (uint256);
}

rule addOverflowCharacterization(env e, uint256 x, uint256 y) {
    add@withrevert(e, x, y);
    assert lastReverted == (x + y < x);
}

rule addReturnsSum(env e, uint256 x, uint256 y) {
    uint256 r = add(e, x, y);
    assert r == x + y;
}
`, "Math", nil)
	require.Len(t, reports, 2)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
	assert.Equal(t, report.StatusVerified, reports[1].Status)
}

func Test_RuleSatisfy(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, counterSrc, counterMethods+`
rule canReachTen(env e) {
    satisfy get() == 10;
}

rule neverTrue(env e) {
    satisfy get() != get();
}
`, "Counter", nil)
	require.Len(t, reports, 2)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
	assert.Equal(t, report.StatusViolated, reports[1].Status)
	assert.Contains(t, reports[1].Message, "no witnessing execution")
}

const guardedSrc = `
contract Guarded {
    uint256 total;

    function set(uint256 a) external {
        total = a;
        require(a < 10);
    }
}
`

func Test_RuleWithRevert(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, guardedSrc, `
methods {
    function set(uint256) external;
}

rule bigValueReverts(env e) {
    set@withrevert(e, 20);
    assert lastReverted;
}

rule smallValueSucceeds(env e) {
    set@withrevert(e, 5);
    assert !lastReverted;
}
`, "Guarded", nil)
	require.Len(t, reports, 2)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
	assert.Equal(t, report.StatusVerified, reports[1].Status)
}

func Test_RulePlainCallPrunesReverts(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	// a plain call only continues on non-reverting paths
	reports := runVerification(t, guardedSrc, `
methods {
    function set(uint256) external;
}

rule survivorsAreSmall(env e, uint256 a) {
    set(e, a);
    assert a < 10;
}
`, "Guarded", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

const vaultSrc = `
contract Vault {
    mapping(uint256 => uint256) balances;
    uint256 total;

    function set(uint256 who, uint256 amount) external {
        balances[who] = amount;
    }

    function setTotal(uint256 a) external {
        total = a;
        require(a < 10);
    }
}
`

func Test_HookSstoreUpdatesGhost(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, vaultSrc, `
methods {
    function set(uint256, uint256) external;
}

ghost uint256 lastWritten;
ghost uint256 lastKey;

hook Sstore balances[KEY uint256 k] uint256 v (uint256 old) {
    lastWritten = v;
    lastKey = k;
}

rule hookSeesWrite(env e, uint256 who, uint256 amount) {
    set(e, who, amount);
    assert lastWritten == amount && lastKey == who;
}
`, "Vault", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

func Test_RevertRollsBackRegularGhostOnly(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, vaultSrc, `
methods {
    function setTotal(uint256) external;
}

ghost uint256 regularLog;
persistent ghost uint256 persistentLog;

hook Sstore total uint256 v {
    regularLog = v;
    persistentLog = v;
}

rule revertRollsBack(env e) {
    require regularLog == 1 && persistentLog == 1;
    setTotal@withrevert(e, 20);
    assert lastReverted;
    assert regularLog == 1, "regular ghost rolls back with the revert";
    assert persistentLog == 20, "persistent ghost keeps the write";
}
`, "Vault", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

const linkedSrc = `
interface ICounter {
    function val() external view returns (uint256);
    function touch() external;
}

contract ImplOne {
    function val() external view returns (uint256) {
        return 1;
    }
    function touch() external {
    }
}

contract ImplTwo {
    function val() external view returns (uint256) {
        return 2;
    }
    function touch() external {
    }
}

contract Caller {
    ICounter counter;

    function poke() external returns (uint256) {
        return counter.val();
    }

    function stir() external {
        counter.touch();
    }
}
`

const linkedMethods = `
methods {
    function poke() external returns (uint256);
}
`

func Test_LinkedCall(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, linkedSrc, linkedMethods+`
rule linkedValue(env e) {
    uint256 r = poke(e);
    assert r == 1;
}
`, "Caller", func(cfg *config.Config) {
		cfg.Link = map[string]string{"Caller.counter": "ImplOne"}
	})
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

func Test_DispatcherForksPerCandidate(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	dispatch := func(cfg *config.Config) {
		cfg.Dispatcher = map[string][]string{"ICounter": {"ImplOne", "ImplTwo"}}
	}

	reports := runVerification(t, linkedSrc, linkedMethods+`
rule eitherCandidate(env e) {
    uint256 r = poke(e);
    assert r == 1 || r == 2;
}

rule onlyOne(env e) {
    uint256 r = poke(e);
    assert r == 1;
}
`, "Caller", dispatch)
	require.Len(t, reports, 2)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
	assert.Equal(t, report.StatusViolated, reports[1].Status, "the second candidate returns 2")
}

func Test_HavocedCallClobbersRegularGhost(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	specSrc := `
methods {
    function stir() external;
}

ghost uint256 g;

rule unresolvedCallHavocs(env e) {
    require g == 5;
    stir(e);
    assert g == 5;
}
`
	reports := runVerification(t, linkedSrc, specSrc, "Caller", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusViolated, reports[0].Status)
}

func Test_HavocedCallSparesPersistentGhost(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	specSrc := `
methods {
    function stir() external;
}

persistent ghost uint256 g;

rule persistentSurvivesHavoc(env e) {
    require g == 5;
    stir(e);
    assert g == 5;
}
`
	reports := runVerification(t, linkedSrc, specSrc, "Caller", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

func Test_HavocedViewCallLeavesState(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	specSrc := `
methods {
    function poke() external returns (uint256);
}

ghost uint256 g;

rule viewCallPreserves(env e) {
    require g == 5;
    poke(e);
    assert g == 5;
}
`
	reports := runVerification(t, linkedSrc, specSrc, "Caller", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

const loopSrc = `
contract Looper {
    uint256 steps;

    function walk(uint256 n) external {
        uint256 i = 0;
        while (i < n) {
            i = i + 1;
        }
        steps = i;
    }
}
`

func Test_LoopWithinBound(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, loopSrc, `
methods {
    function walk(uint256) external;
}

rule twoSteps(env e) {
    walk(e, 2);
    assert true;
}
`, "Looper", func(cfg *config.Config) { cfg.LoopIter = 2 })
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

func Test_LoopBeyondBoundIncomplete(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, loopSrc, `
methods {
    function walk(uint256) external;
}

rule twoSteps(env e) {
    walk(e, 2);
    assert true;
}
`, "Looper", func(cfg *config.Config) { cfg.LoopIter = 1 })
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusIncomplete, reports[0].Status)
	assert.Contains(t, reports[0].Message, "iterations")
}

func Test_LoopBoundSurvivesPrunedTail(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	// the unexplored tail must be reported even when every path after the
	// call is pruned away
	reports := runVerification(t, loopSrc, `
methods {
    function walk(uint256) external;
}

rule prunedTail(env e) {
    walk(e, 2);
    require false;
    assert true;
}
`, "Looper", func(cfg *config.Config) { cfg.LoopIter = 1 })
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusIncomplete, reports[0].Status)
	assert.Contains(t, reports[0].Message, "iterations")
	assert.False(t, reports[0].SanityFailed)
}

const walkerSrc = `
contract Walker {
    uint256 steps;

    function walk() external {
        uint256 i = 0;
        while (i < 2) {
            i = i + 1;
        }
        steps = i;
    }
}
`

func Test_InvariantLoopBoundIncomplete(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, walkerSrc, `
invariant stepsBounded() steps <= 2;
`, "Walker", func(cfg *config.Config) { cfg.LoopIter = 1 })
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusIncomplete, reports[0].Status)
	assert.Contains(t, reports[0].Message, "iterations")
}

func Test_HookRequireNarrows(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	// a require in a hook body excludes the divergent states; it must not
	// fork a revert path of the enclosing call
	reports := runVerification(t, counterSrc, `
methods {
    function get() external returns (uint256);
}

ghost uint256 mirror;

hook Sload uint256 v count {
    require mirror == v;
}

rule hookRequireRefines(env e) {
    get@withrevert(e);
    assert !lastReverted;
    assert mirror == get(e);
}
`, "Counter", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

func Test_GhostAxiomHoldsAfterHavoc(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	// havoc replaces the regular ghost symbols, but the standing axioms
	// still constrain the fresh ones
	reports := runVerification(t, linkedSrc, `
methods {
    function stir() external;
}

ghost uint256 g {
    axiom g < 10;
}

rule axiomHoldsAfterHavoc(env e) {
    stir(e);
    assert g < 10;
}
`, "Caller", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

const registrySrc = `
contract Registry {
    mapping(uint256 => uint256) entries;

    constructor(uint256 who) {
        entries[who] = 2;
    }

    function nop() external {
    }
}
`

func Test_InvariantBaseSeesAliasedMappingKey(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	// the predicate's symbolic key may alias the key the constructor wrote
	reports := runVerification(t, registrySrc, `
invariant entriesSmall(uint256 k) entries[k] <= 1;
`, "Registry", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusViolated, reports[0].Status)
	assert.Contains(t, reports[0].Message, "base case")
}

func Test_InvariantOverWrittenMappingVerified(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	src := `
contract Registry {
    mapping(uint256 => uint256) entries;

    constructor(uint256 who) {
        entries[who] = 1;
    }

    function nop() external {
    }
}
`
	reports := runVerification(t, src, `
invariant entriesSmall(uint256 k) entries[k] <= 1;
`, "Registry", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

const boundedSrc = `
contract Bounded {
    uint256 count;

    function bump() external {
        require(count < 10);
        count = count + 1;
    }

    function smash() external {
        count = 42;
    }
}
`

func Test_InvariantPreserved(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	src := `
contract Bounded {
    uint256 count;

    function bump() external {
        require(count < 10);
        count = count + 1;
    }
}
`
	reports := runVerification(t, src, `
invariant countBounded() count <= 10;
`, "Bounded", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

func Test_InvariantNotPreserved(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, boundedSrc, `
invariant countBounded() count <= 10;
`, "Bounded", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusViolated, reports[0].Status)
	assert.Contains(t, reports[0].Message, "not preserved by smash")
}

func Test_InvariantBaseCaseViolated(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	src := `
contract Seeded {
    uint256 count;

    constructor() {
        count = 5;
    }

    function nop() external {
    }
}
`
	reports := runVerification(t, src, `
invariant startsSmall() count <= 3;
`, "Seeded", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusViolated, reports[0].Status)
	assert.Contains(t, reports[0].Message, "base case")
}

func Test_InvariantWithPreservedBlock(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	src := `
contract Stepper {
    uint256 count;

    function add(uint256 a) external {
        count = count + a;
    }
}
`
	// without the preserved bound the addition can overflow past the limit
	reports := runVerification(t, src, `
invariant neverHuge() count <= 1000 {
    preserved add(uint256 a) with (env e) {
        require a == 0;
    }
}
`, "Stepper", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
}

func Test_RuleFilterSelects(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, counterSrc, counterMethods+`
rule first(env e) {
    assert true;
}

rule second(env e) {
    assert true;
}
`, "Counter", func(cfg *config.Config) { cfg.Rules = []string{"second"} })
	require.Len(t, reports, 1)
	assert.Equal(t, "second", reports[0].Name)
}

func Test_RuleVacuousSanity(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	reports := runVerification(t, counterSrc, counterMethods+`
rule contradiction(env e) {
    require get() > 5;
    require get() < 5;
    assert false;
}
`, "Counter", nil)
	require.Len(t, reports, 1)
	assert.Equal(t, report.StatusVerified, reports[0].Status)
	assert.True(t, reports[0].SanityFailed)
}
