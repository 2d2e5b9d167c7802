package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gprover/internal/contract"
	"gprover/internal/lang"
)

const vaultSrc = `
contract Vault {
    uint256 total;
    mapping(uint256 => uint256) balances;

    function deposit(uint256 who, uint256 amount) external {
        balances[who] = balances[who] + amount;
        total = total + amount;
    }

    function getTotal() external view returns (uint256) {
        return total;
    }
}
`

func loadTarget(t *testing.T) *contract.Contract {
	file, err := lang.ParseContractSource(vaultSrc)
	require.NoError(t, err)
	system, err := contract.Load([]*lang.File{file})
	require.NoError(t, err)
	c, ok := system.Contract("Vault")
	require.True(t, ok)
	return c
}

func loadSpecSource(t *testing.T, src string) (*Spec, error) {
	file, err := lang.ParseSpecSource(src)
	require.NoError(t, err)
	return Load(file, loadTarget(t))
}

func Test_LoadSpec(t *testing.T) {
	sp, err := loadSpecSource(t, `
methods {
    function deposit(uint256, uint256) external;
    function getTotal() external returns (uint256) envfree;
}

ghost uint256 sum;

hook Sstore balances[KEY uint256 k] uint256 v (uint256 old) {
    sum = sum + v - old;
}

rule depositGrows(env e, uint256 who, uint256 amount) {
    uint256 before = getTotal();
    deposit(e, who, amount);
    assert getTotal() >= before;
}
`)
	require.NoError(t, err)
	assert.True(t, sp.IsEnvfree("getTotal"))
	assert.False(t, sp.IsEnvfree("deposit"))
	assert.Len(t, sp.SstoreHooks("balances"), 1)
	assert.Empty(t, sp.SloadHooks("balances"))
	assert.Len(t, sp.Rules, 1)
}

func Test_LoadRejectsRuleWithoutVerdict(t *testing.T) {
	_, err := loadSpecSource(t, `
rule pointless(env e) {
    require true;
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no assert or satisfy")
}

func Test_LoadAcceptsSatisfyOnlyRule(t *testing.T) {
	_, err := loadSpecSource(t, `
rule reachable(env e) {
    satisfy true;
}
`)
	assert.NoError(t, err)
}

func Test_LoadAcceptsNestedVerdict(t *testing.T) {
	_, err := loadSpecSource(t, `
rule nested(env e, uint256 x) {
    if (x > 0) {
        assert x >= 1;
    } else {
        satisfy x == 0;
    }
}
`)
	assert.NoError(t, err)
}

func Test_LoadRejectsUnknownMethod(t *testing.T) {
	_, err := loadSpecSource(t, `
methods {
    function withdraw(uint256) external;
}
rule r { assert true; }
`)
	assert.Error(t, err)
}

func Test_LoadRejectsDuplicateGhost(t *testing.T) {
	_, err := loadSpecSource(t, `
ghost uint256 sum;
ghost uint256 sum;
rule r { assert true; }
`)
	assert.Error(t, err)
}

func Test_LoadRejectsAxiomOverNonGhost(t *testing.T) {
	_, err := loadSpecSource(t, `
ghost uint256 sum {
    axiom sum == total;
}
rule r { assert true; }
`)
	assert.Error(t, err)
}

func Test_LoadRejectsScalarHookWithKey(t *testing.T) {
	_, err := loadSpecSource(t, `
hook Sstore total[KEY uint256 k] uint256 v {
    k = k;
}
rule r { assert true; }
`)
	assert.Error(t, err)
}

func Test_LoadRejectsMappingHookWithoutKey(t *testing.T) {
	_, err := loadSpecSource(t, `
hook Sstore balances uint256 v {
    v = v;
}
rule r { assert true; }
`)
	assert.Error(t, err)
}

func Test_LoadAcceptsSloadHook(t *testing.T) {
	file, err := lang.ParseSpecSource(`
hook Sload uint256 v total {
    v = v;
}
rule r { assert true; }
`)
	require.NoError(t, err)
	_, err = Load(file, loadTarget(t))
	assert.NoError(t, err)
}

func Test_LoadRejectsHookOnUnknownVariable(t *testing.T) {
	_, err := loadSpecSource(t, `
hook Sstore missing uint256 v {
    v = v;
}
rule r { assert true; }
`)
	assert.Error(t, err)
}
