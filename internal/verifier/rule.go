package verifier

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"gprover/internal/lang"
	"gprover/internal/report"
	"gprover/internal/smt"
	"gprover/internal/state"
)

// checkRule explores a rule body from an arbitrary pre-state and discharges
// the recorded obligations. The pre-state is fully unconstrained: every
// storage slot of every contract and every ghost starts symbolic.
func (v *Verifier) checkRule(rule *lang.RuleDecl) *report.Report {
	started := time.Now()
	rep := &report.Report{
		Name:   rule.Name,
		Kind:   "rule",
		Status: report.StatusVerified,
	}
	defer func() { rep.Duration = time.Since(started) }()

	e := v.newEngine()

	contracts := make(map[string]*state.Storage)
	var conds []*smt.Bool
	for _, name := range v.system.ContractNames() {
		c, _ := v.system.Contract(name)
		storage, storageConds := state.NewSymbolicStorage(c, "pre")
		contracts[name] = storage
		conds = append(conds, storageConds...)
	}
	ghosts, ghostConds := v.initialGhosts()
	conds = append(conds, ghostConds...)

	gs := state.NewGlobalState(contracts, ghosts)
	gs.AddConstraints(conds...)
	gs.PushFrame(state.NewFrame(state.SpecFrame, v.target.Name, nil))

	if !runStatus(v.assumeAxioms(e, gs, false), rep) {
		return rep
	}
	bindRuleParams(gs, rule.Params)

	leaves, err := e.ExecBlock(gs, rule.Body)
	if !runStatus(err, rep) {
		return rep
	}
	if len(leaves) == 0 && len(e.LoopBoundObligations()) == 0 {
		// every path was pruned; nothing was checked
		rep.SanityFailed = true
		log.WithField("rule", rule.Name).Warn("no feasible path survived the rule body")
	}

	discharge(append(drain(leaves), e.LoopBoundObligations()...), rep)
	return rep
}

// bindRuleParams gives every rule parameter a fresh unconstrained symbol;
// env parameters become fresh call environments.
func bindRuleParams(gs *state.GlobalState, params []lang.Param) {
	frame := gs.CurrentFrame()
	for _, param := range params {
		if param.Type.Kind == lang.TypeEnv {
			frame.Envs[param.Name] = state.NewEnviroment(
				fmt.Sprintf("%s_%s", param.Name, state.NextSymID()))
			continue
		}
		frame.Vars[param.Name] = freshParam(param)
	}
}

func freshParam(param lang.Param) smt.StorableType {
	label := fmt.Sprintf("%s_%s", param.Name, state.NextSymID())
	if param.Type.Kind == lang.TypeBool {
		return smt.NewBool(label)
	}
	return smt.NewBitVec(label, smt.DefaultBitVecSize)
}
