// Package verifier drives the checks: one run per rule and per invariant,
// building the initial symbolic state, draining the explored paths and
// discharging the recorded solver obligations into reports.
package verifier

import (
	"time"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gprover/internal/config"
	"gprover/internal/contract"
	"gprover/internal/engine"
	"gprover/internal/funcs"
	"gprover/internal/report"
	"gprover/internal/smt"
	"gprover/internal/spec"
	"gprover/internal/state"
	"gprover/internal/strategy"
)

type Verifier struct {
	system *contract.System
	spec   *spec.Spec
	cfg    *config.Config
	target *contract.Contract
}

func New(system *contract.System, sp *spec.Spec, cfg *config.Config) (*Verifier, error) {
	target, ok := system.Contract(cfg.Verify)
	if !ok {
		return nil, errors.Errorf("contract under verification %q not found", cfg.Verify)
	}
	return &Verifier{
		system: system,
		spec:   sp,
		cfg:    cfg,
		target: target,
	}, nil
}

// Run checks every selected rule and invariant. Runs are sequential: the
// solver's term table is process-global and not safe for concurrent use.
func (v *Verifier) Run() []*report.Report {
	var reports []*report.Report
	for _, rule := range v.spec.Rules {
		if !v.cfg.RuleSelected(rule.Name) {
			continue
		}
		log.WithField("rule", rule.Name).Info("checking rule")
		reports = append(reports, v.checkRule(rule))
	}
	for _, inv := range v.spec.Invariants {
		if !v.cfg.RuleSelected(inv.Name) {
			continue
		}
		log.WithField("invariant", inv.Name).Info("checking invariant")
		reports = append(reports, v.checkInvariant(inv))
	}
	return reports
}

// newEngine resets the per-run global state and returns an engine with the
// timeout armed.
func (v *Verifier) newEngine() *engine.Engine {
	state.ResetCounter()
	funcs.Kfm.Reset()
	e := engine.New(v.system, v.spec, v.cfg, v.target)
	e.SetDeadline(time.Now().Add(time.Duration(v.cfg.Timeout) * time.Second))
	return e
}

// initialGhosts builds fresh unconstrained ghost state; every ghost starts
// arbitrary at the beginning of a run.
func (v *Verifier) initialGhosts() (*state.GhostState, []*smt.Bool) {
	ghosts := state.NewGhostState(v.spec.Ghosts, v.spec.GhostOrder)
	conds := ghosts.InitFresh("init")
	return ghosts, conds
}

// assumeAxioms narrows the state by each ghost's standing axioms, and by
// the init_state axioms too when initState is set.
func (v *Verifier) assumeAxioms(e *engine.Engine, gs *state.GlobalState, initState bool) error {
	return e.AssumeGhostAxioms(gs, initState)
}

// drain pulls every leaf state off the worklist and collects its recorded
// obligations, deduplicating the ones forked paths share.
func drain(leaves []*state.GlobalState) []*state.Obligation {
	worklist := strategy.NewDFS()
	if err := worklist.Push(leaves...); err != nil {
		log.WithError(err).Error("worklist push failed")
		return nil
	}
	seen := make(map[int]bool)
	var obligations []*state.Obligation
	for worklist.HasNext() {
		gs, err := worklist.Pop()
		if err != nil {
			break
		}
		for _, ob := range gs.Obligations {
			if seen[ob.ID] {
				continue
			}
			seen[ob.ID] = true
			obligations = append(obligations, ob)
		}
	}
	return obligations
}

// discharge runs the recorded obligations through the solver and fills in
// the report. Asserts must be unsat, each satisfy statement needs one sat
// instance, and a feasible loop bound condition marks the run incomplete.
func discharge(obligations []*state.Obligation, rep *report.Report) {
	satisfyGroups := make(map[interface{}][]*state.Obligation)
	var satisfyOrder []interface{}

	for _, ob := range obligations {
		switch ob.Kind {
		case state.ObAssert:
			status, model, err := state.NewConstraints(ob.Conds...).CheckWith()
			if err != nil {
				rep.Status = report.StatusError
				rep.Message = err.Error()
				return
			}
			switch status {
			case yices2.StatusSat:
				rep.Status = report.StatusViolated
				rep.Message = ob.Message
				addWitness(rep, ob, model)
				return
			case yices2.StatusUnsat:
			default:
				rep.Status = report.StatusIncomplete
				rep.Message = "solver returned unknown for: " + ob.Message
			}
		case state.ObLoopBound:
			status, _, err := state.NewConstraints(ob.Conds...).CheckWith()
			if err != nil {
				rep.Status = report.StatusError
				rep.Message = err.Error()
				return
			}
			if status != yices2.StatusUnsat {
				rep.Status = report.StatusIncomplete
				rep.Message = ob.Message
			}
		case state.ObSatisfy:
			if _, ok := satisfyGroups[ob.SatisfyKey]; !ok {
				satisfyOrder = append(satisfyOrder, ob.SatisfyKey)
			}
			satisfyGroups[ob.SatisfyKey] = append(satisfyGroups[ob.SatisfyKey], ob)
		}
	}

	for _, key := range satisfyOrder {
		group := satisfyGroups[key]
		witnessed := false
		sawUnknown := false
		for _, ob := range group {
			status, _, err := state.NewConstraints(ob.Conds...).CheckWith()
			if err != nil {
				rep.Status = report.StatusError
				rep.Message = err.Error()
				return
			}
			if status == yices2.StatusSat {
				witnessed = true
				break
			}
			if status != yices2.StatusUnsat {
				sawUnknown = true
			}
		}
		if witnessed {
			continue
		}
		if sawUnknown {
			rep.Status = report.StatusIncomplete
			rep.Message = "solver returned unknown for: " + group[0].Message
			continue
		}
		rep.Status = report.StatusViolated
		rep.Message = group[0].Message + ": no witnessing execution exists"
		return
	}
}

func addWitness(rep *report.Report, ob *state.Obligation, model *yices2.ModelT) {
	for name, bv := range ob.Named {
		if value := smt.EvalBitVec(model, bv); value != nil {
			rep.AddWitness(name, value.String())
		}
	}
	rep.SortWitness()
}

func runStatus(err error, rep *report.Report) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, engine.ErrTimeout) {
		rep.Status = report.StatusIncomplete
		rep.Message = "timeout exceeded"
	} else {
		rep.Status = report.StatusError
		rep.Message = err.Error()
	}
	return false
}
