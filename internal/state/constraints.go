package state

import (
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"

	"gprover/internal/funcs"
	"gprover/internal/smt"
)

// Constraint is the ordered path condition of one execution path.
type Constraint struct {
	constraints []*smt.Bool
}

func NewConstraints(constraints ...*smt.Bool) *Constraint {
	c := &Constraint{
		constraints: make([]*smt.Bool, len(constraints)),
	}
	copy(c.constraints, constraints)
	return c
}

func (c *Constraint) AppendBool(val *smt.Bool) {
	c.constraints = append(c.constraints, val)
}

func (c *Constraint) AppendBools(values ...*smt.Bool) {
	c.constraints = append(c.constraints, values...)
}

func (c *Constraint) GetConstraints() []*smt.Bool {
	return c.constraints
}

func (c *Constraint) Size() int {
	return len(c.constraints)
}

func (c *Constraint) Clone() *Constraint {
	return NewConstraints(c.constraints...)
}

// IsPossible checks the path condition for satisfiability with a fresh
// solver context. Infeasible forks are pruned on this answer.
func (c *Constraint) IsPossible() bool {
	solver := smt.NewSolver()
	status, _, _ := solver.Check(c.GetAllConstraintTerms()...)
	return status != yices2.StatusUnsat
}

// GetAllConstraintTerms includes the keccak function manager's accumulated
// side conditions, which must hold in every query that mentions a hash.
func (c *Constraint) GetAllConstraintTerms() []yices2.TermT {
	result := make([]yices2.TermT, 0, len(c.constraints)+1)
	for i := range c.constraints {
		result = append(result, c.constraints[i].GetRaw())
	}
	result = append(result, funcs.Kfm.CreateConditions().GetRaw())
	return result
}

// CheckWith solves path condition plus extra conditions, returning the model
// on sat for counterexample extraction.
func (c *Constraint) CheckWith(extra ...*smt.Bool) (yices2.SmtStatusT, *yices2.ModelT, error) {
	terms := c.GetAllConstraintTerms()
	for _, cond := range extra {
		terms = append(terms, cond.GetRaw())
	}
	solver := smt.NewSolver()
	return solver.Check(terms...)
}
