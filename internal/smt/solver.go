package smt

import (
	"fmt"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

type Solver struct {
	ctx yices2.ContextT
}

func NewSolver() *Solver {
	s := &Solver{
		ctx: yices2.ContextT{},
	}
	yices2.InitContext(yices2.ConfigT{}, &s.ctx)
	return s
}

func (s *Solver) Check(terms ...yices2.TermT) (yices2.SmtStatusT, *yices2.ModelT, error) {
	errorcode := yices2.AssertFormulas(s.ctx, terms)
	if errorcode < 0 {
		return yices2.StatusError, nil, fmt.Errorf("%s", yices2.ErrorString())
	}
	status := yices2.CheckContext(s.ctx, yices2.ParamT{})
	if status == yices2.StatusSat {
		return status, yices2.GetModel(s.ctx, 1), nil
	}
	return status, nil, nil
}

// CheckBools is Check over wrapped conditions.
func (s *Solver) CheckBools(conds ...*Bool) (yices2.SmtStatusT, *yices2.ModelT, error) {
	terms := make([]yices2.TermT, len(conds))
	for i := range conds {
		terms[i] = conds[i].GetRaw()
	}
	return s.Check(terms...)
}
