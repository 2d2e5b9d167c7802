// Package strategy implements the worklist orderings used to drain
// execution paths.
package strategy

import (
	"gprover/internal/state"
)

type Strategy interface {
	Size() int
	HasNext() bool
	Pop() (*state.GlobalState, error)
	Push(...*state.GlobalState) error
}
