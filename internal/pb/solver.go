package pb

import (
	"context"
	"errors"
)

// ErrBudgetExhausted is returned when the search ran out of its node budget
// before reaching a verdict. It must never be confused with unsatisfiability:
// an instance that exhausts the budget may still be satisfiable.
var ErrBudgetExhausted = errors.New("pb: search budget exhausted before a verdict")

type Solver interface {
	// Solve returns a solution of the instance if satisfiable, else returns
	// nil (these are valid outputs where error shall be nil). A cancelled
	// context or an exhausted search budget surfaces as a non-nil error.
	Solve(ctx context.Context, ins *Instance) (Solution, error)
}
