package pb

import (
	"context"
)

// DefaultNodeBudget bounds the number of search nodes explored before the
// solver gives up with ErrBudgetExhausted.
const DefaultNodeBudget uint64 = 8_000_000

type backtrackSolver struct {
	budget uint64
}

// NewBacktrackSolver returns an exact in-process solver: propagation-driven
// backtracking over the linear constraints. It proves satisfiability or
// unsatisfiability for every instance it finishes within its node budget.
func NewBacktrackSolver() Solver {
	return &backtrackSolver{budget: DefaultNodeBudget}
}

// NewBacktrackSolverWithBudget overrides the node budget, mainly for tests
// and for callers enforcing a response-time policy.
func NewBacktrackSolverWithBudget(budget uint64) Solver {
	return &backtrackSolver{budget: budget}
}

type occurrence struct {
	constraint int
	coef       int
}

type searchState struct {
	ins    *Instance
	assign []int8 // -1 unassigned, 0 false, 1 true
	lo     []int  // per-constraint minimum achievable value
	hi     []int  // per-constraint maximum achievable value
	occurs [][]occurrence
	trail  []Var
	nodes  uint64
	budget uint64
}

func (solver *backtrackSolver) Solve(ctx context.Context, ins *Instance) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := newSearchState(ins, solver.budget)

	// Constraints over an empty term list are settled immediately.
	for i := range ins.Constraints {
		if len(ins.Constraints[i].Terms) == 0 && !state.settled(i) {
			return nil, nil
		}
	}

	if !state.propagate(allConstraints(len(ins.Constraints))) {
		return nil, nil
	}

	found, err := state.search(ctx)
	if err != nil {
		return nil, err
	} else if !found {
		return nil, nil
	}

	solution := make(Solution, ins.Variables)
	for v, value := range state.assign {
		solution[v] = value == 1
	}
	return solution, nil
}

func newSearchState(ins *Instance, budget uint64) *searchState {
	state := &searchState{
		ins:    ins,
		assign: make([]int8, ins.Variables),
		lo:     make([]int, len(ins.Constraints)),
		hi:     make([]int, len(ins.Constraints)),
		occurs: make([][]occurrence, ins.Variables),
		budget: budget,
	}

	for v := range state.assign {
		state.assign[v] = -1
	}

	for i, constraint := range ins.Constraints {
		for _, term := range constraint.Terms {
			state.occurs[term.Var] = append(state.occurs[term.Var], occurrence{constraint: i, coef: term.Coef})
			if term.Coef > 0 {
				state.hi[i] += term.Coef
			} else {
				state.lo[i] += term.Coef
			}
		}
	}

	return state
}

func allConstraints(n int) []int {
	queue := make([]int, n)
	for i := range queue {
		queue[i] = i
	}
	return queue
}

func (state *searchState) search(ctx context.Context) (bool, error) {
	state.nodes++
	if state.nodes&1023 == 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}
	if state.nodes > state.budget {
		return false, ErrBudgetExhausted
	}

	variable, preferred, open := state.pickBranch()
	if !open { // every constraint is settled
		return true, nil
	}

	for _, value := range [2]int8{preferred, 1 - preferred} {
		mark := len(state.trail)
		if state.set(variable, value) && state.propagate(state.touched(variable)) {
			found, err := state.search(ctx)
			if err != nil {
				return false, err
			} else if found {
				return true, nil
			}
		}
		state.undo(mark)
	}

	return false, nil
}

// set assigns the variable and tightens the achievable bounds of every
// constraint it occurs in. It reports false on an immediate violation.
func (state *searchState) set(variable Var, value int8) bool {
	state.assign[variable] = value
	state.trail = append(state.trail, variable)

	violated := false
	for _, occ := range state.occurs[variable] {
		if occ.coef > 0 {
			if value == 1 {
				state.lo[occ.constraint] += occ.coef
			} else {
				state.hi[occ.constraint] -= occ.coef
			}
		} else {
			if value == 1 {
				state.hi[occ.constraint] += occ.coef
			} else {
				state.lo[occ.constraint] -= occ.coef
			}
		}
		if state.violated(occ.constraint) {
			violated = true
		}
	}

	return !violated
}

func (state *searchState) undo(mark int) {
	for len(state.trail) > mark {
		variable := state.trail[len(state.trail)-1]
		state.trail = state.trail[:len(state.trail)-1]
		value := state.assign[variable]
		state.assign[variable] = -1

		for _, occ := range state.occurs[variable] {
			if occ.coef > 0 {
				if value == 1 {
					state.lo[occ.constraint] -= occ.coef
				} else {
					state.hi[occ.constraint] += occ.coef
				}
			} else {
				if value == 1 {
					state.hi[occ.constraint] -= occ.coef
				} else {
					state.lo[occ.constraint] += occ.coef
				}
			}
		}
	}
}

// propagate fixes every variable whose alternative value would violate some
// constraint in the queue, cascading until a fixpoint or a conflict.
func (state *searchState) propagate(queue []int) bool {
	for len(queue) > 0 {
		index := queue[0]
		queue = queue[1:]

		for _, term := range state.ins.Constraints[index].Terms {
			if state.assign[term.Var] != -1 {
				continue
			}

			allowsTrue := state.allows(index, term, 1)
			allowsFalse := state.allows(index, term, 0)

			switch {
			case !allowsTrue && !allowsFalse:
				return false
			case !allowsTrue:
				if !state.set(term.Var, 0) {
					return false
				}
				queue = append(queue, state.touched(term.Var)...)
			case !allowsFalse:
				if !state.set(term.Var, 1) {
					return false
				}
				queue = append(queue, state.touched(term.Var)...)
			}
		}
	}

	return true
}

// allows reports whether fixing the term's variable to value keeps the
// constraint locally satisfiable.
func (state *searchState) allows(index int, term Term, value int8) bool {
	lo, hi := state.lo[index], state.hi[index]
	if term.Coef > 0 {
		if value == 1 {
			lo += term.Coef
		} else {
			hi -= term.Coef
		}
	} else {
		if value == 1 {
			hi += term.Coef
		} else {
			lo -= term.Coef
		}
	}

	constraint := state.ins.Constraints[index]
	switch constraint.Op {
	case LE:
		return lo <= constraint.Bound
	case GE:
		return hi >= constraint.Bound
	default:
		return lo <= constraint.Bound && hi >= constraint.Bound
	}
}

func (state *searchState) violated(index int) bool {
	constraint := state.ins.Constraints[index]
	switch constraint.Op {
	case LE:
		return state.lo[index] > constraint.Bound
	case GE:
		return state.hi[index] < constraint.Bound
	default:
		return state.lo[index] > constraint.Bound || state.hi[index] < constraint.Bound
	}
}

// settled reports whether the constraint holds no matter how its remaining
// variables are assigned.
func (state *searchState) settled(index int) bool {
	constraint := state.ins.Constraints[index]
	switch constraint.Op {
	case LE:
		return state.hi[index] <= constraint.Bound
	case GE:
		return state.lo[index] >= constraint.Bound
	default:
		return state.lo[index] == constraint.Bound && state.hi[index] == constraint.Bound
	}
}

// pickBranch selects the unsettled constraint with the fewest free variables
// and branches on its first free variable, preferring the value that moves the
// constraint towards satisfaction.
func (state *searchState) pickBranch() (Var, int8, bool) {
	bestConstraint := -1
	bestFree := 0

	for i := range state.ins.Constraints {
		if state.settled(i) {
			continue
		}

		free := 0
		for _, term := range state.ins.Constraints[i].Terms {
			if state.assign[term.Var] == -1 {
				free++
			}
		}
		if bestConstraint == -1 || free < bestFree {
			bestConstraint, bestFree = i, free
		}
	}

	if bestConstraint == -1 {
		return 0, 0, false
	}

	constraint := state.ins.Constraints[bestConstraint]
	for _, term := range constraint.Terms {
		if state.assign[term.Var] != -1 {
			continue
		}

		needsMore := constraint.Op != LE && state.lo[bestConstraint] < constraint.Bound
		preferred := int8(0)
		if needsMore == (term.Coef > 0) {
			preferred = 1
		}
		return term.Var, preferred, true
	}

	// Unsettled constraints always retain a free variable: with all variables
	// assigned lo == hi, which is either satisfied (settled) or a violation
	// caught when the last variable was set.
	return 0, 0, false
}

func (state *searchState) touched(variable Var) []int {
	touched := make([]int, 0, len(state.occurs[variable]))
	for _, occ := range state.occurs[variable] {
		touched = append(touched, occ.constraint)
	}
	return touched
}
