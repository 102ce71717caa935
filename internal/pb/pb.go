package pb

import (
	"fmt"
	"strings"
)

// Var identifies a boolean decision variable of an Instance. Variables are
// zero-based and only exist relative to the instance that declared them.
type Var uint32

type Op int

const (
	LE Op = iota // sum <= Bound
	GE           // sum >= Bound
	EQ           // sum == Bound
)

// Term is a single weighted variable inside a linear constraint.
type Term struct {
	Var  Var
	Coef int
}

// Constraint is a linear (pseudo-boolean) constraint: the weighted sum of its
// terms compared against Bound.
type Constraint struct {
	Terms []Term
	Op    Op
	Bound int
}

// Instance is a pseudo-boolean satisfaction instance: a number of boolean
// variables and a set of linear constraints over them. There is no objective;
// any assignment satisfying every constraint is a valid solution.
type Instance struct {
	Variables   uint32
	Constraints []Constraint
}

// Solution assigns a truth value to every variable of an instance.
type Solution []bool

// NewVar declares a fresh variable and returns its identifier.
func (ins *Instance) NewVar() Var {
	v := Var(ins.Variables)
	ins.Variables++
	return v
}

func (ins *Instance) Add(constraint Constraint) {
	ins.Constraints = append(ins.Constraints, constraint)
}

// Sum builds a constraint over unit-weight variables.
func Sum(vars []Var, op Op, bound int) Constraint {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coef: 1}
	}
	return Constraint{Terms: terms, Op: op, Bound: bound}
}

// ToOPB serializes the instance in the OPB pseudo-boolean text format, the
// counterpart of DIMACS-CNF for linear constraints, so the instance can be fed
// to an external pseudo-boolean solver. OPB only admits ">=" and "=", hence
// LE constraints are negated on the way out. Variables are written one-based.
func (ins *Instance) ToOPB() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "* #variable= %d #constraint= %d\n", ins.Variables, len(ins.Constraints))

	for _, constraint := range ins.Constraints {
		sign, relation := 1, ">="
		switch constraint.Op {
		case LE:
			sign = -1
		case EQ:
			relation = "="
		}

		for _, term := range constraint.Terms {
			fmt.Fprintf(&builder, "%+d x%d ", sign*term.Coef, term.Var+1)
		}
		fmt.Fprintf(&builder, "%s %d;\n", relation, sign*constraint.Bound)
	}

	return builder.String()
}

// Check reports whether the solution satisfies every constraint of the
// instance.
func Check(ins *Instance, solution Solution) bool {
	if uint32(len(solution)) < ins.Variables {
		return false
	}

	for _, constraint := range ins.Constraints {
		value := 0
		for _, term := range constraint.Terms {
			if solution[term.Var] {
				value += term.Coef
			}
		}

		switch constraint.Op {
		case LE:
			if value > constraint.Bound {
				return false
			}
		case GE:
			if value < constraint.Bound {
				return false
			}
		case EQ:
			if value != constraint.Bound {
				return false
			}
		}
	}

	return true
}
