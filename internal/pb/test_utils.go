package pb

import "math/rand/v2"

// GenerateInstance builds a random pseudo-boolean instance with the given
// number of variables and cardinality constraints. Bounds are drawn so the
// instance has a reasonable chance of being satisfiable, which keeps solver
// tests exercising both verdicts.
func GenerateInstance(variables uint32, constraints int) *Instance {
	ins := &Instance{Variables: variables}

	for range constraints {
		vars := make([]Var, 0, variables)
		for v := range variables {
			if rand.Float32() < 0.5 {
				vars = append(vars, Var(v))
			}
		}
		if len(vars) == 0 {
			vars = append(vars, Var(rand.Uint32N(variables)))
		}

		switch rand.IntN(3) {
		case 0:
			ins.Add(Sum(vars, LE, rand.IntN(len(vars)+1)))
		case 1:
			ins.Add(Sum(vars, GE, rand.IntN(len(vars)+1)))
		default:
			ins.Add(Sum(vars, EQ, rand.IntN(len(vars)+1)))
		}
	}

	return ins
}
