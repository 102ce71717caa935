package schedule

import (
	"context"
	"testing"

	"github.com/onsi/gomega"

	"termtable/internal/pb"
)

// enumerateSolutions exhausts the decision-variable space of a built model:
// after each solution a blocking constraint excludes it and the solver runs
// again, until the instance is unsatisfiable.
func enumerateSolutions(t *testing.T, m *model, courses map[string]Course) [][]Assignment {
	t.Helper()
	solver := pb.NewBacktrackSolver()

	var solutions [][]Assignment
	for {
		solution, err := solver.Solve(context.Background(), m.instance)
		if err != nil {
			t.Fatalf("enumeration failed: %v", err)
		}
		if solution == nil {
			return solutions
		}

		solutions = append(solutions, decode(m, solution, courses))

		// Block this assignment of the decision variables
		terms := make([]pb.Term, 0, len(m.arena.reverse))
		positives := 0
		for variable := range m.arena.reverse {
			if solution[variable] {
				terms = append(terms, pb.Term{Var: variable, Coef: 1})
				positives++
			} else {
				terms = append(terms, pb.Term{Var: variable, Coef: -1})
			}
		}
		m.instance.Add(pb.Constraint{Terms: terms, Op: pb.LE, Bound: positives - 1})
	}
}

func TestOverlapExcludedInEveryFeasibleSolution(t *testing.T) {
	g := gomega.NewWithT(t)

	// One day; lab slot 0 overlaps theory slot 0. The lab course has exactly
	// one possible cell, so every feasible solution must steer the theory
	// course away from the overlapped slot.
	grid := Grid{
		Days:        []string{"Monday"},
		TheorySlots: []int{0, 1},
		LabSlots:    []int{0},
		Overlap:     map[int][]int{0: {0}},
	}
	roster := Roster{Rooms: []Room{{Name: "R1", Kind: KindTheory}, {Name: "L1", Kind: KindLab}}}
	request := Request{
		Semesters: []int{1},
		Courses: map[int][]Course{1: {
			{Code: "TH101", Kind: KindTheory, Sessions: 1},
			{Code: "LB101", Kind: KindLab, Sessions: 1},
		}},
		Headcounts:  map[int]int{1: 10},
		SectionSize: 50,
		Program:     "A",
	}

	scheduler := newTestScheduler(grid)
	sections, err := buildAllSections(request)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	m := scheduler.buildModel(request, sections, roster, roster.GroupRooms(), NewLedger())
	solutions := enumerateSolutions(t, m, coursesByCode(request))

	g.Expect(solutions).NotTo(gomega.BeEmpty(), "fixture should be feasible")

	for _, assignments := range solutions {
		labSlots := make(map[[2]any]bool)
		for _, assignment := range assignments {
			if assignment.Kind == KindLab {
				labSlots[[2]any{assignment.Day, assignment.Slot}] = true
			}
		}
		for _, assignment := range assignments {
			if assignment.Kind != KindTheory {
				continue
			}
			for labSlot, theorySlots := range grid.Overlap {
				if labSlots[[2]any{assignment.Day, labSlot}] {
					g.Expect(theorySlots).NotTo(gomega.ContainElement(assignment.Slot),
						"a theory session coexists with an overlapping lab session")
				}
			}
		}
	}

	// The lab is pinned to its single cell, leaving exactly one legal theory
	// placement: the non-overlapped slot.
	g.Expect(solutions).To(gomega.HaveLen(1))
	for _, assignment := range solutions[0] {
		if assignment.Kind == KindTheory {
			g.Expect(assignment.Slot).To(gomega.Equal(1))
		}
	}
}
