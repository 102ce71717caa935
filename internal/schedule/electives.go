package schedule

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"termtable/internal/pb"
)

const (
	// DefaultElectiveTheorySessions and DefaultElectiveLabSessions are the
	// fixed per-modality session requirements: a theory elective meets twice
	// a week on distinct days, a lab elective once.
	DefaultElectiveTheorySessions = 2
	DefaultElectiveLabSessions    = 1
)

// ElectiveScheduler schedules elective replicas into the capacity left over
// after the core timetable has been folded into the ledger. Each replica
// chooses exactly one modality; electives compete only with each other, never
// with the committed schedule.
type ElectiveScheduler struct {
	grid           Grid
	solver         pb.Solver
	log            *zap.Logger
	TheorySessions int
	LabSessions    int
}

func NewElectiveScheduler(grid Grid, solver pb.Solver, log *zap.Logger) *ElectiveScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ElectiveScheduler{
		grid:           grid,
		solver:         solver,
		log:            log,
		TheorySessions: DefaultElectiveTheorySessions,
		LabSessions:    DefaultElectiveLabSessions,
	}
}

// replicaKey identifies one replica of one elective.
type replicaKey struct {
	Code  string
	Index int
}

type electiveModel struct {
	instance     *pb.Instance
	arena        *varArena // Section field holds the replica label
	modality     map[replicaKey]pb.Var
	indicators   map[varKey]pb.Var
	replicaVars  map[replicaKey]map[RoomKind][]pb.Var
	replicaByDay map[varKey][]pb.Var // theory vars of (replica label, day)
	roomSlotVars map[slotKey][]pb.Var
	kinds        map[pb.Var]RoomKind // kind each decision variable was declared for
}

func replicaLabel(code string, index int) string {
	return fmt.Sprintf("Elective-%s-A%d", code, index+1)
}

// Schedule places every elective replica, or fails with ErrInfeasible /
// ErrInconclusive. The ledger passed in must already contain the committed
// core timetable; only its free cells are candidates.
func (scheduler *ElectiveScheduler) Schedule(ctx context.Context, electives []Elective, roster Roster, ledger *Ledger) (*Result, error) {
	runID := uuid.NewString()
	log := scheduler.log.With(zap.String("run", runID))

	for _, elective := range electives {
		if !elective.Theory && !elective.Lab {
			return nil, fmt.Errorf("elective %s allows no modality", elective.Code)
		}
		if elective.Replicas < 1 {
			return nil, fmt.Errorf("elective %s: replica count must be positive, got %d", elective.Code, elective.Replicas)
		}
	}

	m := scheduler.buildModel(electives, roster, ledger)
	log.Info("elective model built",
		zap.Uint32("variables", m.instance.Variables),
		zap.Int("constraints", len(m.instance.Constraints)),
	)

	solution, err := scheduler.solver.Solve(ctx, m.instance)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInconclusive, err)
	} else if solution == nil {
		return nil, ErrInfeasible
	}

	assignments := scheduler.decode(m, solution)
	deltas, occupants := Materialize(assignments)
	log.Info("feasible elective schedule found", zap.Int("assignments", len(assignments)))

	return &Result{
		RunID:       runID,
		Assignments: assignments,
		Deltas:      deltas,
		Occupants:   occupants,
	}, nil
}

func (scheduler *ElectiveScheduler) buildModel(electives []Elective, roster Roster, ledger *Ledger) *electiveModel {
	m := &electiveModel{
		instance:     &pb.Instance{},
		arena:        newVarArena(),
		modality:     make(map[replicaKey]pb.Var),
		indicators:   make(map[varKey]pb.Var),
		replicaVars:  make(map[replicaKey]map[RoomKind][]pb.Var),
		replicaByDay: make(map[varKey][]pb.Var),
		roomSlotVars: make(map[slotKey][]pb.Var),
		kinds:        make(map[pb.Var]RoomKind),
	}

	rooms := map[RoomKind][]string{
		KindTheory: roster.TheoryRooms(),
		KindLab:    roster.LabRooms(),
	}

	//** Declare modality and decision variables per replica
	for _, elective := range electives {
		for index := range elective.Replicas {
			replica := replicaKey{Code: elective.Code, Index: index}
			label := replicaLabel(elective.Code, index)

			modality := m.instance.NewVar() // 1 => theory, 0 => lab
			m.modality[replica] = modality
			if !elective.Theory {
				m.instance.Add(pb.Sum([]pb.Var{modality}, pb.EQ, 0))
			}
			if !elective.Lab {
				m.instance.Add(pb.Sum([]pb.Var{modality}, pb.EQ, 1))
			}

			m.replicaVars[replica] = map[RoomKind][]pb.Var{}
			for _, kind := range []RoomKind{KindTheory, KindLab} {
				for _, day := range scheduler.grid.Days {
					for _, slot := range scheduler.grid.Slots(kind) {
						for _, room := range rooms[kind] {
							if !ledger.IsFree(kind, room, day, slot) {
								continue
							}

							key := varKey{Section: label, Course: elective.Code, Day: day, Slot: slot, Room: room}
							variable := m.arena.declare(m.instance, key)
							m.kinds[variable] = kind

							m.replicaVars[replica][kind] = append(m.replicaVars[replica][kind], variable)
							cell := slotKey{Kind: kind, Room: room, Day: day, Slot: slot}
							m.roomSlotVars[cell] = append(m.roomSlotVars[cell], variable)
							if kind == KindTheory {
								dayKey := varKey{Section: label, Day: day}
								m.replicaByDay[dayKey] = append(m.replicaByDay[dayKey], variable)
							}

							// A theory placement requires the theory modality and a
							// lab placement the lab one.
							if kind == KindTheory {
								m.instance.Add(pb.Constraint{
									Terms: []pb.Term{{Var: variable, Coef: 1}, {Var: modality, Coef: -1}},
									Op:    pb.LE,
									Bound: 0,
								})
							} else {
								m.instance.Add(pb.Constraint{
									Terms: []pb.Term{{Var: variable, Coef: 1}, {Var: modality, Coef: 1}},
									Op:    pb.LE,
									Bound: 1,
								})
							}
						}
					}
				}
			}

			for _, day := range scheduler.grid.Days {
				m.indicators[varKey{Section: label, Day: day}] = m.instance.NewVar()
			}
		}
	}

	scheduler.sessionConstraints(m, electives)
	scheduler.distinctDayConstraints(m, electives)
	scheduler.roomExclusivityConstraints(m)

	return m
}

// sessionConstraints: a replica consumes exactly the theory session count if
// it chose theory, and exactly the lab session count otherwise.
func (scheduler *ElectiveScheduler) sessionConstraints(m *electiveModel, electives []Elective) {
	for _, elective := range electives {
		for index := range elective.Replicas {
			replica := replicaKey{Code: elective.Code, Index: index}
			modality := m.modality[replica]

			// sum(theory vars) == TheorySessions * modality
			theoryTerms := make([]pb.Term, 0, len(m.replicaVars[replica][KindTheory])+1)
			for _, variable := range m.replicaVars[replica][KindTheory] {
				theoryTerms = append(theoryTerms, pb.Term{Var: variable, Coef: 1})
			}
			theoryTerms = append(theoryTerms, pb.Term{Var: modality, Coef: -scheduler.TheorySessions})
			m.instance.Add(pb.Constraint{Terms: theoryTerms, Op: pb.EQ, Bound: 0})

			// sum(lab vars) == LabSessions * (1 - modality)
			labTerms := make([]pb.Term, 0, len(m.replicaVars[replica][KindLab])+1)
			for _, variable := range m.replicaVars[replica][KindLab] {
				labTerms = append(labTerms, pb.Term{Var: variable, Coef: 1})
			}
			labTerms = append(labTerms, pb.Term{Var: modality, Coef: scheduler.LabSessions})
			m.instance.Add(pb.Constraint{Terms: labTerms, Op: pb.EQ, Bound: scheduler.LabSessions})
		}
	}
}

// distinctDayConstraints: gated by the modality variable. A theory replica
// spreads its sessions across distinct days; a lab replica carries no
// distinct-day requirement.
func (scheduler *ElectiveScheduler) distinctDayConstraints(m *electiveModel, electives []Elective) {
	slotCount := len(scheduler.grid.TheorySlots)

	for _, elective := range electives {
		for index := range elective.Replicas {
			replica := replicaKey{Code: elective.Code, Index: index}
			label := replicaLabel(elective.Code, index)
			modality := m.modality[replica]

			indicators := make([]pb.Var, 0, len(scheduler.grid.Days))
			for _, day := range scheduler.grid.Days {
				dayKey := varKey{Section: label, Day: day}
				indicator := m.indicators[dayKey]
				indicators = append(indicators, indicator)

				terms := make([]pb.Term, 0, len(m.replicaByDay[dayKey])+1)
				for _, variable := range m.replicaByDay[dayKey] {
					terms = append(terms, pb.Term{Var: variable, Coef: 1})
				}
				m.instance.Add(pb.Constraint{
					Terms: append(append([]pb.Term{}, terms...), pb.Term{Var: indicator, Coef: -1}),
					Op:    pb.GE,
					Bound: 0,
				})
				m.instance.Add(pb.Constraint{
					Terms: append(terms, pb.Term{Var: indicator, Coef: -slotCount}),
					Op:    pb.LE,
					Bound: 0,
				})
			}

			// sum(indicators) == TheorySessions * modality
			indicatorTerms := make([]pb.Term, 0, len(indicators)+1)
			for _, indicator := range indicators {
				indicatorTerms = append(indicatorTerms, pb.Term{Var: indicator, Coef: 1})
			}
			indicatorTerms = append(indicatorTerms, pb.Term{Var: modality, Coef: -scheduler.TheorySessions})
			m.instance.Add(pb.Constraint{Terms: indicatorTerms, Op: pb.EQ, Bound: 0})
		}
	}
}

// roomExclusivityConstraints: electives may not double-book a leftover cell
// among themselves; the committed schedule is already excluded by filtering.
func (scheduler *ElectiveScheduler) roomExclusivityConstraints(m *electiveModel) {
	for _, vars := range m.roomSlotVars {
		if len(vars) > 1 {
			m.instance.Add(pb.Sum(vars, pb.LE, 1))
		}
	}
}

func (scheduler *ElectiveScheduler) decode(m *electiveModel, solution pb.Solution) []Assignment {
	assignments := make([]Assignment, 0)
	for variable, key := range m.arena.reverse {
		if !solution[variable] {
			continue
		}

		assignments = append(assignments, Assignment{
			Section: key.Section,
			Course:  key.Course,
			Kind:    m.kinds[variable],
			Day:     key.Day,
			Slot:    key.Slot,
			Room:    key.Room,
			Label:   key.Section,
		})
	}

	slices.SortFunc(assignments, compareAssignments)
	return assignments
}
