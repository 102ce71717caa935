package schedule

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"termtable/internal/pb"
)

// varKey identifies one legal (section, course, day, slot, room) combination.
type varKey struct {
	Section string
	Course  string
	Day     string
	Slot    int
	Room    string
}

// varArena assigns a compact solver variable to each legal combination and
// decodes solver positives back into combinations. Only combinations passing
// the kind/group/ledger filters are ever declared, keeping the model sparse.
type varArena struct {
	index   map[varKey]pb.Var
	reverse map[pb.Var]varKey
}

func newVarArena() *varArena {
	return &varArena{
		index:   make(map[varKey]pb.Var),
		reverse: make(map[pb.Var]varKey),
	}
}

func (arena *varArena) declare(ins *pb.Instance, key varKey) pb.Var {
	variable := ins.NewVar()
	arena.index[key] = variable
	arena.reverse[variable] = key
	return variable
}

// slotKey identifies one (kind, room, day, slot) cell for exclusivity.
type slotKey struct {
	Kind RoomKind
	Room string
	Day  string
	Slot int
}

// sectionSlotKey identifies one (section, day, kind, slot) cell: a section
// can attend at most one course there.
type sectionSlotKey struct {
	Section string
	Day     string
	Kind    RoomKind
	Slot    int
}

// Scheduler builds and solves the constraint model for mandatory courses. It
// is a pure feasibility solver: the first satisfying assignment is returned
// as-is, with no ranking among feasible solutions.
type Scheduler struct {
	grid   Grid
	solver pb.Solver
	log    *zap.Logger
}

func NewScheduler(grid Grid, solver pb.Solver, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{grid: grid, solver: solver, log: log}
}

// model carries everything built for one solve call.
type model struct {
	instance        *pb.Instance
	arena           *varArena
	dayIndicators   map[varKey]pb.Var // keyed by (section, course, day); slot and room zeroed
	courseVars      map[[2]string][]pb.Var
	courseDayVars   map[varKey][]pb.Var
	roomSlotVars    map[slotKey][]pb.Var
	sectionSlotVars map[sectionSlotKey][]pb.Var
}

// Schedule assigns every (section, course) of the request its required weekly
// sessions, honoring the ledger's prior occupancy. It returns a typed failure:
// CapacityError before any search, ErrInfeasible on a proven conflict and
// ErrInconclusive when the search was cancelled or ran out of budget.
func (scheduler *Scheduler) Schedule(ctx context.Context, request Request, roster Roster, ledger *Ledger) (*Result, error) {
	runID := uuid.NewString()
	log := scheduler.log.With(zap.String("run", runID))

	groupRooms := roster.GroupRooms()
	if err := validateGroups(request, groupRooms); err != nil {
		return nil, err
	}

	sections, err := buildAllSections(request)
	if err != nil {
		return nil, err
	}

	if err := scheduler.checkCapacity(request, sections, roster, ledger); err != nil {
		return nil, err
	}

	m := scheduler.buildModel(request, sections, roster, groupRooms, ledger)
	log.Info("constraint model built",
		zap.Uint32("variables", m.instance.Variables),
		zap.Int("constraints", len(m.instance.Constraints)),
	)

	solution, err := scheduler.solver.Solve(ctx, m.instance)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInconclusive, err)
	} else if solution == nil {
		return nil, ErrInfeasible
	}

	assignments := decode(m, solution, coursesByCode(request))
	deltas, occupants := Materialize(assignments)
	log.Info("feasible timetable found", zap.Int("assignments", len(assignments)))

	return &Result{
		RunID:       runID,
		Assignments: assignments,
		Sections:    sections,
		Deltas:      deltas,
		Occupants:   occupants,
	}, nil
}

func validateGroups(request Request, groupRooms map[string][]string) error {
	for _, semester := range request.Semesters {
		for _, course := range request.Courses[semester] {
			if course.Kind == KindLab && course.Group != "" && len(groupRooms[course.Group]) == 0 {
				return &RoomGroupError{Course: course.Code, Group: course.Group}
			}
		}
	}
	return nil
}

func buildAllSections(request Request) (map[int][]string, error) {
	sections := make(map[int][]string, len(request.Semesters))
	for _, semester := range request.Semesters {
		built, err := BuildSections(semester, request.Headcounts[semester], request.SectionSize, request.Program)
		if err != nil {
			return nil, err
		}
		sections[semester] = built
	}
	return sections, nil
}

// checkCapacity is the cheap necessary-not-sufficient filter: aggregate
// session demand per kind against the free cells of the full grid.
func (scheduler *Scheduler) checkCapacity(request Request, sections map[int][]string, roster Roster, ledger *Ledger) error {
	neededTheory, neededLab := 0, 0
	for _, semester := range request.Semesters {
		for _, course := range request.Courses[semester] {
			demand := course.Sessions * len(sections[semester])
			if course.Kind == KindLab {
				neededLab += demand
			} else {
				neededTheory += demand
			}
		}
	}

	availableTheory := ledger.Capacity(KindTheory, roster.TheoryRooms(), scheduler.grid.Days, scheduler.grid.TheorySlots)
	if neededTheory > availableTheory {
		return &CapacityError{Kind: KindTheory, Needed: neededTheory, Available: availableTheory}
	}

	availableLab := ledger.Capacity(KindLab, roster.LabRooms(), scheduler.grid.Days, scheduler.grid.LabSlots)
	if neededLab > availableLab {
		return &CapacityError{Kind: KindLab, Needed: neededLab, Available: availableLab}
	}

	return nil
}

// eligibleRooms applies the kind and group filters: theory courses use theory
// rooms, group-tagged lab courses only their group's rooms and generic lab
// courses only untagged labs.
func eligibleRooms(course Course, roster Roster, groupRooms map[string][]string) []string {
	if course.Kind == KindTheory {
		return roster.TheoryRooms()
	}
	if course.Group != "" {
		return groupRooms[course.Group]
	}
	return roster.GenericLabRooms()
}

func (scheduler *Scheduler) buildModel(
	request Request,
	sections map[int][]string,
	roster Roster,
	groupRooms map[string][]string,
	ledger *Ledger,
) *model {
	m := &model{
		instance:        &pb.Instance{},
		arena:           newVarArena(),
		dayIndicators:   make(map[varKey]pb.Var),
		courseVars:      make(map[[2]string][]pb.Var),
		courseDayVars:   make(map[varKey][]pb.Var),
		roomSlotVars:    make(map[slotKey][]pb.Var),
		sectionSlotVars: make(map[sectionSlotKey][]pb.Var),
	}

	//** Declare decision variables for every legal combination
	for _, semester := range request.Semesters {
		for _, section := range sections[semester] {
			for _, course := range request.Courses[semester] {
				rooms := eligibleRooms(course, roster, groupRooms)
				slots := scheduler.grid.Slots(course.Kind)

				for _, day := range scheduler.grid.Days {
					for _, slot := range slots {
						for _, room := range rooms {
							if !ledger.IsFree(course.Kind, room, day, slot) {
								continue
							}

							key := varKey{Section: section, Course: course.Code, Day: day, Slot: slot, Room: room}
							variable := m.arena.declare(m.instance, key)

							m.courseVars[[2]string{section, course.Code}] = append(m.courseVars[[2]string{section, course.Code}], variable)
							dayKey := varKey{Section: section, Course: course.Code, Day: day}
							m.courseDayVars[dayKey] = append(m.courseDayVars[dayKey], variable)
							cell := slotKey{Kind: course.Kind, Room: room, Day: day, Slot: slot}
							m.roomSlotVars[cell] = append(m.roomSlotVars[cell], variable)
							attend := sectionSlotKey{Section: section, Day: day, Kind: course.Kind, Slot: slot}
							m.sectionSlotVars[attend] = append(m.sectionSlotVars[attend], variable)
						}
					}
				}

				if course.Kind == KindTheory {
					for _, day := range scheduler.grid.Days {
						dayKey := varKey{Section: section, Course: course.Code, Day: day}
						m.dayIndicators[dayKey] = m.instance.NewVar()
					}
				}
			}
		}
	}

	//** Constraint families
	scheduler.sessionCountConstraints(m, request, sections)
	scheduler.distinctDayConstraints(m, request, sections)
	scheduler.roomExclusivityConstraints(m)
	scheduler.sectionSlotConstraints(m)
	scheduler.overlapConstraints(m, request, sections)

	return m
}

// sessionCountConstraints: every (section, course) places exactly its
// required number of sessions.
func (scheduler *Scheduler) sessionCountConstraints(m *model, request Request, sections map[int][]string) {
	for _, semester := range request.Semesters {
		for _, section := range sections[semester] {
			for _, course := range request.Courses[semester] {
				vars := m.courseVars[[2]string{section, course.Code}]
				m.instance.Add(pb.Sum(vars, pb.EQ, course.Sessions))
			}
		}
	}
}

// distinctDayConstraints: a theory course's sessions land on pairwise
// distinct days. The day indicator is linked to its day's decision variables
// by a pair of inequalities, and the indicators sum to the session count.
func (scheduler *Scheduler) distinctDayConstraints(m *model, request Request, sections map[int][]string) {
	slotCount := len(scheduler.grid.TheorySlots)

	for _, semester := range request.Semesters {
		for _, section := range sections[semester] {
			for _, course := range request.Courses[semester] {
				if course.Kind != KindTheory {
					continue
				}

				indicators := make([]pb.Var, 0, len(scheduler.grid.Days))
				for _, day := range scheduler.grid.Days {
					dayKey := varKey{Section: section, Course: course.Code, Day: day}
					indicator := m.dayIndicators[dayKey]
					indicators = append(indicators, indicator)

					// indicator <= sum(day vars) <= slotCount * indicator
					terms := make([]pb.Term, 0, len(m.courseDayVars[dayKey])+1)
					for _, variable := range m.courseDayVars[dayKey] {
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

				m.instance.Add(pb.Sum(indicators, pb.EQ, course.Sessions))
			}
		}
	}
}

// roomExclusivityConstraints: at most one occupant per (room, day, slot),
// across every section and course of the matching kind.
func (scheduler *Scheduler) roomExclusivityConstraints(m *model) {
	for _, vars := range m.roomSlotVars {
		if len(vars) > 1 {
			m.instance.Add(pb.Sum(vars, pb.LE, 1))
		}
	}
}

// sectionSlotConstraints: a section attends at most one theory course per
// theory slot and one lab course per lab slot on any day.
func (scheduler *Scheduler) sectionSlotConstraints(m *model) {
	for _, vars := range m.sectionSlotVars {
		if len(vars) > 1 {
			m.instance.Add(pb.Sum(vars, pb.LE, 1))
		}
	}
}

// overlapConstraints: a section cannot sit a lab at slot L and a theory at a
// slot T that L temporally overlaps. Together with the per-slot section
// constraints this is the aggregated form of the pairwise exclusion.
func (scheduler *Scheduler) overlapConstraints(m *model, request Request, sections map[int][]string) {
	for _, semester := range request.Semesters {
		for _, section := range sections[semester] {
			for _, day := range scheduler.grid.Days {
				for _, labSlot := range scheduler.grid.LabSlots {
					labVars := m.sectionSlotVars[sectionSlotKey{Section: section, Day: day, Kind: KindLab, Slot: labSlot}]
					if len(labVars) == 0 {
						continue
					}

					for _, theorySlot := range scheduler.grid.Overlap[labSlot] {
						theoryVars := m.sectionSlotVars[sectionSlotKey{Section: section, Day: day, Kind: KindTheory, Slot: theorySlot}]
						if len(theoryVars) == 0 {
							continue
						}

						combined := make([]pb.Var, 0, len(labVars)+len(theoryVars))
						combined = append(combined, labVars...)
						combined = append(combined, theoryVars...)
						m.instance.Add(pb.Sum(combined, pb.LE, 1))
					}
				}
			}
		}
	}
}

func coursesByCode(request Request) map[string]Course {
	courses := make(map[string]Course)
	for _, semester := range request.Semesters {
		for _, course := range request.Courses[semester] {
			courses[course.Code] = course
		}
	}
	return courses
}

// decode turns the solver's positive decision variables back into
// assignments; indicator variables carry no placement and are skipped.
func decode(m *model, solution pb.Solution, courses map[string]Course) []Assignment {
	assignments := make([]Assignment, 0)
	for variable, key := range m.arena.reverse {
		if !solution[variable] {
			continue
		}
		assignments = append(assignments, Assignment{
			Section: key.Section,
			Course:  key.Course,
			Kind:    courses[key.Course].Kind,
			Day:     key.Day,
			Slot:    key.Slot,
			Room:    key.Room,
			Label:   fmt.Sprintf("%s-%s", key.Section, key.Course),
		})
	}

	slices.SortFunc(assignments, compareAssignments)
	return assignments
}

func compareAssignments(a, b Assignment) int {
	if c := cmp.Compare(a.Section, b.Section); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Course, b.Course); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Day, b.Day); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Slot, b.Slot); c != 0 {
		return c
	}
	return cmp.Compare(a.Room, b.Room)
}
