package schedule

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termtable/internal/pb"
)

func newTestElectiveScheduler(grid Grid) *ElectiveScheduler {
	return NewElectiveScheduler(grid, pb.NewBacktrackSolver(), nil)
}

func TestElectivesLabOnlySingleFreeSlot(t *testing.T) {
	// A lab-only elective with one replica and exactly one free lab cell:
	// the modality is forced to lab and the sole cell is taken.
	grid := Grid{
		Days:        []string{"Monday"},
		TheorySlots: []int{0, 1},
		LabSlots:    []int{0, 1},
		Overlap:     map[int][]int{0: {0}, 1: {1}},
	}
	roster := Roster{Rooms: []Room{{Name: "L1", Kind: KindLab}}}
	electives := []Elective{{Code: "CC3501", Name: "Robotics", Lab: true, Replicas: 1}}

	ledger := NewLedger()
	require.NoError(t, ledger.Apply([]Delta{{Kind: KindLab, Room: "L1", Day: "Monday", Slot: 0, Occupant: "prior"}}))

	scheduler := newTestElectiveScheduler(grid)
	scheduler.LabSessions = 1

	result, err := scheduler.Schedule(context.Background(), electives, roster, ledger)
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1)
	assignment := result.Assignments[0]
	assert.Equal(t, KindLab, assignment.Kind)
	assert.Equal(t, "L1", assignment.Room)
	assert.Equal(t, 1, assignment.Slot)
	assert.Equal(t, "Elective-CC3501-A1", assignment.Label)

	theoryCount := lo.CountBy(result.Assignments, func(a Assignment) bool { return a.Kind == KindTheory })
	assert.Zero(t, theoryCount)

	assert.True(t, VerifyElectives(result, electives, roster, ledger, grid, scheduler.TheorySessions, scheduler.LabSessions))
}

func TestElectivesTheoryDistinctDays(t *testing.T) {
	grid := Grid{
		Days:        []string{"Monday", "Tuesday", "Wednesday"},
		TheorySlots: []int{0},
		LabSlots:    []int{0},
		Overlap:     map[int][]int{0: {0}},
	}
	roster := Roster{Rooms: []Room{{Name: "R1", Kind: KindTheory}}}
	electives := []Elective{{Code: "CC4801", Name: "Entrepreneurship", Theory: true, Replicas: 1}}
	ledger := NewLedger()

	scheduler := newTestElectiveScheduler(grid)
	result, err := scheduler.Schedule(context.Background(), electives, roster, ledger)
	require.NoError(t, err)

	require.Len(t, result.Assignments, DefaultElectiveTheorySessions)
	days := lo.Map(result.Assignments, func(a Assignment, _ int) string { return a.Day })
	assert.Len(t, lo.Uniq(days), DefaultElectiveTheorySessions)

	assert.True(t, VerifyElectives(result, electives, roster, ledger, grid, scheduler.TheorySessions, scheduler.LabSessions))
}

func TestElectivesModalityForcedByCapacity(t *testing.T) {
	// Both modalities allowed, but the roster has no theory room: the
	// modality variable must settle on lab.
	grid := Grid{
		Days:        []string{"Monday"},
		TheorySlots: []int{0},
		LabSlots:    []int{0},
		Overlap:     map[int][]int{0: {0}},
	}
	roster := Roster{Rooms: []Room{{Name: "L1", Kind: KindLab}}}
	electives := []Elective{{Code: "CC3601", Theory: true, Lab: true, Replicas: 1}}
	ledger := NewLedger()

	scheduler := newTestElectiveScheduler(grid)
	result, err := scheduler.Schedule(context.Background(), electives, roster, ledger)
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, KindLab, result.Assignments[0].Kind)
}

func TestElectivesReplicasShareNothing(t *testing.T) {
	grid := Grid{
		Days:        []string{"Monday", "Tuesday"},
		TheorySlots: []int{0},
		LabSlots:    []int{0, 1},
		Overlap:     map[int][]int{0: {0}, 1: {}},
	}
	roster := Roster{Rooms: []Room{{Name: "L1", Kind: KindLab}, {Name: "L2", Kind: KindLab}}}
	electives := []Elective{{Code: "CC3501", Lab: true, Replicas: 3}}
	ledger := NewLedger()

	scheduler := newTestElectiveScheduler(grid)
	result, err := scheduler.Schedule(context.Background(), electives, roster, ledger)
	require.NoError(t, err)

	require.Len(t, result.Assignments, 3)
	cells := lo.Map(result.Assignments, func(a Assignment, _ int) SlotRef {
		return SlotRef{Day: a.Day, Slot: a.Slot, Room: a.Room}
	})
	assert.Len(t, lo.Uniq(cells), 3, "replicas double-booked a cell")

	labels := lo.Map(result.Assignments, func(a Assignment, _ int) string { return a.Label })
	assert.ElementsMatch(t, []string{"Elective-CC3501-A1", "Elective-CC3501-A2", "Elective-CC3501-A3"}, labels)
}

func TestElectivesKindFollowsDeclaredRoom(t *testing.T) {
	// Theory slot 0 and lab slot 0 share an index and both kinds are in play:
	// each assignment's kind must match the kind its room was declared under.
	grid := Grid{
		Days:        []string{"Monday"},
		TheorySlots: []int{0},
		LabSlots:    []int{0},
		Overlap:     map[int][]int{0: {0}},
	}
	roster := Roster{Rooms: []Room{{Name: "R1", Kind: KindTheory}, {Name: "L1", Kind: KindLab}}}
	electives := []Elective{{Code: "CC3601", Theory: true, Lab: true, Replicas: 2}}
	ledger := NewLedger()

	scheduler := newTestElectiveScheduler(grid)
	scheduler.TheorySessions = 1

	// One free theory cell and one free lab cell force one replica into each.
	result, err := scheduler.Schedule(context.Background(), electives, roster, ledger)
	require.NoError(t, err)

	require.Len(t, result.Assignments, 2)
	for _, assignment := range result.Assignments {
		switch assignment.Room {
		case "R1":
			assert.Equal(t, KindTheory, assignment.Kind)
		case "L1":
			assert.Equal(t, KindLab, assignment.Kind)
		default:
			t.Fatalf("unexpected room %s", assignment.Room)
		}
	}
	assert.True(t, VerifyElectives(result, electives, roster, ledger, grid, scheduler.TheorySessions, scheduler.LabSessions))
}

func TestElectivesInfeasibleWhenNoSpace(t *testing.T) {
	grid := Grid{
		Days:        []string{"Monday"},
		TheorySlots: []int{0},
		LabSlots:    []int{0},
		Overlap:     map[int][]int{0: {0}},
	}
	roster := Roster{Rooms: []Room{{Name: "L1", Kind: KindLab}}}
	electives := []Elective{{Code: "CC3501", Lab: true, Replicas: 2}}

	_, err := newTestElectiveScheduler(grid).Schedule(context.Background(), electives, roster, NewLedger())
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestElectivesValidation(t *testing.T) {
	grid := twoDayGrid()
	roster := Roster{Rooms: []Room{{Name: "L1", Kind: KindLab}}}
	scheduler := newTestElectiveScheduler(grid)

	t.Run("no modality", func(t *testing.T) {
		_, err := scheduler.Schedule(context.Background(), []Elective{{Code: "X"}}, roster, NewLedger())
		assert.Error(t, err)
	})

	t.Run("non-positive replicas", func(t *testing.T) {
		_, err := scheduler.Schedule(context.Background(), []Elective{{Code: "X", Lab: true}}, roster, NewLedger())
		assert.Error(t, err)
	})
}

func TestElectivesNeverContendWithCommittedSchedule(t *testing.T) {
	grid := Grid{
		Days:        []string{"Monday", "Tuesday"},
		TheorySlots: []int{0, 1},
		LabSlots:    []int{0},
		Overlap:     map[int][]int{0: {0, 1}},
	}
	roster := Roster{Rooms: []Room{{Name: "R1", Kind: KindTheory}, {Name: "L1", Kind: KindLab}}}
	ledger := NewLedger()

	request := singleCourseRequest(Course{Code: "CS101", Kind: KindTheory, Sessions: 2})
	coreResult, err := newTestScheduler(grid).Schedule(context.Background(), request, roster, ledger)
	require.NoError(t, err)
	require.NoError(t, Commit(ledger, coreResult))

	electives := []Elective{{Code: "CC3501", Theory: true, Lab: true, Replicas: 1}}
	scheduler := newTestElectiveScheduler(grid)
	scheduler.TheorySessions = 1

	electiveResult, err := scheduler.Schedule(context.Background(), electives, roster, ledger)
	require.NoError(t, err)

	// Committing the elective deltas on top of the core commit must not
	// conflict: the pools are disjoint by construction.
	assert.NoError(t, Commit(ledger, electiveResult))
}
