package schedule

import (
	"slices"

	"github.com/samber/lo"
)

// Verify independently replays a core result against the inputs and the
// pre-solve ledger, confirming every invariant of a valid solution:
// exclusivity against old and new occupancy, exact session counts, distinct
// theory days, the group partition of lab rooms and the per-section slot and
// overlap rules. It shares no code with the model builder.
func Verify(result *Result, request Request, roster Roster, prior *Ledger, grid Grid) bool {
	courses := coursesByCode(request)
	groupRooms := roster.GroupRooms()
	genericLabs := roster.GenericLabRooms()
	theoryRooms := roster.TheoryRooms()

	occupied := make(map[slotKey]bool)
	sessionCounts := make(map[[2]string]int)
	theoryDays := make(map[[2]string][]string)
	sectionAttends := make(map[sectionSlotKey]bool)

	for _, assignment := range result.Assignments {
		course, known := courses[assignment.Course]
		if !known || course.Kind != assignment.Kind {
			return false
		}
		if !slices.Contains(grid.Days, assignment.Day) || !slices.Contains(grid.Slots(course.Kind), assignment.Slot) {
			return false
		}

		// Room eligibility: matching kind, and the group partition for labs
		switch {
		case course.Kind == KindTheory:
			if !slices.Contains(theoryRooms, assignment.Room) {
				return false
			}
		case course.Group != "":
			if !slices.Contains(groupRooms[course.Group], assignment.Room) {
				return false
			}
		default:
			if !slices.Contains(genericLabs, assignment.Room) {
				return false
			}
		}

		// Exclusivity against prior ledger entries and within the solution
		cell := slotKey{Kind: course.Kind, Room: assignment.Room, Day: assignment.Day, Slot: assignment.Slot}
		if !prior.IsFree(course.Kind, assignment.Room, assignment.Day, assignment.Slot) || occupied[cell] {
			return false
		}
		occupied[cell] = true

		// One theory and one lab attendance per section per slot per day
		attend := sectionSlotKey{Section: assignment.Section, Day: assignment.Day, Kind: course.Kind, Slot: assignment.Slot}
		if sectionAttends[attend] {
			return false
		}
		sectionAttends[attend] = true

		pair := [2]string{assignment.Section, assignment.Course}
		sessionCounts[pair]++
		if course.Kind == KindTheory {
			theoryDays[pair] = append(theoryDays[pair], assignment.Day)
		}
	}

	// Cross-modality overlap: a lab attendance excludes the overlapping
	// theory slots for the same section and day
	for attend := range sectionAttends {
		if attend.Kind != KindLab {
			continue
		}
		for _, theorySlot := range grid.Overlap[attend.Slot] {
			if sectionAttends[sectionSlotKey{Section: attend.Section, Day: attend.Day, Kind: KindTheory, Slot: theorySlot}] {
				return false
			}
		}
	}

	// Exact session counts and distinct theory days for every pair
	for _, semester := range request.Semesters {
		for _, section := range result.Sections[semester] {
			for _, course := range request.Courses[semester] {
				pair := [2]string{section, course.Code}
				if sessionCounts[pair] != course.Sessions {
					return false
				}
				if course.Kind == KindTheory && len(lo.Uniq(theoryDays[pair])) != course.Sessions {
					return false
				}
			}
		}
	}

	return true
}

// VerifyElectives replays an elective result: every replica settles on one
// modality with its fixed session count, theory replicas spread over distinct
// days, and no cell collides with the ledger or another elective.
func VerifyElectives(result *Result, electives []Elective, roster Roster, prior *Ledger, grid Grid, theorySessions, labSessions int) bool {
	theoryRooms := roster.TheoryRooms()
	labRooms := roster.LabRooms()

	occupied := make(map[slotKey]bool)
	kindCounts := make(map[string]map[RoomKind]int)
	theoryDays := make(map[string][]string)

	for _, assignment := range result.Assignments {
		if !slices.Contains(grid.Days, assignment.Day) || !slices.Contains(grid.Slots(assignment.Kind), assignment.Slot) {
			return false
		}
		if assignment.Kind == KindTheory && !slices.Contains(theoryRooms, assignment.Room) {
			return false
		}
		if assignment.Kind == KindLab && !slices.Contains(labRooms, assignment.Room) {
			return false
		}

		cell := slotKey{Kind: assignment.Kind, Room: assignment.Room, Day: assignment.Day, Slot: assignment.Slot}
		if !prior.IsFree(assignment.Kind, assignment.Room, assignment.Day, assignment.Slot) || occupied[cell] {
			return false
		}
		occupied[cell] = true

		if kindCounts[assignment.Section] == nil {
			kindCounts[assignment.Section] = map[RoomKind]int{}
		}
		kindCounts[assignment.Section][assignment.Kind]++
		if assignment.Kind == KindTheory {
			theoryDays[assignment.Section] = append(theoryDays[assignment.Section], assignment.Day)
		}
	}

	for _, elective := range electives {
		for index := range elective.Replicas {
			label := replicaLabel(elective.Code, index)
			counts := kindCounts[label]

			theory := counts[KindTheory] == theorySessions && counts[KindLab] == 0 && elective.Theory
			lab := counts[KindLab] == labSessions && counts[KindTheory] == 0 && elective.Lab
			if !theory && !lab {
				return false
			}
			if theory && len(lo.Uniq(theoryDays[label])) != theorySessions {
				return false
			}
		}
	}

	return true
}
