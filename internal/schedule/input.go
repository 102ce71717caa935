package schedule

import (
	"github.com/samber/lo"
)

// RoomKind partitions rooms and courses into the theory and lab worlds, each
// with its own slot grid.
type RoomKind string

const (
	KindTheory RoomKind = "theory"
	KindLab    RoomKind = "lab"
)

// Room is a schedulable space. A non-empty Group restricts the room to a named
// special-lab pool; a room belongs to at most one group.
type Room struct {
	Name  string
	Kind  RoomKind
	Group string
}

// Course is one mandatory offering of a semester. Sessions is the number of
// weekly meetings to place. A lab course with a non-empty Group may only use
// rooms of that group; a lab course without one may only use generic labs.
type Course struct {
	Code     string
	Name     string
	Kind     RoomKind
	Sessions int
	Group    string
}

// Elective is an offering scheduled out of leftover capacity. Each of its
// Replicas independently chooses a modality among the allowed ones.
type Elective struct {
	Code     string
	Name     string
	Theory   bool // may be scheduled as a theory offering
	Lab      bool // may be scheduled as a lab offering
	Replicas int
}

// Roster is the room inventory of the institution.
type Roster struct {
	Rooms []Room
}

func (roster Roster) TheoryRooms() []string {
	return lo.FilterMap(roster.Rooms, func(room Room, _ int) (string, bool) {
		return room.Name, room.Kind == KindTheory
	})
}

// LabRooms returns every lab, generic and group-tagged alike. The combined
// pool is what capacity accounting runs against.
func (roster Roster) LabRooms() []string {
	return lo.FilterMap(roster.Rooms, func(room Room, _ int) (string, bool) {
		return room.Name, room.Kind == KindLab
	})
}

func (roster Roster) GenericLabRooms() []string {
	return lo.FilterMap(roster.Rooms, func(room Room, _ int) (string, bool) {
		return room.Name, room.Kind == KindLab && room.Group == ""
	})
}

// GroupRooms maps each group tag to its room names.
func (roster Roster) GroupRooms() map[string][]string {
	groups := make(map[string][]string)
	for _, room := range roster.Rooms {
		if room.Kind == KindLab && room.Group != "" {
			groups[room.Group] = append(groups[room.Group], room.Name)
		}
	}
	return groups
}

// Assignment is the atomic unit of a solution: one session of one occupant
// placed into a room at a day and slot. Label is the occupant string recorded
// into the ledger, e.g. "S1A2-CC1101" or "Elective-CC3501-A1".
type Assignment struct {
	Section string
	Course  string
	Kind    RoomKind
	Day     string
	Slot    int
	Room    string
	Label   string
}

// SlotRef keys the occupant lookup map produced for reporting.
type SlotRef struct {
	Day  string
	Slot int
	Room string
}

// Occupant identifies who holds a slot in the occupant lookup map. Label
// carries the assignment's ledger label as-is; the labeling rule is fixed at
// decode time and never re-derived.
type Occupant struct {
	Section string
	Course  string
	Label   string
}

// Request selects the work of one core solve call.
type Request struct {
	Semesters   []int
	Courses     map[int][]Course
	Headcounts  map[int]int
	SectionSize int
	Program     string
}

// Result is a materialized solution: the assignments themselves, the sections
// derived for each semester, the ledger delta batch and the occupant lookup
// map for reporting.
type Result struct {
	RunID       string
	Assignments []Assignment
	Sections    map[int][]string
	Deltas      []Delta
	Occupants   map[SlotRef]Occupant
}
