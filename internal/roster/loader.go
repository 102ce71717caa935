// Package roster parses the institutional CSV files into the scheduling
// model. File formats live here, outside the solver core.
package roster

import (
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"termtable/internal/schedule"
)

type roomRecord struct {
	Name  string `csv:"room_name"`
	Type  string `csv:"room_type"`
	Group string `csv:"room_group"`
}

type courseRecord struct {
	Semester int    `csv:"semester"`
	Code     string `csv:"course_code"`
	Name     string `csv:"course_name"`
	IsLab    string `csv:"is_lab"`
	Sessions int    `csv:"times_needed"`
	Group    string `csv:"room_group"`
}

type headcountRecord struct {
	Semester int `csv:"semester"`
	Students int `csv:"student_count"`
}

type electiveRecord struct {
	Code     string `csv:"elective_code"`
	Name     string `csv:"elective_name"`
	Replicas int    `csv:"sections_count"`
	Theory   string `csv:"can_use_theory"`
	Lab      string `csv:"can_use_lab"`
}

// LoadRooms reads the room roster CSV: room_name, room_type (theory|lab) and
// an optional room_group tag for special-lab pools.
func LoadRooms(file string) (schedule.Roster, error) {
	records, err := unmarshalFile[roomRecord](file)
	if err != nil {
		return schedule.Roster{}, err
	}

	roster := schedule.Roster{Rooms: make([]schedule.Room, 0, len(records))}
	seen := make(map[string]bool, len(records))
	for _, record := range records {
		name := strings.TrimSpace(record.Name)
		kind := schedule.RoomKind(strings.ToLower(strings.TrimSpace(record.Type)))
		if kind != schedule.KindTheory && kind != schedule.KindLab {
			return schedule.Roster{}, fmt.Errorf("room %s: unknown room type %q", record.Name, record.Type)
		}
		// Room names key ledger entries and solver cells across both kinds.
		if seen[name] {
			return schedule.Roster{}, fmt.Errorf("room %s: duplicate room name", name)
		}
		seen[name] = true
		roster.Rooms = append(roster.Rooms, schedule.Room{
			Name:  name,
			Kind:  kind,
			Group: strings.TrimSpace(record.Group),
		})
	}

	return roster, nil
}

// LoadCourses reads the per-semester course roster CSV: semester,
// course_code, course_name, is_lab, times_needed and an optional room_group
// restricting a lab course to a special-lab pool.
func LoadCourses(file string) (map[int][]schedule.Course, error) {
	records, err := unmarshalFile[courseRecord](file)
	if err != nil {
		return nil, err
	}

	courses := make(map[int][]schedule.Course)
	for _, record := range records {
		kind := schedule.KindTheory
		if truthy(record.IsLab) {
			kind = schedule.KindLab
		}
		if record.Sessions < 1 {
			return nil, fmt.Errorf("course %s: times_needed must be positive, got %d", record.Code, record.Sessions)
		}
		courses[record.Semester] = append(courses[record.Semester], schedule.Course{
			Code:     strings.TrimSpace(record.Code),
			Name:     strings.TrimSpace(record.Name),
			Kind:     kind,
			Sessions: record.Sessions,
			Group:    strings.TrimSpace(record.Group),
		})
	}

	return courses, nil
}

// LoadHeadcounts reads the per-semester student counts CSV: semester,
// student_count.
func LoadHeadcounts(file string) (map[int]int, error) {
	records, err := unmarshalFile[headcountRecord](file)
	if err != nil {
		return nil, err
	}

	headcounts := make(map[int]int, len(records))
	for _, record := range records {
		headcounts[record.Semester] = record.Students
	}
	return headcounts, nil
}

// LoadElectives reads the elective roster CSV: elective_code, elective_name,
// sections_count, can_use_theory, can_use_lab.
func LoadElectives(file string) ([]schedule.Elective, error) {
	records, err := unmarshalFile[electiveRecord](file)
	if err != nil {
		return nil, err
	}

	electives := make([]schedule.Elective, 0, len(records))
	for _, record := range records {
		electives = append(electives, schedule.Elective{
			Code:     strings.TrimSpace(record.Code),
			Name:     strings.TrimSpace(record.Name),
			Theory:   truthy(record.Theory),
			Lab:      truthy(record.Lab),
			Replicas: record.Replicas,
		})
	}

	return electives, nil
}

func unmarshalFile[T any](file string) ([]*T, error) {
	handle, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", file, err)
	}
	defer handle.Close()

	records := []*T{}
	if err := gocsv.UnmarshalFile(handle, &records); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", file, err)
	}
	return records, nil
}

func truthy(value string) bool {
	return strings.ToLower(strings.TrimSpace(value)) == "true"
}
