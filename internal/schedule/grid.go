package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Grid fixes the slot enumeration for a term: the teaching days, the theory
// and lab slot indices with their wall-clock labels, and the overlap relation
// from each lab slot to the theory slots it temporally coincides with. The
// overlap relation is used for cross-modality exclusivity only.
type Grid struct {
	Days         []string
	TheorySlots  []int
	TheoryLabels map[int]string
	LabSlots     []int
	LabLabels    map[int]string
	Overlap      map[int][]int
}

// DefaultGrid returns the institutional grid: six teaching days, seven
// 75-minute theory slots and four 150-minute lab slots per day.
func DefaultGrid() Grid {
	return Grid{
		Days:        []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		TheorySlots: []int{0, 1, 2, 3, 4, 5, 6},
		TheoryLabels: map[int]string{
			0: "8:00-9:15",
			1: "9:30-10:45",
			2: "11:00-12:15",
			3: "12:30-1:45",
			4: "2:00-3:15",
			5: "3:30-4:45",
			6: "5:00-6:15",
		},
		LabSlots: []int{0, 1, 2, 3},
		LabLabels: map[int]string{
			0: "8:00-10:30",
			1: "11:00-1:30",
			2: "2:00-4:30",
			3: "5:00-7:30",
		},
		Overlap: map[int][]int{
			0: {0, 1},
			1: {2, 3},
			2: {4, 5},
			3: {6},
		},
	}
}

// Slots returns the slot indices of the given kind.
func (grid Grid) Slots(kind RoomKind) []int {
	if kind == KindLab {
		return grid.LabSlots
	}
	return grid.TheorySlots
}

func (grid Grid) Label(kind RoomKind, slot int) string {
	if kind == KindLab {
		if label, ok := grid.LabLabels[slot]; ok {
			return label
		}
		return fmt.Sprintf("LabSlot %d", slot)
	}
	if label, ok := grid.TheoryLabels[slot]; ok {
		return label
	}
	return fmt.Sprintf("Slot %d", slot)
}

type gridDocument struct {
	Days         []string
	TheorySlots  []int             `mapstructure:"theorySlots"`
	TheoryLabels map[string]string `mapstructure:"theoryLabels"`
	LabSlots     []int             `mapstructure:"labSlots"`
	LabLabels    map[string]string `mapstructure:"labLabels"`
	Overlap      map[string][]int
}

// GridFromJSON loads a grid definition from a JSON document, for institutions
// whose day or slot structure differs from the default.
func GridFromJSON(file string) (Grid, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return Grid{}, err
	}

	var document map[string]any
	if err := json.Unmarshal(raw, &document); err != nil {
		return Grid{}, err
	}

	var decoded gridDocument
	if err := mapstructure.Decode(document, &decoded); err != nil {
		return Grid{}, err
	}

	grid := Grid{
		Days:         decoded.Days,
		TheorySlots:  decoded.TheorySlots,
		TheoryLabels: make(map[int]string),
		LabSlots:     decoded.LabSlots,
		LabLabels:    make(map[int]string),
		Overlap:      make(map[int][]int),
	}

	for key, label := range decoded.TheoryLabels {
		slot, err := strconv.Atoi(key)
		if err != nil {
			return Grid{}, fmt.Errorf("invalid theory slot key %q: %w", key, err)
		}
		grid.TheoryLabels[slot] = label
	}
	for key, label := range decoded.LabLabels {
		slot, err := strconv.Atoi(key)
		if err != nil {
			return Grid{}, fmt.Errorf("invalid lab slot key %q: %w", key, err)
		}
		grid.LabLabels[slot] = label
	}
	for key, theorySlots := range decoded.Overlap {
		slot, err := strconv.Atoi(key)
		if err != nil {
			return Grid{}, fmt.Errorf("invalid overlap key %q: %w", key, err)
		}
		grid.Overlap[slot] = theorySlots
	}

	return grid, nil
}
