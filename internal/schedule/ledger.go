package schedule

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
)

// Ledger records which (room, day, slot) combinations are already consumed,
// per room kind. It is carried across scheduling runs: loaded before a solve,
// appended to by the materializer after a successful one, and persisted for
// the next run. The solver itself never mutates it.
type Ledger struct {
	used map[RoomKind]map[string]map[string]map[int]bool
}

// Delta is one ledger append produced by materializing a solution.
type Delta struct {
	Kind     RoomKind
	Room     string
	Day      string
	Slot     int
	Occupant string
}

func NewLedger() *Ledger {
	return &Ledger{used: map[RoomKind]map[string]map[string]map[int]bool{
		KindTheory: {},
		KindLab:    {},
	}}
}

// IsFree reports whether the slot is not yet occupied.
func (ledger *Ledger) IsFree(kind RoomKind, room, day string, slot int) bool {
	return !ledger.used[kind][room][day][slot]
}

// Capacity returns rooms x days x slots minus the occupied count, restricted
// to the given room set.
func (ledger *Ledger) Capacity(kind RoomKind, rooms []string, days []string, slots []int) int {
	capacity := len(rooms) * len(days) * len(slots)

	for _, room := range rooms {
		for _, day := range days {
			for slot := range ledger.used[kind][room][day] {
				if slices.Contains(slots, slot) {
					capacity--
				}
			}
		}
	}

	return capacity
}

// Apply appends a delta batch. The whole batch is validated against the
// current state (and against itself) before anything is written, so a
// conflicting batch leaves the ledger untouched and returns a ConflictError.
func (ledger *Ledger) Apply(deltas []Delta) error {
	seen := make(map[Delta]bool, len(deltas))
	for _, delta := range deltas {
		key := Delta{Kind: delta.Kind, Room: delta.Room, Day: delta.Day, Slot: delta.Slot}
		if !ledger.IsFree(delta.Kind, delta.Room, delta.Day, delta.Slot) || seen[key] {
			return &ConflictError{
				Kind:     delta.Kind,
				Room:     delta.Room,
				Day:      delta.Day,
				Slot:     delta.Slot,
				Occupant: delta.Occupant,
			}
		}
		seen[key] = true
	}

	for _, delta := range deltas {
		rooms := ledger.used[delta.Kind]
		if rooms == nil {
			rooms = map[string]map[string]map[int]bool{}
			ledger.used[delta.Kind] = rooms
		}
		if rooms[delta.Room] == nil {
			rooms[delta.Room] = map[string]map[int]bool{}
		}
		if rooms[delta.Room][delta.Day] == nil {
			rooms[delta.Room][delta.Day] = map[int]bool{}
		}
		rooms[delta.Room][delta.Day][delta.Slot] = true
	}

	return nil
}

// Snapshot returns the persisted shape of the ledger: kind -> room -> day ->
// sorted occupied slot indices.
func (ledger *Ledger) Snapshot() map[string]map[string]map[string][]int {
	snapshot := map[string]map[string]map[string][]int{
		string(KindTheory): {},
		string(KindLab):    {},
	}

	for kind, rooms := range ledger.used {
		if snapshot[string(kind)] == nil {
			snapshot[string(kind)] = map[string]map[string][]int{}
		}
		for room, days := range rooms {
			for day, slots := range days {
				if len(slots) == 0 {
					continue
				}
				occupied := make([]int, 0, len(slots))
				for slot := range slots {
					occupied = append(occupied, slot)
				}
				slices.Sort(occupied)

				if snapshot[string(kind)][room] == nil {
					snapshot[string(kind)][room] = map[string][]int{}
				}
				snapshot[string(kind)][room][day] = occupied
			}
		}
	}

	return snapshot
}

// LedgerFromSnapshot rebuilds a ledger from its persisted shape. A snapshot
// naming a kind other than "theory" or "lab" is rejected with
// UnknownKindError rather than carried along to crash a later Save.
func LedgerFromSnapshot(snapshot map[string]map[string]map[string][]int) (*Ledger, error) {
	ledger := NewLedger()
	for kind, rooms := range snapshot {
		if RoomKind(kind) != KindTheory && RoomKind(kind) != KindLab {
			return nil, &UnknownKindError{Kind: kind}
		}
		for room, days := range rooms {
			for day, slots := range days {
				for _, slot := range slots {
					if ledger.used[RoomKind(kind)][room] == nil {
						ledger.used[RoomKind(kind)][room] = map[string]map[int]bool{}
					}
					if ledger.used[RoomKind(kind)][room][day] == nil {
						ledger.used[RoomKind(kind)][room][day] = map[int]bool{}
					}
					ledger.used[RoomKind(kind)][room][day][slot] = true
				}
			}
		}
	}
	return ledger, nil
}

// LoadLedger reads the ledger from its JSON file. A missing file yields an
// empty ledger; a file with unknown kind keys fails with UnknownKindError.
func LoadLedger(file string) (*Ledger, error) {
	raw, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return NewLedger(), nil
	} else if err != nil {
		return nil, err
	}

	var snapshot map[string]map[string]map[string][]int
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, err
	}

	return LedgerFromSnapshot(snapshot)
}

// Save persists the ledger as indented JSON, writing through a temporary file
// and renaming so a failure mid-write cannot truncate the previous state.
func (ledger *Ledger) Save(file string) error {
	raw, err := json.MarshalIndent(ledger.Snapshot(), "", "  ")
	if err != nil {
		return err
	}

	temp, err := os.CreateTemp(filepath.Dir(file), ".usage-*.json")
	if err != nil {
		return err
	}
	if _, err := temp.Write(raw); err != nil {
		temp.Close()
		os.Remove(temp.Name())
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return err
	}

	return os.Rename(temp.Name(), file)
}

// ResetLedger truncates the persisted ledger to the empty structure.
func ResetLedger(file string) error {
	return NewLedger().Save(file)
}
