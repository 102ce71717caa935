package schedule

// Materialize converts a solved assignment set into the ledger delta batch
// and the occupant lookup map consumed by reporting.
func Materialize(assignments []Assignment) ([]Delta, map[SlotRef]Occupant) {
	deltas := make([]Delta, 0, len(assignments))
	occupants := make(map[SlotRef]Occupant, len(assignments))

	for _, assignment := range assignments {
		deltas = append(deltas, Delta{
			Kind:     assignment.Kind,
			Room:     assignment.Room,
			Day:      assignment.Day,
			Slot:     assignment.Slot,
			Occupant: assignment.Label,
		})
		occupants[SlotRef{Day: assignment.Day, Slot: assignment.Slot, Room: assignment.Room}] = Occupant{
			Section: assignment.Section,
			Course:  assignment.Course,
			Label:   assignment.Label,
		}
	}

	return deltas, occupants
}

// Commit folds a result into the ledger. The delta batch is applied
// all-or-nothing: a conflict leaves the ledger exactly as it was, so the
// ledger can never drift out of sync with a partially reported schedule.
func Commit(ledger *Ledger, result *Result) error {
	return ledger.Apply(result.Deltas)
}
