package schedule

import (
	"errors"
	"fmt"
)

// ErrInfeasible means the search proved that no satisfying assignment exists.
// It is distinct from a capacity shortfall: the model can be infeasible even
// when aggregate capacity suffices.
var ErrInfeasible = errors.New("no satisfying assignment exists")

// ErrInconclusive means the search gave up (budget or cancellation) before
// reaching a verdict. It must never be treated as infeasibility.
var ErrInconclusive = errors.New("search ended without a verdict")

// CapacityError is raised by the pre-check before any model is built: the
// selected load needs more kind-slots than remain free in the ledger.
type CapacityError struct {
	Kind      RoomKind
	Needed    int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough free %s slots: need=%d, have=%d", e.Kind, e.Needed, e.Available)
}

// ConflictError reports an attempted double-write into the ledger. The solver
// never produces colliding deltas, so this indicates a caller bug.
type ConflictError struct {
	Kind     RoomKind
	Room     string
	Day      string
	Slot     int
	Occupant string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot already occupied: %s room %s, %s slot %d (attempted occupant %s)",
		e.Kind, e.Room, e.Day, e.Slot, e.Occupant)
}

// UnknownKindError reports a persisted usage snapshot carrying a room kind
// key other than "theory" or "lab". Raised at load time, before the snapshot
// is folded into a ledger.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("usage snapshot contains unknown room kind %q", e.Kind)
}

// RoomGroupError reports a lab course whose group tag matches no room in the
// active roster. Raised eagerly instead of letting the empty eligible-room set
// surface as a spurious infeasibility.
type RoomGroupError struct {
	Course string
	Group  string
}

func (e *RoomGroupError) Error() string {
	return fmt.Sprintf("course %s references room group %q with no rooms in the roster", e.Course, e.Group)
}
