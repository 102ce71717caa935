package schedule

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// RenderRoomUsage builds a day-by-slot text table for one room, merging prior
// ledger occupancy with the occupants of the current run. Slots taken before
// this run show as "(previously occupied)" since the ledger keeps no occupant
// names.
func RenderRoomUsage(room string, kind RoomKind, grid Grid, prior *Ledger, occupants map[SlotRef]Occupant) string {
	var builder strings.Builder
	writer := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)

	slots := grid.Slots(kind)

	fmt.Fprintf(writer, "%s (%s)\t", room, kind)
	for _, slot := range slots {
		fmt.Fprintf(writer, "%s\t", grid.Label(kind, slot))
	}
	fmt.Fprintln(writer)

	for _, day := range grid.Days {
		fmt.Fprintf(writer, "%s\t", day)
		for _, slot := range slots {
			cell := "Free"
			if occupant, ok := occupants[SlotRef{Day: day, Slot: slot, Room: room}]; ok {
				cell = occupant.Label
			} else if !prior.IsFree(kind, room, day, slot) {
				cell = "(previously occupied)"
			}
			fmt.Fprintf(writer, "%s\t", cell)
		}
		fmt.Fprintln(writer)
	}

	writer.Flush()
	return builder.String()
}
