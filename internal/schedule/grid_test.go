package schedule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGrid(t *testing.T) {
	grid := DefaultGrid()

	assert.Len(t, grid.Days, 6)
	assert.Len(t, grid.TheorySlots, 7)
	assert.Len(t, grid.LabSlots, 4)

	// Every lab slot maps to at least one theory slot it overlaps
	for _, labSlot := range grid.LabSlots {
		assert.NotEmpty(t, grid.Overlap[labSlot])
	}

	assert.Equal(t, "8:00-9:15", grid.Label(KindTheory, 0))
	assert.Equal(t, "5:00-7:30", grid.Label(KindLab, 3))
	assert.Equal(t, "Slot 9", grid.Label(KindTheory, 9))
}

func TestGridFromJSON(t *testing.T) {
	document := `{
		"days": ["Monday", "Tuesday"],
		"theorySlots": [0, 1],
		"theoryLabels": {"0": "9:00-10:00", "1": "10:00-11:00"},
		"labSlots": [0],
		"labLabels": {"0": "9:00-11:00"},
		"overlap": {"0": [0, 1]}
	}`
	file := filepath.Join(t.TempDir(), "grid.json")
	require.NoError(t, os.WriteFile(file, []byte(document), 0o644))

	grid, err := GridFromJSON(file)
	require.NoError(t, err)

	assert.Equal(t, []string{"Monday", "Tuesday"}, grid.Days)
	assert.Equal(t, []int{0, 1}, grid.TheorySlots)
	assert.Equal(t, "9:00-10:00", grid.TheoryLabels[0])
	assert.Equal(t, []int{0, 1}, grid.Overlap[0])
}

func TestGridFromJSONBadKeys(t *testing.T) {
	document := `{"days": ["Monday"], "theoryLabels": {"zero": "9:00"}}`
	file := filepath.Join(t.TempDir(), "grid.json")
	require.NoError(t, os.WriteFile(file, []byte(document), 0o644))

	_, err := GridFromJSON(file)
	assert.Error(t, err)
}
