package schedule

import (
	"fmt"
	"math"
)

// BuildSections derives the section identifiers for a semester from its
// headcount: ceil(headcount / sectionSize) sections named
// S<semester><program><index>, e.g. S1A1, S1A2, S1A3. The naming is
// deterministic so repeated runs with equal inputs reproduce equal
// identifiers against the ledger.
func BuildSections(semester, headcount, sectionSize int, program string) ([]string, error) {
	if headcount < 1 {
		return nil, fmt.Errorf("semester %d: headcount must be positive, got %d", semester, headcount)
	}
	if sectionSize < 1 {
		return nil, fmt.Errorf("semester %d: section size must be positive, got %d", semester, sectionSize)
	}

	count := int(math.Ceil(float64(headcount) / float64(sectionSize)))
	sections := make([]string, count)
	for i := range sections {
		sections[i] = fmt.Sprintf("S%d%s%d", semester, program, i+1)
	}

	return sections, nil
}
