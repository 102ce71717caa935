package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termtable/internal/schedule"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestLoadRooms(t *testing.T) {
	file := writeFixture(t, "rooms.csv",
		"room_name,room_type,room_group\n"+
			"R1,theory,\n"+
			"R2 ,Theory,\n"+
			"GenericLab1,lab,\n"+
			"PhysicsLab1,lab,NS125L\n"+
			"PhysicsLab2,lab,NS125L\n")

	roster, err := LoadRooms(file)
	require.NoError(t, err)

	assert.Equal(t, []string{"R1", "R2"}, roster.TheoryRooms())
	assert.Equal(t, []string{"GenericLab1"}, roster.GenericLabRooms())
	assert.Equal(t, map[string][]string{"NS125L": {"PhysicsLab1", "PhysicsLab2"}}, roster.GroupRooms())
}

func TestLoadRoomsUnknownType(t *testing.T) {
	file := writeFixture(t, "rooms.csv", "room_name,room_type,room_group\nR1,auditorium,\n")
	_, err := LoadRooms(file)
	assert.Error(t, err)
}

func TestLoadRoomsDuplicateName(t *testing.T) {
	// The same name under both kinds would let one physical identifier hold
	// two independent ledger entries.
	file := writeFixture(t, "rooms.csv",
		"room_name,room_type,room_group\n"+
			"R1,theory,\n"+
			"R1,lab,\n")
	_, err := LoadRooms(file)
	assert.ErrorContains(t, err, "duplicate room name")
}

func TestLoadCourses(t *testing.T) {
	file := writeFixture(t, "courses.csv",
		"semester,course_code,course_name,is_lab,times_needed,room_group\n"+
			"1,CS101,Programming,false,2,\n"+
			"1,NS125L,Physics Lab,TRUE,1,NS125L\n"+
			"3,CS301,Algorithms,false,3,\n")

	courses, err := LoadCourses(file)
	require.NoError(t, err)

	require.Len(t, courses[1], 2)
	assert.Equal(t, schedule.Course{Code: "CS101", Name: "Programming", Kind: schedule.KindTheory, Sessions: 2}, courses[1][0])
	assert.Equal(t, schedule.Course{Code: "NS125L", Name: "Physics Lab", Kind: schedule.KindLab, Sessions: 1, Group: "NS125L"}, courses[1][1])
	require.Len(t, courses[3], 1)
	assert.Equal(t, 3, courses[3][0].Sessions)
}

func TestLoadCoursesRejectsNonPositiveSessions(t *testing.T) {
	file := writeFixture(t, "courses.csv",
		"semester,course_code,course_name,is_lab,times_needed,room_group\n"+
			"1,CS101,Programming,false,0,\n")
	_, err := LoadCourses(file)
	assert.Error(t, err)
}

func TestLoadHeadcounts(t *testing.T) {
	file := writeFixture(t, "headcounts.csv", "semester,student_count\n1,120\n3,45\n")

	headcounts, err := LoadHeadcounts(file)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 120, 3: 45}, headcounts)
}

func TestLoadElectives(t *testing.T) {
	file := writeFixture(t, "electives.csv",
		"elective_code,elective_name,sections_count,can_use_theory,can_use_lab\n"+
			"CC3501,Robotics,2,false,true\n"+
			"CC4801,Entrepreneurship,1,true,false\n")

	electives, err := LoadElectives(file)
	require.NoError(t, err)

	require.Len(t, electives, 2)
	assert.Equal(t, schedule.Elective{Code: "CC3501", Name: "Robotics", Lab: true, Replicas: 2}, electives[0])
	assert.Equal(t, schedule.Elective{Code: "CC4801", Name: "Entrepreneurship", Theory: true, Replicas: 1}, electives[1])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadRooms(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
