// Package config resolves the runtime configuration of the scheduling CLI
// from environment variables, with sensible defaults for a local data folder.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir        string
	RoomsFile      string
	CoursesFile    string
	ElectivesFile  string
	HeadcountsFile string
	UsageFile      string
	GridFile       string // optional; empty means the built-in grid

	Program     string
	SectionSize int

	Solver SolverConfig

	Electives ElectivesConfig
}

type SolverConfig struct {
	NodeBudget uint64
	Timeout    time.Duration
}

type ElectivesConfig struct {
	TheorySessions int
	LabSessions    int
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TERMTABLE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{
		DataDir:        v.GetString("DATA_DIR"),
		RoomsFile:      v.GetString("ROOMS_FILE"),
		CoursesFile:    v.GetString("COURSES_FILE"),
		ElectivesFile:  v.GetString("ELECTIVES_FILE"),
		HeadcountsFile: v.GetString("HEADCOUNTS_FILE"),
		UsageFile:      v.GetString("USAGE_FILE"),
		GridFile:       v.GetString("GRID_FILE"),
		Program:        v.GetString("PROGRAM"),
		SectionSize:    v.GetInt("SECTION_SIZE"),
		Solver: SolverConfig{
			NodeBudget: v.GetUint64("SOLVER_NODE_BUDGET"),
			Timeout:    v.GetDuration("SOLVER_TIMEOUT"),
		},
		Electives: ElectivesConfig{
			TheorySessions: v.GetInt("ELECTIVE_THEORY_SESSIONS"),
			LabSessions:    v.GetInt("ELECTIVE_LAB_SESSIONS"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("ROOMS_FILE", "rooms.csv")
	v.SetDefault("COURSES_FILE", "courses.csv")
	v.SetDefault("ELECTIVES_FILE", "")
	v.SetDefault("HEADCOUNTS_FILE", "headcounts.csv")
	v.SetDefault("USAGE_FILE", "usage_data.json")
	v.SetDefault("GRID_FILE", "")
	v.SetDefault("PROGRAM", "A")
	v.SetDefault("SECTION_SIZE", 50)
	v.SetDefault("SOLVER_NODE_BUDGET", 8_000_000)
	v.SetDefault("SOLVER_TIMEOUT", 5*time.Minute)
	v.SetDefault("ELECTIVE_THEORY_SESSIONS", 2)
	v.SetDefault("ELECTIVE_LAB_SESSIONS", 1)
}
