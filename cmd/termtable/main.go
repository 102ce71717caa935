package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"termtable/internal/config"
	"termtable/internal/pb"
	"termtable/internal/roster"
	"termtable/internal/schedule"
)

func main() {
	semestersFlag := flag.String("semesters", "", "comma-separated semesters to schedule, e.g. 1,3,5")
	resetFlag := flag.Bool("reset", false, "reset the usage ledger and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	defer logger.Sync()

	usagePath := filepath.Join(cfg.DataDir, cfg.UsageFile)
	if *resetFlag {
		if err := schedule.ResetLedger(usagePath); err != nil {
			logger.Fatal("cannot reset usage ledger", zap.Error(err))
		}
		logger.Info("usage ledger reset", zap.String("file", usagePath))
		return
	}

	semesters, err := parseSemesters(*semestersFlag)
	if err != nil {
		logger.Fatal("invalid -semesters", zap.Error(err))
	}

	grid := schedule.DefaultGrid()
	if cfg.GridFile != "" {
		grid, err = schedule.GridFromJSON(filepath.Join(cfg.DataDir, cfg.GridFile))
		if err != nil {
			logger.Fatal("cannot load slot grid", zap.Error(err))
		}
	}

	rooms, err := roster.LoadRooms(filepath.Join(cfg.DataDir, cfg.RoomsFile))
	if err != nil {
		logger.Fatal("cannot load room roster", zap.Error(err))
	}
	courses, err := roster.LoadCourses(filepath.Join(cfg.DataDir, cfg.CoursesFile))
	if err != nil {
		logger.Fatal("cannot load course roster", zap.Error(err))
	}
	headcounts, err := roster.LoadHeadcounts(filepath.Join(cfg.DataDir, cfg.HeadcountsFile))
	if err != nil {
		logger.Fatal("cannot load headcounts", zap.Error(err))
	}

	ledger, err := schedule.LoadLedger(usagePath)
	if err != nil {
		logger.Fatal("cannot load usage ledger", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Solver.Timeout)
	defer cancel()

	solver := pb.NewBacktrackSolverWithBudget(cfg.Solver.NodeBudget)
	scheduler := schedule.NewScheduler(grid, solver, logger)

	request := schedule.Request{
		Semesters:   semesters,
		Courses:     courses,
		Headcounts:  headcounts,
		SectionSize: cfg.SectionSize,
		Program:     cfg.Program,
	}

	result, err := scheduler.Schedule(ctx, request, rooms, ledger)
	if err != nil {
		reportFailure(logger, err)
	}

	if !schedule.Verify(result, request, rooms, ledger, grid) {
		logger.Fatal("verification failed", zap.String("run", result.RunID))
	}
	if err := schedule.Commit(ledger, result); err != nil {
		logger.Fatal("cannot commit timetable", zap.Error(err))
	}

	//** Electives compete only for the capacity left over after the commit
	var electiveOccupants map[schedule.SlotRef]schedule.Occupant
	if cfg.ElectivesFile != "" {
		electives, err := roster.LoadElectives(filepath.Join(cfg.DataDir, cfg.ElectivesFile))
		if err != nil {
			logger.Fatal("cannot load elective roster", zap.Error(err))
		}

		electiveScheduler := schedule.NewElectiveScheduler(grid, solver, logger)
		electiveScheduler.TheorySessions = cfg.Electives.TheorySessions
		electiveScheduler.LabSessions = cfg.Electives.LabSessions

		electiveResult, err := electiveScheduler.Schedule(ctx, electives, rooms, ledger)
		if err != nil {
			reportFailure(logger, err)
		}
		if !schedule.VerifyElectives(electiveResult, electives, rooms, ledger, grid, cfg.Electives.TheorySessions, cfg.Electives.LabSessions) {
			logger.Fatal("elective verification failed", zap.String("run", electiveResult.RunID))
		}
		if err := schedule.Commit(ledger, electiveResult); err != nil {
			logger.Fatal("cannot commit electives", zap.Error(err))
		}
		electiveOccupants = electiveResult.Occupants
	}

	if err := ledger.Save(usagePath); err != nil {
		logger.Fatal("cannot persist usage ledger", zap.Error(err))
	}

	printUsage(grid, rooms, ledger, result.Occupants, electiveOccupants)
	logger.Info("timetable committed", zap.String("run", result.RunID), zap.String("ledger", usagePath))
}

func parseSemesters(value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, errors.New("at least one semester is required")
	}

	var semesters []int
	for _, field := range strings.Split(value, ",") {
		semester, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("invalid semester %q: %w", field, err)
		}
		semesters = append(semesters, semester)
	}
	return semesters, nil
}

func reportFailure(logger *zap.Logger, err error) {
	var capacity *schedule.CapacityError
	switch {
	case errors.As(err, &capacity):
		logger.Fatal("capacity exceeded",
			zap.String("kind", string(capacity.Kind)),
			zap.Int("needed", capacity.Needed),
			zap.Int("available", capacity.Available),
		)
	case errors.Is(err, schedule.ErrInfeasible):
		logger.Fatal("no feasible timetable exists for the given inputs")
	case errors.Is(err, schedule.ErrInconclusive):
		logger.Fatal("search gave up before a verdict; raise the budget or timeout", zap.Error(err))
	default:
		logger.Fatal("scheduling failed", zap.Error(err))
	}
}

// printUsage renders every room's week. The ledger already contains this
// run's commits; cells claimed by the current occupants show their labels and
// older entries show as previously occupied.
func printUsage(grid schedule.Grid, rooms schedule.Roster, ledger *schedule.Ledger, core, electives map[schedule.SlotRef]schedule.Occupant) {
	merged := make(map[schedule.SlotRef]schedule.Occupant, len(core)+len(electives))
	for ref, occupant := range core {
		merged[ref] = occupant
	}
	for ref, occupant := range electives {
		merged[ref] = occupant
	}

	for _, room := range rooms.Rooms {
		fmt.Println(schedule.RenderRoomUsage(room.Name, room.Kind, grid, ledger, merged))
	}
}
