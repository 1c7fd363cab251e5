package telemetry

import (
	"time"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/config"
	"github.com/pthm-cable/gridcomp/systems"
)

// RunResult is everything a finished run hands to its reporters.
type RunResult struct {
	RunID   string
	Config  *config.Config
	Seed    int64
	Started time.Time
	Elapsed time.Duration

	// Steps is the number of steps executed, including step 0.
	Steps int

	Events     []Event
	Population []PopulationSnapshot
	Stats      []StepStats
	Bookmarks  []Bookmark
	Perf       []PerfStatsCSV

	// RelaxedPlacements counts scattered pairs placed at the relaxed spacing.
	RelaxedPlacements int

	// Validation is the report from before any repair.
	Validation systems.ValidationReport
	// Repair is nil when validation passed.
	Repair *systems.RepairReport

	PairsA []components.Pair
	PairsB []components.Pair
	Final  GridSnapshot
}

// FinalCount returns the individual count of species at the end of the run.
func (r *RunResult) FinalCount(species components.Species) int {
	switch species {
	case components.SpeciesA:
		return 2 * len(r.PairsA)
	case components.SpeciesB:
		return 2 * len(r.PairsB)
	default:
		return 0
	}
}

// Outcome names the end state of the competition.
func (r *RunResult) Outcome() string {
	a, b := r.FinalCount(components.SpeciesA), r.FinalCount(components.SpeciesB)
	switch {
	case a == 0 && b == 0:
		return "both species extinct"
	case b == 0:
		return "species a only"
	case a == 0:
		return "species b only"
	default:
		return "coexistence"
	}
}
