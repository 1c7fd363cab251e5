package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/gridcomp/components"
)

// PopulationSnapshot is the individual count of each species after a step.
// Counts are cells, i.e. twice the number of pairs.
type PopulationSnapshot struct {
	Step   int `csv:"step"`
	CountA int `csv:"count_a"`
	CountB int `csv:"count_b"`
}

// Count returns the snapshot count for species.
func (p PopulationSnapshot) Count(species components.Species) int {
	switch species {
	case components.SpeciesA:
		return p.CountA
	case components.SpeciesB:
		return p.CountB
	default:
		return 0
	}
}

// StepStats holds the per-step activity summary.
type StepStats struct {
	Step   int `csv:"step"`
	CountA int `csv:"count_a"`
	CountB int `csv:"count_b"`

	BirthsA int `csv:"births_a"`
	BirthsB int `csv:"births_b"`
	DeathsA int `csv:"deaths_a"`
	DeathsB int `csv:"deaths_b"`

	// Fraction of grid cells occupied by either species
	Occupancy float64 `csv:"occupancy"`
}

// Snapshot returns the population part of the stats.
func (s StepStats) Snapshot() PopulationSnapshot {
	return PopulationSnapshot{Step: s.Step, CountA: s.CountA, CountB: s.CountB}
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", s.Step),
		slog.Int("count_a", s.CountA),
		slog.Int("count_b", s.CountB),
		slog.Int("births", s.BirthsA+s.BirthsB),
		slog.Int("deaths", s.DeathsA+s.DeathsB),
		slog.Float64("occupancy", s.Occupancy),
	)
}

// SeriesSummary describes one species' population time course.
type SeriesSummary struct {
	Species  components.Species
	Initial  int
	Final    int
	Peak     int
	PeakStep int
	Mean     float64
	StdDev   float64
	Median   float64
	// Trend is the least-squares slope in individuals per step.
	Trend float64
}

// Survived reports whether the species is still present at the end.
func (s SeriesSummary) Survived() bool { return s.Final > 0 }

// Summarize computes series statistics for species over snaps.
func Summarize(snaps []PopulationSnapshot, species components.Species) SeriesSummary {
	sum := SeriesSummary{Species: species}
	n := len(snaps)
	if n == 0 {
		return sum
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, s := range snaps {
		c := s.Count(species)
		xs[i] = float64(s.Step)
		ys[i] = float64(c)
		if i == 0 || c > sum.Peak {
			sum.Peak = c
			sum.PeakStep = s.Step
		}
	}
	sum.Initial = snaps[0].Count(species)
	sum.Final = snaps[n-1].Count(species)

	sum.Mean = stat.Mean(ys, nil)
	if n > 1 {
		sum.StdDev = stat.StdDev(ys, nil)
		_, beta := stat.LinearRegression(xs, ys, nil, false)
		if !math.IsNaN(beta) {
			sum.Trend = beta
		}
	}

	sorted := append([]float64(nil), ys...)
	sort.Float64s(sorted)
	sum.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	return sum
}

// Introduced returns the first snapshot step at which species is present,
// or -1 if it never appears.
func Introduced(snaps []PopulationSnapshot, species components.Species) int {
	for _, s := range snaps {
		if s.Count(species) > 0 {
			return s.Step
		}
	}
	return -1
}
