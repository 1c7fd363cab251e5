package telemetry

import (
	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/systems"
)

// Collector accumulates per-step birth and death counts and produces
// StepStats.
type Collector struct {
	gridCells int

	birthsA int
	birthsB int
	deathsA int
	deathsB int
}

// NewCollector creates a stats collector for a grid with gridCells cells.
func NewCollector(gridCells int) *Collector {
	if gridCells < 1 {
		gridCells = 1
	}
	return &Collector{gridCells: gridCells}
}

// RecordBirths records reproduction results.
func (c *Collector) RecordBirths(births []systems.Birth) {
	for _, b := range births {
		if b.Species == components.SpeciesA {
			c.birthsA++
		} else {
			c.birthsB++
		}
	}
}

// RecordDeaths records mortality results.
func (c *Collector) RecordDeaths(deaths []systems.Death) {
	for _, d := range deaths {
		if d.Species == components.SpeciesA {
			c.deathsA++
		} else {
			c.deathsB++
		}
	}
}

// Flush produces the StepStats for step and resets counters for the next
// step. countA and countB are individual (cell) counts.
func (c *Collector) Flush(step, countA, countB int) StepStats {
	stats := StepStats{
		Step:      step,
		CountA:    countA,
		CountB:    countB,
		BirthsA:   c.birthsA,
		BirthsB:   c.birthsB,
		DeathsA:   c.deathsA,
		DeathsB:   c.deathsB,
		Occupancy: float64(countA+countB) / float64(c.gridCells),
	}

	c.birthsA = 0
	c.birthsB = 0
	c.deathsA = 0
	c.deathsB = 0

	return stats
}
