package systems

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/gridcomp/components"
)

// ViolationKind classifies a consistency finding.
type ViolationKind string

const (
	ViolationOffGrid   ViolationKind = "off_grid"
	ViolationOverlap   ViolationKind = "overlap"
	ViolationMismatch  ViolationKind = "species_mismatch"
	ViolationUnclaimed ViolationKind = "unclaimed"
	ViolationMalformed ViolationKind = "malformed_pair"
	ViolationTooClose  ViolationKind = "too_close"
)

// NoPair marks a violation field that names no pair, e.g. on unclaimed
// cells.
const NoPair = components.PairID(1<<32 - 1)

// Violation is one finding from Validate.
type Violation struct {
	Kind     ViolationKind
	Species  components.Species
	Pair     components.PairID // NoPair when no pair is involved
	Cell     components.Cell
	Other    components.PairID // competing pair for overlap and spacing findings, else NoPair
	Distance int
	Detail   string
}

func (v Violation) String() string {
	if v.Pair == NoPair {
		return fmt.Sprintf("%s %s at %v: %s", v.Kind, v.Species, v.Cell, v.Detail)
	}
	return fmt.Sprintf("%s %s pair %d at %v: %s", v.Kind, v.Species, v.Pair, v.Cell, v.Detail)
}

// ValidationReport is the outcome of Validate.
type ValidationReport struct {
	OK         bool
	Violations []Violation
}

// Count returns how many violations of kind were found.
func (r ValidationReport) Count(kind ViolationKind) int {
	n := 0
	for _, v := range r.Violations {
		if v.Kind == kind {
			n++
		}
	}
	return n
}

// LogValue implements slog.LogValuer.
func (r ValidationReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("ok", r.OK),
		slog.Int("violations", len(r.Violations)),
		slog.Int("overlap", r.Count(ViolationOverlap)),
		slog.Int("mismatch", r.Count(ViolationMismatch)),
		slog.Int("unclaimed", r.Count(ViolationUnclaimed)),
		slog.Int("too_close", r.Count(ViolationTooClose)),
	)
}

// SpacingScope selects which species B pairs Validate checks for spacing.
type SpacingScope string

const (
	// SpacingAll checks every species B pair against every other.
	SpacingAll SpacingScope = "all"
	// SpacingIntroduced checks only pairs placed by the scattered
	// introduction. Offspring sit next to their parents, so under SpacingAll
	// any run in which species B breeds reports too_close findings.
	SpacingIntroduced SpacingScope = "introduced"
)

// ParseSpacingScope validates a scope name. Empty selects SpacingAll.
func ParseSpacingScope(s string) (SpacingScope, error) {
	switch SpacingScope(s) {
	case "", SpacingAll:
		return SpacingAll, nil
	case SpacingIntroduced:
		return SpacingIntroduced, nil
	default:
		return "", fmt.Errorf("unknown spacing scope %q", s)
	}
}

// Validate checks the state with SpacingAll.
func Validate(grid *Grid, pairsA, pairsB []components.Pair) ValidationReport {
	return ValidateScoped(grid, pairsA, pairsB, SpacingAll)
}

// ValidateScoped re-derives occupancy from the authoritative pair lists and
// checks it against the grid. Species A pairs are claimed before species B
// pairs, so an overlap is always attributed to the later claimant. Species B
// pairs selected by scope must lie at least RelaxedMinDistance apart.
func ValidateScoped(grid *Grid, pairsA, pairsB []components.Pair, scope SpacingScope) ValidationReport {
	size := grid.Size()
	owner := make([]int64, size*size)
	for i := range owner {
		owner[i] = -1
	}

	var out []Violation
	claim := func(pairs []components.Pair) {
		for _, p := range pairs {
			if !p.Valid() {
				out = append(out, Violation{
					Kind: ViolationMalformed, Species: p.Species, Pair: p.ID, Cell: p.Cells[0], Other: NoPair,
					Detail: fmt.Sprintf("cells %v and %v are not adjacent", p.Cells[0], p.Cells[1]),
				})
			}
			for _, c := range p.Cells {
				if !grid.InBounds(c) {
					out = append(out, Violation{
						Kind: ViolationOffGrid, Species: p.Species, Pair: p.ID, Cell: c, Other: NoPair,
						Detail: "cell outside grid",
					})
					continue
				}
				idx := c.Row*size + c.Col
				if prev := owner[idx]; prev >= 0 {
					out = append(out, Violation{
						Kind: ViolationOverlap, Species: p.Species, Pair: p.ID, Cell: c,
						Other:  components.PairID(prev),
						Detail: fmt.Sprintf("cell already claimed by pair %d", prev),
					})
				} else {
					owner[idx] = int64(p.ID)
				}
				if got := grid.At(c); got != p.Species {
					out = append(out, Violation{
						Kind: ViolationMismatch, Species: p.Species, Pair: p.ID, Cell: c, Other: NoPair,
						Detail: fmt.Sprintf("grid holds %s", got),
					})
				}
			}
		}
	}
	claim(pairsA)
	claim(pairsB)

	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			cell := components.Cell{Row: r, Col: c}
			if sp := grid.At(cell); sp != components.Empty && owner[r*size+c] < 0 {
				out = append(out, Violation{
					Kind: ViolationUnclaimed, Species: sp, Cell: cell, Pair: NoPair, Other: NoPair,
					Detail: "occupied cell belongs to no pair",
				})
			}
		}
	}

	spaced := pairsB
	if scope == SpacingIntroduced {
		spaced = nil
		for _, p := range pairsB {
			if p.Origin == components.OriginIntroduced {
				spaced = append(spaced, p)
			}
		}
	}
	for i := range spaced {
		for j := i + 1; j < len(spaced); j++ {
			if d := components.PairDistance(spaced[i], spaced[j]); d < RelaxedMinDistance {
				out = append(out, Violation{
					Kind: ViolationTooClose, Species: spaced[i].Species,
					Pair: spaced[i].ID, Cell: spaced[i].Cells[0],
					Other: spaced[j].ID, Distance: d,
					Detail: fmt.Sprintf("pairs %d and %d at distance %d", spaced[i].ID, spaced[j].ID, d),
				})
			}
		}
	}

	return ValidationReport{OK: len(out) == 0, Violations: out}
}

// RepairPolicy decides what happens to a pair that loses a cell during
// Repair.
type RepairPolicy string

const (
	// RepairKeepOrphans leaves half-placed pairs in the population. The pair
	// list then disagrees with the grid for those pairs.
	RepairKeepOrphans RepairPolicy = "keep-orphans"
	// RepairDropOrphans removes half-placed pairs and clears their surviving
	// cell, leaving a fully consistent state.
	RepairDropOrphans RepairPolicy = "drop-orphans"
)

// ParseRepairPolicy validates a policy name. Empty selects RepairKeepOrphans.
func ParseRepairPolicy(s string) (RepairPolicy, error) {
	switch RepairPolicy(s) {
	case "", RepairKeepOrphans:
		return RepairKeepOrphans, nil
	case RepairDropOrphans:
		return RepairDropOrphans, nil
	default:
		return "", fmt.Errorf("unknown repair policy %q", s)
	}
}

// Collision is a cell write skipped during Repair because the cell was
// already taken (or lies off the grid).
type Collision struct {
	Species components.Species
	Pair    components.PairID
	Cell    components.Cell
	Holder  components.Species
}

// RepairReport is the outcome of Repair.
type RepairReport struct {
	Policy     RepairPolicy
	Collisions []Collision
	// Orphaned lists pairs that lost at least one cell.
	Orphaned []components.PairID
	// PairsA and PairsB are the populations after repair. Under
	// RepairKeepOrphans they equal the inputs.
	PairsA []components.Pair
	PairsB []components.Pair
}

// Repair clears the grid and replays pairsA then pairsB in order. The first
// writer of a cell keeps it; every later write is skipped and recorded.
func Repair(grid *Grid, pairsA, pairsB []components.Pair, policy RepairPolicy) RepairReport {
	rep := RepairReport{Policy: policy}
	grid.Reset()

	replay := func(pairs []components.Pair) []components.Pair {
		kept := make([]components.Pair, 0, len(pairs))
		for _, p := range pairs {
			var wrote []components.Cell
			lost := false
			for _, c := range p.Cells {
				if err := grid.Place(c, p.Species); err != nil {
					rep.Collisions = append(rep.Collisions, Collision{
						Species: p.Species, Pair: p.ID, Cell: c, Holder: grid.At(c),
					})
					lost = true
					continue
				}
				wrote = append(wrote, c)
			}
			if !lost {
				kept = append(kept, p)
				continue
			}
			rep.Orphaned = append(rep.Orphaned, p.ID)
			if policy == RepairDropOrphans {
				for _, c := range wrote {
					grid.Clear(c)
				}
				continue
			}
			kept = append(kept, p)
		}
		return kept
	}

	rep.PairsA = replay(pairsA)
	rep.PairsB = replay(pairsB)
	return rep
}
