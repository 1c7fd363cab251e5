package systems

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/gridcomp/components"
)

// RelaxedMinDistance is the fallback pair spacing used when the configured
// minimum cannot be met.
const RelaxedMinDistance = 2

var (
	// ErrRegionCapacity is returned when a founding cluster does not fit in
	// its confinement region.
	ErrRegionCapacity = errors.New("confinement region cannot hold requested pairs")
	// ErrPlacementExhausted is returned when scattered placement cannot find
	// a spot even at the relaxed minimum distance.
	ErrPlacementExhausted = errors.New("no free position satisfies minimum pair distance")
)

// PlacementSystem places founding and introduced pairs onto the grid.
type PlacementSystem struct {
	grid *Grid
	rng  *rand.Rand
	ids  *components.IDAllocator
}

// NewPlacementSystem creates a placement system drawing shuffle order from rng.
func NewPlacementSystem(grid *Grid, rng *rand.Rand, ids *components.IDAllocator) *PlacementSystem {
	return &PlacementSystem{grid: grid, rng: rng, ids: ids}
}

// FoundCluster fills region with pairCount pairs of species. The region is
// scanned row-major twice, first laying horizontal pairs and then vertical
// ones into whatever the first pass left over. On failure no cells are
// written.
func (s *PlacementSystem) FoundCluster(species components.Species, pairCount int, region components.Region) ([]components.Pair, error) {
	if pairCount <= 0 {
		return nil, nil
	}
	if 2*pairCount > region.Cells() {
		return nil, fmt.Errorf("%w: %d %s pairs need %d cells, %dx%d region has %d",
			ErrRegionCapacity, pairCount, species, 2*pairCount, region.Size, region.Size, region.Cells())
	}

	used := NewMask(s.grid.Size())
	placed := make([]components.Pair, 0, pairCount)

	passes := [2]components.Cell{{Row: 0, Col: 1}, {Row: 1, Col: 0}}
	for _, ext := range passes {
		for r := region.Row; r < region.Row+region.Size && len(placed) < pairCount; r++ {
			for c := region.Col; c < region.Col+region.Size && len(placed) < pairCount; c++ {
				a := components.Cell{Row: r, Col: c}
				b := a.Add(ext.Row, ext.Col)
				if !region.Contains(b) || used.Has(a) || used.Has(b) {
					continue
				}
				if !s.grid.IsEmpty(a) || !s.grid.IsEmpty(b) {
					continue
				}
				p := components.Pair{Species: species, Cells: [2]components.Cell{a, b}, Origin: components.OriginFounded}
				if err := s.grid.placePair(p); err != nil {
					continue
				}
				used.Set(a)
				used.Set(b)
				placed = append(placed, p)
			}
		}
	}

	if len(placed) < pairCount {
		s.grid.clearPairs(placed)
		return nil, fmt.Errorf("%w: fit %d of %d %s pairs in %dx%d region at %v",
			ErrRegionCapacity, len(placed), pairCount, species, region.Size, region.Size,
			components.Cell{Row: region.Row, Col: region.Col})
	}

	for i := range placed {
		placed[i].ID = s.ids.Next()
	}
	return placed, nil
}

// ScatterResult describes a successful scattered placement.
type ScatterResult struct {
	Pairs []components.Pair
	// Relaxed[i] is true when Pairs[i] only satisfied RelaxedMinDistance.
	Relaxed []bool
}

// RelaxedCount returns how many pairs needed the relaxed spacing.
func (r ScatterResult) RelaxedCount() int {
	n := 0
	for _, v := range r.Relaxed {
		if v {
			n++
		}
	}
	return n
}

// PlaceScattered places pairCount pairs of species on free cells outside
// avoid, keeping every new pair at least minDistance from the others placed
// by this call. Each pair falls back to RelaxedMinDistance when minDistance
// cannot be met. The call is all-or-nothing: if any pair cannot be placed,
// every cell it wrote is cleared and ErrPlacementExhausted is returned.
func (s *PlacementSystem) PlaceScattered(species components.Species, pairCount int, avoid Mask, minDistance int) (ScatterResult, error) {
	var res ScatterResult
	if pairCount <= 0 {
		return res, nil
	}

	size := s.grid.Size()
	candidates := make([]components.Cell, 0, size*size)
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			cell := components.Cell{Row: r, Col: c}
			if s.grid.IsEmpty(cell) && !avoid.Has(cell) {
				candidates = append(candidates, cell)
			}
		}
	}

	placed := make([]components.Pair, 0, pairCount)
	for i := 0; i < pairCount; i++ {
		s.rng.Shuffle(len(candidates), func(a, b int) {
			candidates[a], candidates[b] = candidates[b], candidates[a]
		})

		relaxed := false
		p, ok := s.findScattered(species, candidates, placed, avoid, minDistance)
		if !ok && minDistance > RelaxedMinDistance {
			p, ok = s.findScattered(species, candidates, placed, avoid, RelaxedMinDistance)
			relaxed = ok
		}
		if !ok {
			s.grid.clearPairs(placed)
			return ScatterResult{}, fmt.Errorf("%w: placed %d of %d %s pairs (min distance %d, relaxed %d)",
				ErrPlacementExhausted, len(placed), pairCount, species, minDistance, RelaxedMinDistance)
		}
		if err := s.grid.placePair(p); err != nil {
			s.grid.clearPairs(placed)
			return ScatterResult{}, fmt.Errorf("placing %s pair at %v: %w", species, p.Cells, err)
		}
		placed = append(placed, p)
		res.Relaxed = append(res.Relaxed, relaxed)
	}

	for i := range placed {
		placed[i].ID = s.ids.Next()
	}
	res.Pairs = placed
	return res, nil
}

func (s *PlacementSystem) findScattered(species components.Species, candidates []components.Cell, placed []components.Pair, avoid Mask, minDistance int) (components.Pair, bool) {
	for _, a := range candidates {
		if !s.grid.IsEmpty(a) {
			continue
		}
		for _, d := range components.Directions {
			b := a.Add(d.Row, d.Col)
			if !s.grid.IsEmpty(b) || avoid.Has(b) {
				continue
			}
			p := components.Pair{Species: species, Cells: [2]components.Cell{a, b}, Origin: components.OriginIntroduced}
			if farEnough(p, placed, minDistance) {
				return p, true
			}
		}
	}
	return components.Pair{}, false
}

func farEnough(p components.Pair, placed []components.Pair, minDistance int) bool {
	for _, q := range placed {
		if components.PairDistance(p, q) < minDistance {
			return false
		}
	}
	return true
}
