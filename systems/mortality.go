package systems

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pthm-cable/gridcomp/components"
)

// Death records one pair removed by illness.
type Death struct {
	Step    int
	Species components.Species
	Pair    components.PairID
	Cells   [2]components.Cell
}

// MortalitySystem removes a fixed fraction of pairs per species each step.
type MortalitySystem struct {
	grid *Grid
	rng  *rand.Rand
}

// NewMortalitySystem creates a mortality system sampling from rng.
func NewMortalitySystem(grid *Grid, rng *rand.Rand) *MortalitySystem {
	return &MortalitySystem{grid: grid, rng: rng}
}

// DeathCount returns floor(n * rate), clamped to [0, n].
func DeathCount(n int, rate float64) int {
	if n <= 0 || rate <= 0 {
		return 0
	}
	k := int(math.Floor(float64(n) * rate))
	if k > n {
		k = n
	}
	return k
}

// Update removes DeathCount(len(pairs), rate) pairs chosen uniformly without
// replacement, clears their cells, and returns the survivors as a new slice
// in their original order. Deaths are reported in descending index order.
// The rng is not touched when nobody dies.
func (s *MortalitySystem) Update(pairs []components.Pair, rate float64, step int) ([]components.Pair, []Death) {
	k := DeathCount(len(pairs), rate)
	if k == 0 {
		return pairs, nil
	}

	victims := s.rng.Perm(len(pairs))[:k]
	sort.Sort(sort.Reverse(sort.IntSlice(victims)))

	removed := make(map[int]struct{}, k)
	deaths := make([]Death, 0, k)
	for _, idx := range victims {
		p := pairs[idx]
		s.grid.Clear(p.Cells[0])
		s.grid.Clear(p.Cells[1])
		removed[idx] = struct{}{}
		deaths = append(deaths, Death{Step: step, Species: p.Species, Pair: p.ID, Cells: p.Cells})
	}

	survivors := make([]components.Pair, 0, len(pairs)-k)
	for i, p := range pairs {
		if _, dead := removed[i]; !dead {
			survivors = append(survivors, p)
		}
	}
	return survivors, deaths
}
