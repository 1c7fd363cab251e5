package systems

import "github.com/pthm-cable/gridcomp/components"

// Birth records one offspring pair.
type Birth struct {
	Step        int
	Species     components.Species
	Parent      components.PairID
	Child       components.PairID
	ParentCells [2]components.Cell
	ChildCells  [2]components.Cell
}

// ReproductionSystem lets every pair try to produce one offspring pair per
// step in the first free two-cell slot next to it. It draws no randomness.
type ReproductionSystem struct {
	grid *Grid
	ids  *components.IDAllocator
}

// NewReproductionSystem creates a reproduction system.
func NewReproductionSystem(grid *Grid, ids *components.IDAllocator) *ReproductionSystem {
	return &ReproductionSystem{grid: grid, ids: ids}
}

// Update scans pairs in order and returns the offspring and birth records.
// Offspring cells are written to the grid immediately, so later parents in
// the same scan see them as occupied, but the offspring themselves are only
// returned; the caller merges them after every species has been scanned so
// they cannot breed in the step they were born.
func (s *ReproductionSystem) Update(pairs []components.Pair, step int) ([]components.Pair, []Birth) {
	var offspring []components.Pair
	var births []Birth

	for _, parent := range pairs {
		child, ok := s.breed(parent)
		if !ok {
			continue
		}
		child.ID = s.ids.Next()
		child.BornStep = step
		offspring = append(offspring, child)
		births = append(births, Birth{
			Step:        step,
			Species:     parent.Species,
			Parent:      parent.ID,
			Child:       child.ID,
			ParentCells: parent.Cells,
			ChildCells:  child.Cells,
		})
	}
	return offspring, births
}

// breed tries each parent cell as an anchor. Per anchor only the first empty
// neighbour is considered; if that neighbour has no second empty neighbour
// the anchor yields nothing and the next anchor is tried.
func (s *ReproductionSystem) breed(parent components.Pair) (components.Pair, bool) {
	for _, anchor := range parent.Cells {
		first, ok := s.firstEmptyNeighbor(anchor, anchor)
		if !ok {
			continue
		}
		second, ok := s.firstEmptyNeighbor(first, anchor)
		if !ok {
			continue
		}
		child := components.Pair{
			Species: parent.Species,
			Cells:   [2]components.Cell{first, second},
			Origin:  components.OriginBorn,
		}
		if err := s.grid.placePair(child); err != nil {
			continue
		}
		return child, true
	}
	return components.Pair{}, false
}

func (s *ReproductionSystem) firstEmptyNeighbor(c, exclude components.Cell) (components.Cell, bool) {
	for _, d := range components.Directions {
		n := c.Add(d.Row, d.Col)
		if n != exclude && s.grid.IsEmpty(n) {
			return n, true
		}
	}
	return components.Cell{}, false
}
