package systems

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/gridcomp/components"
)

var (
	// ErrOccupiedCell is returned when placing onto a non-empty cell.
	ErrOccupiedCell = errors.New("cell already occupied")
	// ErrOutOfBounds is returned for coordinates outside the lattice.
	ErrOutOfBounds = errors.New("cell out of bounds")
)

// Grid is the Size×Size occupancy lattice stored in row-major order.
// It enforces occupancy only; callers own every other invariant.
type Grid struct {
	size  int
	cells []components.Species
}

// NewGrid allocates an empty size×size grid.
func NewGrid(size int) *Grid {
	if size < 1 {
		size = 1
	}
	return &Grid{size: size, cells: make([]components.Species, size*size)}
}

// Size returns the edge length of the grid.
func (g *Grid) Size() int { return g.size }

// InBounds reports whether c lies on the grid.
func (g *Grid) InBounds(c components.Cell) bool {
	return c.Row >= 0 && c.Row < g.size && c.Col >= 0 && c.Col < g.size
}

func (g *Grid) index(c components.Cell) int { return c.Row*g.size + c.Col }

// At returns the occupant of c. Off-grid cells read as Empty.
func (g *Grid) At(c components.Cell) components.Species {
	if !g.InBounds(c) {
		return components.Empty
	}
	return g.cells[g.index(c)]
}

// IsEmpty reports whether c is on the grid and unoccupied.
func (g *Grid) IsEmpty(c components.Cell) bool {
	return g.InBounds(c) && g.cells[g.index(c)] == components.Empty
}

// Place writes species into an empty cell.
func (g *Grid) Place(c components.Cell, species components.Species) error {
	if !g.InBounds(c) {
		return fmt.Errorf("place %v: %w", c, ErrOutOfBounds)
	}
	idx := g.index(c)
	if g.cells[idx] != components.Empty {
		return fmt.Errorf("place %v: %w", c, ErrOccupiedCell)
	}
	g.cells[idx] = species
	return nil
}

// Clear empties c. Clearing an off-grid or empty cell is a no-op.
func (g *Grid) Clear(c components.Cell) {
	if g.InBounds(c) {
		g.cells[g.index(c)] = components.Empty
	}
}

// Reset empties every cell.
func (g *Grid) Reset() {
	for i := range g.cells {
		g.cells[i] = components.Empty
	}
}

// Count returns the number of cells holding species.
func (g *Grid) Count(species components.Species) int {
	n := 0
	for _, s := range g.cells {
		if s == species {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the row-major cell states.
func (g *Grid) Snapshot() []components.Species {
	return append([]components.Species(nil), g.cells...)
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	return &Grid{size: g.size, cells: g.Snapshot()}
}

// Equal reports whether two grids hold identical states.
func (g *Grid) Equal(o *Grid) bool {
	if g.size != o.size {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// placePair writes both cells of p, undoing the first write if the second
// fails.
func (g *Grid) placePair(p components.Pair) error {
	if err := g.Place(p.Cells[0], p.Species); err != nil {
		return err
	}
	if err := g.Place(p.Cells[1], p.Species); err != nil {
		g.Clear(p.Cells[0])
		return err
	}
	return nil
}

// clearPairs empties the cells of every pair in pairs.
func (g *Grid) clearPairs(pairs []components.Pair) {
	for _, p := range pairs {
		g.Clear(p.Cells[0])
		g.Clear(p.Cells[1])
	}
}

// Mask is a per-cell boolean overlay aligned with a grid.
type Mask struct {
	size int
	bits []bool
}

// NewMask returns an all-false mask for a size×size grid.
func NewMask(size int) Mask {
	return Mask{size: size, bits: make([]bool, size*size)}
}

// Has reports whether c is set. Off-grid cells are never set.
func (m Mask) Has(c components.Cell) bool {
	if m.bits == nil || c.Row < 0 || c.Row >= m.size || c.Col < 0 || c.Col >= m.size {
		return false
	}
	return m.bits[c.Row*m.size+c.Col]
}

// Set marks c.
func (m Mask) Set(c components.Cell) {
	if c.Row < 0 || c.Row >= m.size || c.Col < 0 || c.Col >= m.size {
		return
	}
	m.bits[c.Row*m.size+c.Col] = true
}

// Union returns a new mask set wherever either input is set.
func (m Mask) Union(o Mask) Mask {
	out := NewMask(m.size)
	for i := range out.bits {
		out.bits[i] = m.bits[i] || (i < len(o.bits) && o.bits[i])
	}
	return out
}

// Count returns the number of set cells.
func (m Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// SpeciesMask marks every cell currently holding species.
func SpeciesMask(g *Grid, species components.Species) Mask {
	m := NewMask(g.size)
	for i, s := range g.cells {
		m.bits[i] = s == species
	}
	return m
}

// RegionMask marks every cell inside region.
func RegionMask(size int, region components.Region) Mask {
	m := NewMask(size)
	for r := region.Row; r < region.Row+region.Size; r++ {
		for c := region.Col; c < region.Col+region.Size; c++ {
			m.Set(components.Cell{Row: r, Col: c})
		}
	}
	return m
}
