// Package components defines the value types shared by the grid engine.
package components

import "fmt"

// Species identifies the occupant of a grid cell.
type Species uint8

const (
	Empty    Species = iota
	SpeciesA         // founding species, placed as a confined cluster
	SpeciesB         // scattered species, introduced later under spacing rules
)

// String returns the lower-case species name used in logs and CSV output.
func (s Species) String() string {
	switch s {
	case Empty:
		return "empty"
	case SpeciesA:
		return "a"
	case SpeciesB:
		return "b"
	default:
		return fmt.Sprintf("species(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler so species serialize by name.
func (s Species) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Species) UnmarshalText(text []byte) error {
	switch string(text) {
	case "empty", "":
		*s = Empty
	case "a", "A":
		*s = SpeciesA
	case "b", "B":
		*s = SpeciesB
	default:
		return fmt.Errorf("unknown species %q", string(text))
	}
	return nil
}

// Cell is a lattice coordinate.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Add returns the cell offset by (dr, dc).
func (c Cell) Add(dr, dc int) Cell {
	return Cell{Row: c.Row + dr, Col: c.Col + dc}
}

// Manhattan returns |dr| + |dc| between two cells.
func (c Cell) Manhattan(o Cell) int {
	return abs(c.Row-o.Row) + abs(c.Col-o.Col)
}

// Adjacent reports whether two cells share an edge.
func (c Cell) Adjacent(o Cell) bool {
	return c.Manhattan(o) == 1
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Directions is the fixed neighbour scan order: up, down, left, right.
// Reproduction and scattered placement both depend on this order for
// reproducible runs.
var Directions = [4]Cell{
	{Row: -1, Col: 0},
	{Row: 1, Col: 0},
	{Row: 0, Col: -1},
	{Row: 0, Col: 1},
}

// Region is a square sub-area of the grid, [Row, Row+Size) × [Col, Col+Size).
type Region struct {
	Row  int `yaml:"row" json:"row"`
	Col  int `yaml:"col" json:"col"`
	Size int `yaml:"size" json:"size"`
}

// Contains reports whether the cell lies inside the region.
func (r Region) Contains(c Cell) bool {
	return c.Row >= r.Row && c.Row < r.Row+r.Size &&
		c.Col >= r.Col && c.Col < r.Col+r.Size
}

// Cells returns the number of cells covered by the region.
func (r Region) Cells() int {
	if r.Size <= 0 {
		return 0
	}
	return r.Size * r.Size
}

// CenteredRegion returns a size×size region centred in a gridSize grid,
// matching the offset gridSize/2 - size/2.
func CenteredRegion(gridSize, size int) Region {
	off := gridSize/2 - size/2
	return Region{Row: off, Col: off, Size: size}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
