package components

import "fmt"

// Origin records how a pair came into existence.
type Origin uint8

const (
	OriginFounded    Origin = iota // step-0 cluster placement
	OriginIntroduced               // scattered introduction
	OriginBorn                     // reproduction
)

func (o Origin) String() string {
	switch o {
	case OriginFounded:
		return "founded"
	case OriginIntroduced:
		return "introduced"
	case OriginBorn:
		return "born"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Origin) UnmarshalText(text []byte) error {
	for _, v := range []Origin{OriginFounded, OriginIntroduced, OriginBorn} {
		if v.String() == string(text) {
			*o = v
			return nil
		}
	}
	return fmt.Errorf("unknown origin %q", text)
}

// PairID is the creation index of a pair. IDs increase monotonically over a
// run and are never reused.
type PairID uint32

// Pair is two edge-adjacent cells of the same species; the atomic unit that
// reproduces and dies.
type Pair struct {
	ID       PairID  `json:"id"`
	Species  Species `json:"species"`
	Cells    [2]Cell `json:"cells"`
	Origin   Origin  `json:"origin"`
	BornStep int     `json:"born_step"`
}

// Contains reports whether c is one of the pair's cells.
func (p Pair) Contains(c Cell) bool {
	return p.Cells[0] == c || p.Cells[1] == c
}

// Valid reports whether the two cells are distinct and adjacent.
func (p Pair) Valid() bool {
	return p.Cells[0].Adjacent(p.Cells[1])
}

// PairDistance is the minimum Manhattan distance between any cell of a and
// any cell of b.
func PairDistance(a, b Pair) int {
	best := a.Cells[0].Manhattan(b.Cells[0])
	for _, ca := range a.Cells {
		for _, cb := range b.Cells {
			if d := ca.Manhattan(cb); d < best {
				best = d
			}
		}
	}
	return best
}

// IDAllocator hands out pair IDs in creation order.
type IDAllocator struct {
	next PairID
}

// Next returns the next unused pair ID.
func (a *IDAllocator) Next() PairID {
	id := a.next
	a.next++
	return id
}

// Peek returns the ID the next call to Next will return.
func (a *IDAllocator) Peek() PairID {
	return a.next
}
