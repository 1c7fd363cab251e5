package systems

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/pthm-cable/gridcomp/components"
)

func newPlacement(size int, seed int64) (*Grid, *PlacementSystem) {
	g := NewGrid(size)
	return g, NewPlacementSystem(g, rand.New(rand.NewSource(seed)), &components.IDAllocator{})
}

func TestFoundClusterFillsRegion(t *testing.T) {
	for _, r := range []int{2, 3, 4, 5, 7, 8, 15} {
		for _, k := range []int{1, r * r / 2} {
			g, ps := newPlacement(30, 1)
			region := components.CenteredRegion(30, r)

			pairs, err := ps.FoundCluster(components.SpeciesA, k, region)
			if err != nil {
				t.Fatalf("R=%d K=%d: %v", r, k, err)
			}
			if len(pairs) != k {
				t.Fatalf("R=%d K=%d: got %d pairs", r, k, len(pairs))
			}
			for i, p := range pairs {
				if p.ID != components.PairID(i) {
					t.Errorf("R=%d K=%d: pair %d has ID %d", r, k, i, p.ID)
				}
				if !p.Valid() || p.Species != components.SpeciesA || p.Origin != components.OriginFounded {
					t.Errorf("R=%d K=%d: bad pair %+v", r, k, p)
				}
				for _, c := range p.Cells {
					if !region.Contains(c) {
						t.Errorf("R=%d K=%d: cell %v outside region", r, k, c)
					}
				}
			}
			if got := g.Count(components.SpeciesA); got != 2*k {
				t.Errorf("R=%d K=%d: grid holds %d cells, want %d", r, k, got, 2*k)
			}
		}
	}
}

func TestFoundClusterHorizontalPassFirst(t *testing.T) {
	_, ps := newPlacement(6, 1)
	pairs, err := ps.FoundCluster(components.SpeciesA, 3, components.Region{Row: 0, Col: 0, Size: 3})
	if err != nil {
		t.Fatal(err)
	}

	want := [][2]components.Cell{
		{{Row: 0, Col: 0}, {Row: 0, Col: 1}},
		{{Row: 1, Col: 0}, {Row: 1, Col: 1}},
		{{Row: 2, Col: 0}, {Row: 2, Col: 1}},
	}
	for i, p := range pairs {
		if p.Cells != want[i] {
			t.Errorf("pair %d = %v, want %v", i, p.Cells, want[i])
		}
	}

	// The fourth pair only fits vertically in the leftover column.
	_, ps = newPlacement(6, 1)
	pairs, err = ps.FoundCluster(components.SpeciesA, 4, components.Region{Row: 0, Col: 0, Size: 3})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := pairs[3].Cells, [2]components.Cell{{Row: 0, Col: 2}, {Row: 1, Col: 2}}; got != want {
		t.Errorf("vertical pair = %v, want %v", got, want)
	}
}

func TestFoundClusterOverCapacity(t *testing.T) {
	g, ps := newPlacement(10, 1)
	_, err := ps.FoundCluster(components.SpeciesA, 5, components.Region{Row: 2, Col: 2, Size: 3})
	if !errors.Is(err, ErrRegionCapacity) {
		t.Fatalf("err = %v, want ErrRegionCapacity", err)
	}
	if n := g.Count(components.SpeciesA); n != 0 {
		t.Errorf("failed cluster left %d cells on the grid", n)
	}
}

func TestFoundClusterRespectsOccupiedCells(t *testing.T) {
	g, ps := newPlacement(4, 1)
	blocker := components.Cell{Row: 0, Col: 0}
	_ = g.Place(blocker, components.SpeciesB)
	region := components.Region{Row: 0, Col: 0, Size: 2}

	if _, err := ps.FoundCluster(components.SpeciesA, 2, region); !errors.Is(err, ErrRegionCapacity) {
		t.Fatalf("err = %v, want ErrRegionCapacity", err)
	}
	if g.Count(components.SpeciesA) != 0 || g.At(blocker) != components.SpeciesB {
		t.Fatal("rollback must restore the grid exactly")
	}

	pairs, err := ps.FoundCluster(components.SpeciesA, 1, region)
	if err != nil {
		t.Fatal(err)
	}
	if want := [2]components.Cell{{Row: 1, Col: 0}, {Row: 1, Col: 1}}; pairs[0].Cells != want {
		t.Errorf("pair = %v, want %v", pairs[0].Cells, want)
	}
}

func TestPlaceScatteredSpacing(t *testing.T) {
	const size = 50
	g, ps := newPlacement(size, 42)
	center := components.CenteredRegion(size, 15)
	avoid := RegionMask(size, center)

	res, err := ps.PlaceScattered(components.SpeciesB, 125, avoid, 6)
	if err != nil {
		t.Fatalf("PlaceScattered: %v", err)
	}
	if len(res.Pairs) != 125 || len(res.Relaxed) != 125 {
		t.Fatalf("got %d pairs / %d flags, want 125", len(res.Pairs), len(res.Relaxed))
	}
	if got := g.Count(components.SpeciesB); got != 250 {
		t.Fatalf("grid holds %d b cells, want 250", got)
	}

	for i, p := range res.Pairs {
		if !p.Valid() || p.Origin != components.OriginIntroduced {
			t.Fatalf("pair %d malformed: %+v", i, p)
		}
		for _, c := range p.Cells {
			if avoid.Has(c) {
				t.Fatalf("pair %d cell %v inside avoid mask", i, c)
			}
		}
		want := 6
		if res.Relaxed[i] {
			want = RelaxedMinDistance
		}
		for j := 0; j < i; j++ {
			if d := components.PairDistance(p, res.Pairs[j]); d < want {
				t.Fatalf("pair %d is %d from pair %d, want >= %d", i, d, j, want)
			}
		}
	}
}

func TestPlaceScatteredDeterministic(t *testing.T) {
	place := func() []components.Pair {
		_, ps := newPlacement(30, 7)
		res, err := ps.PlaceScattered(components.SpeciesB, 20, NewMask(30), 6)
		if err != nil {
			t.Fatal(err)
		}
		return res.Pairs
	}
	a, b := place(), place()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("pair %d differs between runs with the same seed: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestPlaceScatteredExhaustedIsAllOrNothing(t *testing.T) {
	const size = 12
	run := func() (*Grid, error) {
		g, ps := newPlacement(size, 42)
		avoid := RegionMask(size, components.CenteredRegion(size, 4))
		_, err := ps.PlaceScattered(components.SpeciesB, 60, avoid, 6)
		return g, err
	}

	g1, err1 := run()
	if !errors.Is(err1, ErrPlacementExhausted) {
		t.Fatalf("err = %v, want ErrPlacementExhausted", err1)
	}
	if n := g1.Count(components.SpeciesB); n != 0 {
		t.Errorf("failed placement left %d cells on the grid", n)
	}

	_, err2 := run()
	if err2 == nil || err1.Error() != err2.Error() {
		t.Errorf("same seed should fail identically:\n%v\n%v", err1, err2)
	}
}

func TestPlaceScatteredExhaustedOnFullGrid(t *testing.T) {
	if testing.Short() {
		t.Skip("fills a 50x50 grid")
	}
	const size = 50
	avoid := RegionMask(size, components.CenteredRegion(size, 15))
	// More pairs than the free cells can hold even at the relaxed distance.
	count := (size*size-avoid.Count())/2 + 1

	run := func() (*Grid, error) {
		g, ps := newPlacement(size, 42)
		_, err := ps.PlaceScattered(components.SpeciesB, count, avoid, 6)
		return g, err
	}

	g1, err1 := run()
	if !errors.Is(err1, ErrPlacementExhausted) {
		t.Fatalf("err = %v, want ErrPlacementExhausted", err1)
	}
	if n := g1.Count(components.SpeciesB); n != 0 {
		t.Errorf("failed placement left %d cells on the grid", n)
	}

	g2, err2 := run()
	if err2 == nil || err1.Error() != err2.Error() {
		t.Errorf("same seed should fail identically:\n%v\n%v", err1, err2)
	}
	if !g1.Equal(g2) {
		t.Error("grids differ after identical failures")
	}
}

func TestPlaceScatteredSkipsOccupiedCells(t *testing.T) {
	const size = 6
	g, ps := newPlacement(size, 3)
	// Fill every cell except one horizontal domino; nothing is masked, so
	// only the grid itself keeps the pair off occupied cells.
	free := [2]components.Cell{{Row: 2, Col: 3}, {Row: 2, Col: 4}}
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			cell := components.Cell{Row: r, Col: c}
			if cell == free[0] || cell == free[1] {
				continue
			}
			if err := g.Place(cell, components.SpeciesA); err != nil {
				t.Fatal(err)
			}
		}
	}

	res, err := ps.PlaceScattered(components.SpeciesB, 1, NewMask(size), 6)
	if err != nil {
		t.Fatalf("PlaceScattered: %v", err)
	}
	got := res.Pairs[0].Cells
	if !(got == free || got == [2]components.Cell{free[1], free[0]}) {
		t.Errorf("pair = %v, want the free domino %v", got, free)
	}
	if g.Count(components.SpeciesA) != size*size-2 || g.Count(components.SpeciesB) != 2 {
		t.Errorf("grid a=%d b=%d", g.Count(components.SpeciesA), g.Count(components.SpeciesB))
	}

	if _, err := ps.PlaceScattered(components.SpeciesB, 1, NewMask(size), 6); !errors.Is(err, ErrPlacementExhausted) {
		t.Fatalf("err = %v, want ErrPlacementExhausted on a full grid", err)
	}
	if g.Count(components.SpeciesB) != 2 {
		t.Error("failed placement changed the grid")
	}
}

func TestPlaceScatteredPartnerOutsideMask(t *testing.T) {
	g, ps := newPlacement(2, 1)
	avoid := NewMask(2)
	avoid.Set(components.Cell{Row: 0, Col: 1})
	avoid.Set(components.Cell{Row: 1, Col: 0})
	avoid.Set(components.Cell{Row: 1, Col: 1})

	if _, err := ps.PlaceScattered(components.SpeciesB, 1, avoid, 6); !errors.Is(err, ErrPlacementExhausted) {
		t.Fatalf("err = %v, want ErrPlacementExhausted", err)
	}
	if g.Count(components.SpeciesB) != 0 {
		t.Error("no cells should be written")
	}
}
