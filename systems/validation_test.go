package systems

import (
	"testing"

	"github.com/pthm-cable/gridcomp/components"
)

// consistentState builds a 10×10 grid with two A pairs, two spaced
// introduced B pairs and one spaced B offspring.
func consistentState(t *testing.T) (*Grid, []components.Pair, []components.Pair) {
	t.Helper()
	g := NewGrid(10)
	ids := &components.IDAllocator{}
	a := placePairs(t, g, ids, components.SpeciesA, components.OriginFounded,
		[2]components.Cell{{Row: 4, Col: 4}, {Row: 4, Col: 5}},
		[2]components.Cell{{Row: 5, Col: 4}, {Row: 5, Col: 5}},
	)
	b := placePairs(t, g, ids, components.SpeciesB, components.OriginIntroduced,
		[2]components.Cell{{Row: 0, Col: 0}, {Row: 0, Col: 1}},
		[2]components.Cell{{Row: 0, Col: 8}, {Row: 1, Col: 8}},
	)
	b = append(b, placePairs(t, g, ids, components.SpeciesB, components.OriginBorn,
		[2]components.Cell{{Row: 3, Col: 0}, {Row: 3, Col: 1}},
	)...)
	return g, a, b
}

func TestValidateConsistentState(t *testing.T) {
	g, a, b := consistentState(t)
	r := Validate(g, a, b)
	if !r.OK || len(r.Violations) != 0 {
		t.Fatalf("expected clean report, got %v", r.Violations)
	}
}

func TestValidateFindings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *Grid, a, b []components.Pair) ([]components.Pair, []components.Pair)
		kind   ViolationKind
	}{
		{
			name: "overlap across species",
			mutate: func(g *Grid, a, b []components.Pair) ([]components.Pair, []components.Pair) {
				b = append(b, components.Pair{ID: 99, Species: components.SpeciesB,
					Cells: [2]components.Cell{{Row: 4, Col: 5}, {Row: 4, Col: 6}}, Origin: components.OriginBorn})
				return a, b
			},
			kind: ViolationOverlap,
		},
		{
			name: "grid disagrees with pair",
			mutate: func(g *Grid, a, b []components.Pair) ([]components.Pair, []components.Pair) {
				g.Clear(components.Cell{Row: 4, Col: 4})
				return a, b
			},
			kind: ViolationMismatch,
		},
		{
			name: "stray occupied cell",
			mutate: func(g *Grid, a, b []components.Pair) ([]components.Pair, []components.Pair) {
				_ = g.Place(components.Cell{Row: 9, Col: 9}, components.SpeciesA)
				return a, b
			},
			kind: ViolationUnclaimed,
		},
		{
			name: "introduced pairs touching",
			mutate: func(g *Grid, a, b []components.Pair) ([]components.Pair, []components.Pair) {
				p := components.Pair{ID: 50, Species: components.SpeciesB,
					Cells: [2]components.Cell{{Row: 2, Col: 8}, {Row: 3, Col: 8}}, Origin: components.OriginIntroduced}
				_ = g.placePair(p)
				return a, append(b, p)
			},
			kind: ViolationTooClose,
		},
		{
			name: "off grid",
			mutate: func(g *Grid, a, b []components.Pair) ([]components.Pair, []components.Pair) {
				return append(a, components.Pair{ID: 60, Species: components.SpeciesA,
					Cells: [2]components.Cell{{Row: 9, Col: 9}, {Row: 9, Col: 10}}}), b
			},
			kind: ViolationOffGrid,
		},
		{
			name: "cells not adjacent",
			mutate: func(g *Grid, a, b []components.Pair) ([]components.Pair, []components.Pair) {
				p := components.Pair{ID: 70, Species: components.SpeciesA,
					Cells: [2]components.Cell{{Row: 7, Col: 0}, {Row: 7, Col: 2}}}
				_ = g.Place(p.Cells[0], p.Species)
				_ = g.Place(p.Cells[1], p.Species)
				return append(a, p), b
			},
			kind: ViolationMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, a, b := consistentState(t)
			a, b = tt.mutate(g, a, b)
			r := Validate(g, a, b)
			if r.OK {
				t.Fatal("expected validation to fail")
			}
			if r.Count(tt.kind) == 0 {
				t.Fatalf("no %s finding in %v", tt.kind, r.Violations)
			}
		})
	}
}

func TestValidateSpacingScope(t *testing.T) {
	g := NewGrid(10)
	ids := &components.IDAllocator{}
	b := placePairs(t, g, ids, components.SpeciesB, components.OriginIntroduced,
		[2]components.Cell{{Row: 0, Col: 0}, {Row: 0, Col: 1}},
	)
	b = append(b, placePairs(t, g, ids, components.SpeciesB, components.OriginBorn,
		[2]components.Cell{{Row: 1, Col: 0}, {Row: 1, Col: 1}},
	)...)

	tests := []struct {
		name     string
		scope    SpacingScope
		tooClose int
	}{
		{"every b pair", SpacingAll, 1},
		{"introduced only", SpacingIntroduced, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ValidateScoped(g, nil, b, tt.scope)
			if got := r.Count(ViolationTooClose); got != tt.tooClose {
				t.Fatalf("too_close = %d, want %d (%v)", got, tt.tooClose, r.Violations)
			}
			if r.OK != (tt.tooClose == 0) {
				t.Errorf("OK = %v", r.OK)
			}
		})
	}

	r := Validate(g, nil, b)
	if r.Count(ViolationTooClose) != 1 {
		t.Fatalf("Validate should check every b pair, got %v", r.Violations)
	}
	v := r.Violations[0]
	if v.Pair != b[0].ID || v.Other != b[1].ID || v.Distance != 1 {
		t.Errorf("violation = %+v", v)
	}
}

func TestParseSpacingScope(t *testing.T) {
	for in, want := range map[string]SpacingScope{
		"":           SpacingAll,
		"all":        SpacingAll,
		"introduced": SpacingIntroduced,
	} {
		got, err := ParseSpacingScope(in)
		if err != nil || got != want {
			t.Errorf("ParseSpacingScope(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseSpacingScope("born"); err == nil {
		t.Error("expected error for unknown scope")
	}
}

func TestUnclaimedViolationNamesNoPair(t *testing.T) {
	g, a, b := consistentState(t)
	_ = g.Place(components.Cell{Row: 9, Col: 9}, components.SpeciesA)

	r := Validate(g, a, b)
	if r.Count(ViolationUnclaimed) != 1 {
		t.Fatalf("violations = %v", r.Violations)
	}
	v := r.Violations[0]
	if v.Pair != NoPair || v.Other != NoPair {
		t.Errorf("unclaimed violation pair=%d other=%d, want NoPair", v.Pair, v.Other)
	}
}

func TestRepairOnValidStateIsNoop(t *testing.T) {
	g, a, b := consistentState(t)
	before := g.Clone()

	for _, policy := range []RepairPolicy{RepairKeepOrphans, RepairDropOrphans} {
		rep := Repair(g, a, b, policy)
		if len(rep.Collisions) != 0 || len(rep.Orphaned) != 0 {
			t.Fatalf("%s: collisions=%d orphaned=%d, want none", policy, len(rep.Collisions), len(rep.Orphaned))
		}
		if !g.Equal(before) {
			t.Fatalf("%s: grid changed", policy)
		}
		if len(rep.PairsA) != len(a) || len(rep.PairsB) != len(b) {
			t.Fatalf("%s: population changed", policy)
		}
	}
}

// overlappingState adds a B pair whose first cell sits on an A pair.
func overlappingState(t *testing.T) (*Grid, []components.Pair, []components.Pair, components.Pair) {
	g, a, b := consistentState(t)
	intruder := components.Pair{ID: 99, Species: components.SpeciesB,
		Cells: [2]components.Cell{{Row: 4, Col: 5}, {Row: 4, Col: 6}}, Origin: components.OriginBorn}
	return g, a, append(b, intruder), intruder
}

func TestRepairKeepOrphans(t *testing.T) {
	g, a, b, intruder := overlappingState(t)

	rep := Repair(g, a, b, RepairKeepOrphans)
	if len(rep.Collisions) != 1 {
		t.Fatalf("collisions = %v, want exactly one", rep.Collisions)
	}
	c := rep.Collisions[0]
	if c.Pair != intruder.ID || c.Cell != intruder.Cells[0] || c.Holder != components.SpeciesA {
		t.Errorf("collision = %+v", c)
	}
	if g.At(intruder.Cells[0]) != components.SpeciesA {
		t.Error("first writer must keep the contested cell")
	}
	if g.At(intruder.Cells[1]) != components.SpeciesB {
		t.Error("orphan keeps its uncontested cell")
	}
	if len(rep.Orphaned) != 1 || rep.Orphaned[0] != intruder.ID {
		t.Errorf("orphaned = %v", rep.Orphaned)
	}
	if len(rep.PairsB) != len(b) {
		t.Fatal("keep-orphans must not shrink the population")
	}

	// The orphan still disagrees with the grid afterwards.
	after := Validate(g, rep.PairsA, rep.PairsB)
	if after.OK || after.Count(ViolationMismatch) != 1 {
		t.Errorf("expected one lingering mismatch, got %v", after.Violations)
	}
}

func TestRepairDropOrphans(t *testing.T) {
	g, a, b, intruder := overlappingState(t)

	rep := Repair(g, a, b, RepairDropOrphans)
	if len(rep.Collisions) != 1 || len(rep.Orphaned) != 1 {
		t.Fatalf("collisions=%d orphaned=%d, want 1 and 1", len(rep.Collisions), len(rep.Orphaned))
	}
	if len(rep.PairsB) != len(b)-1 {
		t.Fatalf("PairsB has %d pairs, want %d", len(rep.PairsB), len(b)-1)
	}
	for _, p := range rep.PairsB {
		if p.ID == intruder.ID {
			t.Fatal("orphan should be dropped")
		}
	}
	if !g.IsEmpty(intruder.Cells[1]) {
		t.Error("orphan's surviving cell should be cleared")
	}
	if r := Validate(g, rep.PairsA, rep.PairsB); !r.OK {
		t.Errorf("state should be consistent after drop-orphans, got %v", r.Violations)
	}
}

func TestParseRepairPolicy(t *testing.T) {
	for in, want := range map[string]RepairPolicy{
		"":             RepairKeepOrphans,
		"keep-orphans": RepairKeepOrphans,
		"drop-orphans": RepairDropOrphans,
	} {
		got, err := ParseRepairPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseRepairPolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseRepairPolicy("rebuild"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
