package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/systems"
)

// SnapshotVersion is incremented when the final-state format changes.
const SnapshotVersion = 1

// GridSnapshot is a read-only copy of the lattice handed to renderers.
type GridSnapshot struct {
	Step  int
	Size  int
	Cells []components.Species // row-major

	// Annotation is drawn on the frame when non-empty.
	Annotation string
	// Region is outlined when ShowRegion is set.
	Region     components.Region
	ShowRegion bool
}

// NewGridSnapshot copies the grid state for step.
func NewGridSnapshot(g *systems.Grid, step int) GridSnapshot {
	return GridSnapshot{Step: step, Size: g.Size(), Cells: g.Snapshot()}
}

// At returns the species at (row, col).
func (s GridSnapshot) At(row, col int) components.Species {
	return s.Cells[row*s.Size+col]
}

// FinalState holds the end-of-run state written as final_state.json.
type FinalState struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`
	Step    int   `json:"step"`
	Size    int   `json:"size"`

	// Rows renders the grid one string per row: '.' empty, 'a', 'b'.
	Rows []string `json:"rows"`

	PairsA []components.Pair `json:"pairs_a"`
	PairsB []components.Pair `json:"pairs_b"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// NewFinalState builds the final-state record from a grid snapshot and the
// pair lists.
func NewFinalState(seed int64, snap GridSnapshot, pairsA, pairsB []components.Pair) *FinalState {
	rows := make([]string, snap.Size)
	var sb strings.Builder
	for r := 0; r < snap.Size; r++ {
		sb.Reset()
		for c := 0; c < snap.Size; c++ {
			sb.WriteByte(cellRune(snap.At(r, c)))
		}
		rows[r] = sb.String()
	}
	return &FinalState{
		Version: SnapshotVersion,
		Seed:    seed,
		Step:    snap.Step,
		Size:    snap.Size,
		Rows:    rows,
		PairsA:  pairsA,
		PairsB:  pairsB,
	}
}

func cellRune(s components.Species) byte {
	switch s {
	case components.SpeciesA:
		return 'a'
	case components.SpeciesB:
		return 'b'
	default:
		return '.'
	}
}

// Grid rebuilds the lattice from Rows.
func (f *FinalState) Grid() (*systems.Grid, error) {
	if len(f.Rows) != f.Size {
		return nil, fmt.Errorf("final state has %d rows, want %d", len(f.Rows), f.Size)
	}
	g := systems.NewGrid(f.Size)
	for r, row := range f.Rows {
		if len(row) != f.Size {
			return nil, fmt.Errorf("row %d has %d cells, want %d", r, len(row), f.Size)
		}
		for c := 0; c < len(row); c++ {
			var sp components.Species
			switch row[c] {
			case '.':
				continue
			case 'a':
				sp = components.SpeciesA
			case 'b':
				sp = components.SpeciesB
			default:
				return nil, fmt.Errorf("row %d col %d: unknown cell %q", r, c, row[c])
			}
			if err := g.Place(components.Cell{Row: r, Col: c}, sp); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// SaveFinalState writes the final state to dir/final_state.json and returns
// the path.
func SaveFinalState(state *FinalState, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, "final_state.json")

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal final state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write final state: %w", err)
	}
	return path, nil
}

// LoadFinalState reads a final state from disk.
func LoadFinalState(path string) (*FinalState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read final state: %w", err)
	}

	var state FinalState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal final state: %w", err)
	}
	if state.Version != SnapshotVersion {
		return nil, fmt.Errorf("final state version %d, want %d", state.Version, SnapshotVersion)
	}
	return &state, nil
}
