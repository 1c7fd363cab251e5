package renderer

import (
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/telemetry"
)

func testSnapshot(step int) telemetry.GridSnapshot {
	cells := make([]components.Species, 16)
	cells[0] = components.SpeciesA
	cells[1] = components.SpeciesA
	cells[15] = components.SpeciesB
	return telemetry.GridSnapshot{Step: step, Size: 4, Cells: cells}
}

func TestDrawFrameColors(t *testing.T) {
	const scale = 5
	img := DrawFrame(testSnapshot(0), scale)

	side := 4 * scale
	if img.Bounds().Dy() != labelHeight+side {
		t.Errorf("height = %d, want %d", img.Bounds().Dy(), labelHeight+side)
	}

	tests := []struct {
		name string
		row  int
		col  int
		want any
	}{
		{"species a", 0, 0, ColorA},
		{"species a partner", 0, 1, ColorA},
		{"species b", 3, 3, ColorB},
		{"empty", 2, 1, ColorEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := tt.col*scale + scale/2
			y := labelHeight + tt.row*scale + scale/2
			if got := img.At(x, y); got != tt.want {
				t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, tt.want)
			}
		})
	}
}

func TestDrawFrameRegionOutline(t *testing.T) {
	snap := testSnapshot(0)
	snap.Cells = make([]components.Species, 16)
	snap.Region = components.Region{Row: 1, Col: 1, Size: 2}
	snap.ShowRegion = true

	const scale = 10
	img := DrawFrame(snap, scale)

	// Dash starts at the region corner.
	if got := img.At(scale, labelHeight+scale); got != ColorInk {
		t.Errorf("region corner = %v, want ink", got)
	}

	snap.ShowRegion = false
	plain := DrawFrame(snap, scale)
	if got := plain.At(scale, labelHeight+scale); got != ColorEmpty {
		t.Errorf("outline drawn without ShowRegion: %v", got)
	}
}

func TestGIFRendererWritesAnimation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.gif")
	r := NewGIFRenderer(path, 3, 18)

	for step := 0; step < 3; step++ {
		if err := r.RenderFrame(testSnapshot(step)); err != nil {
			t.Fatalf("RenderFrame: %v", err)
		}
	}
	if r.Frames() != 3 {
		t.Errorf("Frames = %d, want 3", r.Frames())
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(anim.Image) != 3 || anim.Delay[0] != 18 {
		t.Errorf("decoded %d frames, delay %v", len(anim.Image), anim.Delay)
	}

	if err := r.RenderFrame(testSnapshot(3)); err == nil {
		t.Error("RenderFrame after Close should fail")
	}
}

func TestGIFRendererNoFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gif")
	if err := NewGIFRenderer(path, 2, 10).Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("empty renderer should not write a file")
	}
}

func TestRenderFrameRejectsBadSnapshot(t *testing.T) {
	r := NewGIFRenderer(filepath.Join(t.TempDir(), "x.gif"), 2, 10)
	if err := r.RenderFrame(telemetry.GridSnapshot{Size: 3, Cells: make([]components.Species, 4)}); err == nil {
		t.Error("expected error for mismatched cell count")
	}
}
