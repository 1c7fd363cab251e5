// Package renderer draws grid snapshots into an animated GIF.
package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/telemetry"
)

// Colors
var (
	ColorEmpty   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ColorA       = color.RGBA{R: 0x26, G: 0x99, B: 0xc6, A: 255}
	ColorB       = color.RGBA{R: 0xf1, G: 0x76, B: 0x64, A: 255}
	ColorInk     = color.RGBA{A: 255}
	ColorLabelBg = color.RGBA{R: 235, G: 235, B: 235, A: 255}
)

// Palette is shared by every frame.
var Palette = color.Palette{ColorEmpty, ColorA, ColorB, ColorInk, ColorLabelBg}

const (
	labelHeight = 20
	dashLength  = 4
)

// GIFRenderer collects frames and writes them as one animated GIF on Close.
type GIFRenderer struct {
	path   string
	scale  int
	delay  int // hundredths of a second per frame
	anim   gif.GIF
	closed bool
}

// NewGIFRenderer creates a renderer writing to path. scale is the pixel size
// of one cell.
func NewGIFRenderer(path string, scale, delay int) *GIFRenderer {
	if scale < 1 {
		scale = 1
	}
	if delay < 0 {
		delay = 0
	}
	return &GIFRenderer{path: path, scale: scale, delay: delay}
}

// Frames returns the number of frames rendered so far.
func (r *GIFRenderer) Frames() int { return len(r.anim.Image) }

// RenderFrame draws snap and appends it to the animation.
func (r *GIFRenderer) RenderFrame(snap telemetry.GridSnapshot) error {
	if r.closed {
		return errors.New("renderer closed")
	}
	if len(snap.Cells) != snap.Size*snap.Size {
		return fmt.Errorf("snapshot has %d cells for size %d", len(snap.Cells), snap.Size)
	}
	r.anim.Image = append(r.anim.Image, DrawFrame(snap, r.scale))
	r.anim.Delay = append(r.anim.Delay, r.delay)
	return nil
}

// Close encodes the collected frames. Nothing is written when no frame was
// rendered.
func (r *GIFRenderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if len(r.anim.Image) == 0 {
		return nil
	}

	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("creating gif: %w", err)
	}
	if err := gif.EncodeAll(f, &r.anim); err != nil {
		f.Close()
		return fmt.Errorf("encoding gif: %w", err)
	}
	return f.Close()
}

// DrawFrame renders one snapshot: a label strip with the step, counts and
// annotation above the grid, and a dashed outline of the region when shown.
func DrawFrame(snap telemetry.GridSnapshot, scale int) *image.Paletted {
	// All frames share one size; long labels are clipped.
	side := snap.Size * scale
	label := frameLabel(snap)
	width := side

	img := image.NewPaletted(image.Rect(0, 0, width, labelHeight+side), Palette)
	draw.Draw(img, img.Bounds(), image.NewUniform(ColorEmpty), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, width, labelHeight), image.NewUniform(ColorLabelBg), image.Point{}, draw.Src)

	for r := 0; r < snap.Size; r++ {
		for c := 0; c < snap.Size; c++ {
			col := speciesColor(snap.At(r, c))
			if col == ColorEmpty {
				continue
			}
			rect := image.Rect(c*scale, labelHeight+r*scale, (c+1)*scale, labelHeight+(r+1)*scale)
			draw.Draw(img, rect, image.NewUniform(col), image.Point{}, draw.Src)
		}
	}

	if snap.ShowRegion && snap.Region.Size > 0 {
		drawDashedRect(img, image.Rect(
			snap.Region.Col*scale,
			labelHeight+snap.Region.Row*scale,
			(snap.Region.Col+snap.Region.Size)*scale,
			labelHeight+(snap.Region.Row+snap.Region.Size)*scale,
		))
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(ColorInk),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(4), Y: fixed.I(labelHeight - 5)},
	}
	d.DrawString(label)

	return img
}

func frameLabel(snap telemetry.GridSnapshot) string {
	var a, b int
	for _, sp := range snap.Cells {
		switch sp {
		case components.SpeciesA:
			a++
		case components.SpeciesB:
			b++
		}
	}
	label := fmt.Sprintf("step %d  a=%d b=%d", snap.Step, a, b)
	if snap.Annotation != "" {
		label += "  " + snap.Annotation
	}
	return label
}

func speciesColor(sp components.Species) color.RGBA {
	switch sp {
	case components.SpeciesA:
		return ColorA
	case components.SpeciesB:
		return ColorB
	default:
		return ColorEmpty
	}
}

// drawDashedRect outlines rect with alternating ink and gap runs.
func drawDashedRect(img *image.Paletted, rect image.Rectangle) {
	ink := uint8(Palette.Index(ColorInk))
	set := func(x, y, i int) {
		if (i/dashLength)%2 == 0 && (image.Point{X: x, Y: y}).In(img.Rect) {
			img.SetColorIndex(x, y, ink)
		}
	}
	for i, x := 0, rect.Min.X; x < rect.Max.X; i, x = i+1, x+1 {
		set(x, rect.Min.Y, i)
		set(x, rect.Max.Y-1, i)
	}
	for i, y := 0, rect.Min.Y; y < rect.Max.Y; i, y = i+1, y+1 {
		set(rect.Min.X, y, i)
		set(rect.Max.X-1, y, i)
	}
}
