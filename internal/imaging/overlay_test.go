package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestOverlay_DrawsLines(t *testing.T) {
	img := createInMemoryImage(20, 20, color.RGBA{200, 200, 200, 255})
	lines := [][]image.Point{
		{{2, 2}, {10, 2}},
		{{5, 5}, {5, 15}, {15, 15}},
	}

	out, err := Overlay(img, lines, DefaultOverlayOptions())
	if err != nil {
		t.Fatalf("Overlay failed: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 20, 20) {
		t.Fatalf("bounds: got %v", out.Bounds())
	}

	palette := Palette(2)
	checks := []struct {
		p    image.Point
		want color.NRGBA
	}{
		{image.Pt(2, 2), palette[0]},
		{image.Pt(6, 2), palette[0]},
		{image.Pt(10, 2), palette[0]},
		{image.Pt(5, 10), palette[1]},
		{image.Pt(15, 15), palette[1]},
	}
	for _, c := range checks {
		if got := out.NRGBAAt(c.p.X, c.p.Y); got != c.want {
			t.Errorf("pixel %v: got %v, want %v", c.p, got, c.want)
		}
	}

	bg := out.NRGBAAt(18, 5)
	if bg.R != bg.G || bg.G != bg.B {
		t.Errorf("background should be gray, got %v", bg)
	}
	if bg.R >= 200 {
		t.Errorf("background should be dimmed, got %d", bg.R)
	}
}

func TestOverlay_FixedColorAndLabels(t *testing.T) {
	img := createInMemoryImage(30, 30, color.Black)
	lines := [][]image.Point{{{0, 20}, {29, 20}}}

	out, err := Overlay(img, lines, OverlayOptions{LineColor: "#00ff00", Labels: true})
	if err != nil {
		t.Fatalf("Overlay failed: %v", err)
	}
	if got := out.NRGBAAt(15, 20); got != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("line pixel: got %v, want green", got)
	}
	// Label "1" drawn at (2,22): its top row is "010".
	if got := out.NRGBAAt(3, 22); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("label glyph pixel: got %v, want white", got)
	}

	if _, err := Overlay(img, lines, OverlayOptions{LineColor: "green"}); err == nil {
		t.Error("expected error for invalid line color")
	}
}

func TestOverlay_ClipsOutOfBounds(t *testing.T) {
	img := createInMemoryImage(5, 5, color.White)
	lines := [][]image.Point{{{-10, -10}, {20, 20}}, {{100, 100}}}
	if _, err := Overlay(img, lines, OverlayOptions{Labels: true}); err != nil {
		t.Fatalf("Overlay failed: %v", err)
	}
}

func TestPalette(t *testing.T) {
	p := Palette(8)
	if len(p) != 8 {
		t.Fatalf("got %d colours, want 8", len(p))
	}
	seen := make(map[color.NRGBA]bool)
	for i, c := range p {
		if c.A != 255 {
			t.Errorf("colour %d not opaque: %v", i, c)
		}
		if seen[c] {
			t.Errorf("colour %d repeats: %v", i, c)
		}
		seen[c] = true
	}
	if len(Palette(0)) != 0 {
		t.Error("Palette(0) should be empty")
	}
}

func TestDrawSegment(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	c := color.NRGBA{255, 0, 0, 255}
	drawSegment(img, image.Pt(5, 0), image.Pt(0, 5), c)

	for i := 0; i <= 5; i++ {
		if img.NRGBAAt(5-i, i) != c {
			t.Errorf("anti-diagonal pixel (%d,%d) not drawn", 5-i, i)
		}
	}
}
