package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// OverlayOptions control how traced lines are drawn over the source image.
type OverlayOptions struct {
	// LineColor is a hex colour ("#RRGGBB") used for every line. Empty
	// gives each line its own colour from an evenly spread palette.
	LineColor string

	// Dim darkens the grayscale background by this percentage (0-100).
	Dim float64

	// Labels draws each line's 1-based index next to its first point.
	Labels bool
}

// DefaultOverlayOptions returns the options used for the QA overlay artifact.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{Dim: 40}
}

// Overlay renders lines over a dimmed grayscale copy of img. Line vertices
// are pixel coordinates relative to the image origin.
func Overlay(img image.Image, lines [][]image.Point, opts OverlayOptions) (*image.NRGBA, error) {
	var fixed *color.NRGBA
	if opts.LineColor != "" {
		c, err := colorful.Hex(opts.LineColor)
		if err != nil {
			return nil, fmt.Errorf("invalid line color %q: %w", opts.LineColor, err)
		}
		r, g, b := c.RGB255()
		fixed = &color.NRGBA{R: r, G: g, B: b, A: 255}
	}

	dst := imaging.AdjustBrightness(imaging.Grayscale(img), -math.Min(math.Max(opts.Dim, 0), 100))
	palette := Palette(len(lines))

	for i, line := range lines {
		c := palette[i]
		if fixed != nil {
			c = *fixed
		}
		if len(line) == 1 {
			setClipped(dst, line[0].X, line[0].Y, c)
		}
		for j := 1; j < len(line); j++ {
			drawSegment(dst, line[j-1], line[j], c)
		}
	}

	if opts.Labels {
		fg := color.NRGBA{255, 255, 255, 255}
		bg := color.NRGBA{0, 0, 0, 180}
		for i, line := range lines {
			if len(line) > 0 {
				drawLabel(dst, line[0].X+2, line[0].Y+2, strconv.Itoa(i+1), fg, bg)
			}
		}
	}
	return dst, nil
}

// Palette returns n visually distinct opaque colours. Hues advance by the
// golden angle so neighbouring indices contrast.
func Palette(n int) []color.NRGBA {
	const goldenAngle = 137.50776405
	out := make([]color.NRGBA, n)
	for i := range out {
		h := math.Mod(float64(i)*goldenAngle, 360)
		r, g, b := colorful.Hsv(h, 0.85, 1.0).RGB255()
		out[i] = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// drawSegment draws a Bresenham line from p to q inclusive.
func drawSegment(img *image.NRGBA, p, q image.Point, c color.NRGBA) {
	dx := abs(q.X - p.X)
	dy := -abs(q.Y - p.Y)
	sx, sy := 1, 1
	if p.X > q.X {
		sx = -1
	}
	if p.Y > q.Y {
		sy = -1
	}
	e := dx + dy
	x, y := p.X, p.Y
	for {
		setClipped(img, x, y, c)
		if x == q.X && y == q.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func setClipped(img *image.NRGBA, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetNRGBA(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// drawLabel draws text in a 3x5 pixel digit font on a filled background.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setClipped(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setClipped(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
