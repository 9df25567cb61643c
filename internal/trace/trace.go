// Package trace converts a thinned binary mask into pixel polylines.
//
// Two modes are available. Contour mode follows the borders of every
// 8-connected foreground component (Suzuki-Abe border following, all points
// kept), so a one-pixel-wide line is traced out and back. Centerline mode
// walks the skeleton as a graph and emits one polyline per branch between
// endpoints and junctions.
package trace

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/ironsheep/terrace-extractor/internal/imaging"
)

// Mode selects how skeleton pixels are turned into polylines.
type Mode string

const (
	ModeContour    Mode = "contour"
	ModeCenterline Mode = "centerline"
)

// ParseMode accepts "contour" or "centerline", case-insensitively. An empty
// string selects contour mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeContour:
		return ModeContour, nil
	case ModeCenterline:
		return ModeCenterline, nil
	}
	return "", fmt.Errorf("unknown trace mode %q (want %s or %s)", s, ModeContour, ModeCenterline)
}

// Polyline is an ordered list of pixel positions.
type Polyline struct {
	Points []image.Point

	// Closed is set for centerline loops; the last point repeats the first.
	Closed bool
}

// Length returns the Euclidean length in pixels.
func (p Polyline) Length() float64 {
	var sum float64
	for i := 1; i < len(p.Points); i++ {
		d := p.Points[i].Sub(p.Points[i-1])
		sum += math.Hypot(float64(d.X), float64(d.Y))
	}
	return sum
}

// Options configures Trace.
type Options struct {
	Mode Mode

	// Simplify is the Douglas-Peucker tolerance in pixels. Zero keeps
	// every traced point.
	Simplify float64
}

// Trace extracts polylines from m. Polylines with fewer than two points are
// dropped.
func Trace(m *imaging.Mask, opts Options) ([]Polyline, error) {
	if opts.Simplify < 0 {
		return nil, fmt.Errorf("invalid simplify tolerance %g: must be >= 0", opts.Simplify)
	}

	var lines []Polyline
	switch opts.Mode {
	case "", ModeContour:
		lines = Contours(m)
	case ModeCenterline:
		lines = Centerlines(m)
	default:
		return nil, fmt.Errorf("unknown trace mode %q", opts.Mode)
	}

	out := lines[:0]
	for _, l := range lines {
		if opts.Simplify > 0 {
			l.Points = Simplify(l.Points, opts.Simplify)
		}
		if len(l.Points) >= 2 {
			out = append(out, l)
		}
	}
	return out, nil
}

// Points returns the vertex lists of lines, in order.
func Points(lines []Polyline) [][]image.Point {
	out := make([][]image.Point, len(lines))
	for i, l := range lines {
		out[i] = l.Points
	}
	return out
}
