package trace

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Simplify reduces the number of vertices using the Douglas-Peucker
// algorithm. Kept vertices are a subset of pts in their original order and
// the first and last points are always kept.
func Simplify(pts []image.Point, epsilon float64) []image.Point {
	if len(pts) <= 2 || epsilon <= 0 {
		return pts
	}

	keep := make([]bool, len(pts))
	keep[0], keep[len(pts)-1] = true, true
	simplifyRange(pts, 0, len(pts)-1, epsilon, keep)

	out := make([]image.Point, 0, len(pts))
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

func simplifyRange(pts []image.Point, first, last int, epsilon float64, keep []bool) {
	if last-first < 2 {
		return
	}

	// Find point with maximum distance from the chord between first and last
	dmax := 0.0
	index := first
	a, b := vec(pts[first]), vec(pts[last])
	for i := first + 1; i < last; i++ {
		if d := perpendicularDistance(vec(pts[i]), a, b); d > dmax {
			dmax = d
			index = i
		}
	}

	if dmax > epsilon {
		keep[index] = true
		simplifyRange(pts, first, index, epsilon, keep)
		simplifyRange(pts, index, last, epsilon, keep)
	}
}

// perpendicularDistance returns the distance from p to the line through a and
// b, or to a itself when a and b coincide.
func perpendicularDistance(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	ap := r2.Sub(p, a)
	den := r2.Norm(ab)
	if den == 0 {
		return r2.Norm(ap)
	}
	return math.Abs(r2.Cross(ab, ap)) / den
}

func vec(p image.Point) r2.Vec {
	return r2.Vec{X: float64(p.X), Y: float64(p.Y)}
}
