package trace

import (
	"image"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestSimplify(t *testing.T) {
	tests := []struct {
		name    string
		in      []image.Point
		epsilon float64
		want    []image.Point
	}{
		{"too short", pts(0, 0, 5, 5), 1, pts(0, 0, 5, 5)},
		{"zero tolerance", pts(0, 0, 1, 0, 2, 0), 0, pts(0, 0, 1, 0, 2, 0)},
		{"collinear", pts(0, 0, 1, 0, 2, 0, 3, 0, 4, 0), 0.5, pts(0, 0, 4, 0)},
		{"corner kept", pts(0, 0, 1, 0, 2, 0, 2, 1, 2, 2), 0.5, pts(0, 0, 2, 0, 2, 2)},
		{"small wiggle removed", pts(0, 0, 1, 1, 2, 0, 3, 1, 4, 0), 1.5, pts(0, 0, 4, 0)},
		{"small wiggle kept", pts(0, 0, 2, 1, 4, 0), 0.5, pts(0, 0, 2, 1, 4, 0)},
		{"closed loop", pts(0, 0, 4, 0, 4, 4, 0, 4, 0, 0), 1, pts(0, 0, 4, 0, 4, 4, 0, 4, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Simplify(tt.in, tt.epsilon)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Simplify mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPerpendicularDistance(t *testing.T) {
	tests := []struct {
		name    string
		p, a, b r2.Vec
		want    float64
	}{
		{"above horizontal", r2.Vec{X: 2, Y: 3}, r2.Vec{}, r2.Vec{X: 10}, 3},
		{"on line", r2.Vec{X: 5}, r2.Vec{}, r2.Vec{X: 10}, 0},
		{"beyond segment end", r2.Vec{X: 20, Y: 1}, r2.Vec{}, r2.Vec{X: 10}, 1},
		{"diagonal", r2.Vec{X: 1}, r2.Vec{}, r2.Vec{X: 1, Y: 1}, math.Sqrt2 / 2},
		{"degenerate chord", r2.Vec{X: 3, Y: 4}, r2.Vec{}, r2.Vec{}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := perpendicularDistance(tt.p, tt.a, tt.b); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("perpendicularDistance() = %g, want %g", got, tt.want)
			}
		})
	}
}
