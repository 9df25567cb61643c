// Package geo handles georeferencing for extracted terrace lines: the affine
// pixel-to-world transform, coordinate reference systems identified by EPSG
// code, world-file sidecars and the small set of reprojections the tool
// supports.
//
// # Pixel Convention
//
// Pixel (col, row) addresses the top-left corner of the pixel, matching a
// GeoTIFF with RasterPixelIsArea. A transform built from a world file is
// shifted by half a pixel on load because world files reference pixel
// centres.
package geo

import (
	"fmt"
	"math"
)

// Transform is a six-term affine mapping from pixel space to world space:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
//
// The field names follow the usual affine convention, so a north-up raster
// has B = D = 0, A the pixel width and E the negated pixel height.
type Transform struct {
	A, B, C float64
	D, E, F float64
}

// NewPixelTransform builds the north-up transform used when an image carries
// no georeferencing: (originX, originY) is the world position of the top-left
// corner and every pixel is pixelSize units square.
func NewPixelTransform(originX, originY, pixelSize float64) Transform {
	return Transform{
		A: pixelSize,
		C: originX,
		E: -pixelSize,
		F: originY,
	}
}

// GDAL returns the transform in GDAL geotransform order.
func (t Transform) GDAL() [6]float64 {
	return [6]float64{t.C, t.A, t.B, t.F, t.D, t.E}
}

// Apply maps a pixel position to world coordinates.
func (t Transform) Apply(col, row float64) (x, y float64) {
	return t.A*col + t.B*row + t.C, t.D*col + t.E*row + t.F
}

// IsZero reports whether the transform is unset.
func (t Transform) IsZero() bool {
	return t == Transform{}
}

// IsNorthUp reports whether the transform has no rotation terms.
func (t Transform) IsNorthUp() bool {
	return t.B == 0 && t.D == 0
}

// PixelSize returns the ground size of one pixel along the column and row axes.
func (t Transform) PixelSize() (float64, float64) {
	return math.Hypot(t.A, t.D), math.Hypot(t.B, t.E)
}

// Window returns the transform of a sub-raster whose top-left pixel is
// (col, row) in this raster and which was resampled by scale (2 doubles the
// pixel count along each axis, halving the pixel size).
func (t Transform) Window(col, row int, scale float64) (Transform, error) {
	if scale <= 0 {
		return Transform{}, fmt.Errorf("invalid scale %g: must be > 0", scale)
	}
	x, y := t.Apply(float64(col), float64(row))
	return Transform{
		A: t.A / scale,
		B: t.B / scale,
		C: x,
		D: t.D / scale,
		E: t.E / scale,
		F: y,
	}, nil
}

// Validate rejects degenerate transforms that cannot map pixels to distinct
// world positions.
func (t Transform) Validate() error {
	if t.A*t.E-t.B*t.D == 0 {
		return fmt.Errorf("degenerate transform: determinant is zero")
	}
	for _, v := range []float64{t.A, t.B, t.C, t.D, t.E, t.F} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("degenerate transform: non-finite term")
		}
	}
	return nil
}

// String renders the transform in GDAL order for logs and reports.
func (t Transform) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g, %g, %g)", t.C, t.A, t.B, t.F, t.D, t.E)
}
