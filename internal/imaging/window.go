package imaging

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Region represents a rectangular region within an image.
//
// Coordinates follow the standard image convention:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Region struct {
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
	X2 int `json:"x2" yaml:"x2"`
	Y2 int `json:"y2" yaml:"y2"`
}

// Empty reports whether the region is unset.
func (r Region) Empty() bool {
	return r == Region{}
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X1, r.Y1, r.X2, r.Y2)
}

// ParseRegion parses "x1,y1,x2,y2" or one of the named regions (top-left,
// top-right, bottom-left, bottom-right, top-half, bottom-half, left-half,
// right-half, center) of a width x height image. An empty string returns
// the zero Region.
func ParseRegion(s string, width, height int) (Region, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Region{}, nil
	}

	midX, midY := width/2, height/2
	switch s {
	case "top-left":
		return Region{0, 0, midX, midY}, nil
	case "top-right":
		return Region{midX, 0, width, midY}, nil
	case "bottom-left":
		return Region{0, midY, midX, height}, nil
	case "bottom-right":
		return Region{midX, midY, width, height}, nil
	case "top-half":
		return Region{0, 0, width, midY}, nil
	case "bottom-half":
		return Region{0, midY, width, height}, nil
	case "left-half":
		return Region{0, 0, midX, height}, nil
	case "right-half":
		return Region{midX, 0, width, height}, nil
	case "center":
		// Center 50% of the image
		qW, qH := width/4, height/4
		return Region{qW, qH, width - qW, height - qH}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("invalid region %q: want x1,y1,x2,y2 or a named region", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("invalid region %q: %w", s, err)
		}
		v[i] = n
	}
	return Region{v[0], v[1], v[2], v[3]}, nil
}

// Window crops img to region (the whole image when region is empty) and
// resamples the result by scale with a Lanczos filter. The returned image is
// anchored at the origin.
func Window(img image.Image, region Region, scale float64) (image.Image, error) {
	bounds := img.Bounds()
	if region.Empty() {
		region = Region{0, 0, bounds.Dx(), bounds.Dy()}
	}
	x1, y1 := region.X1+bounds.Min.X, region.Y1+bounds.Min.Y
	x2, y2 := region.X2+bounds.Min.X, region.Y2+bounds.Min.Y

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (0,0)-(%d,%d)",
			region.X1, region.Y1, region.X2, region.Y2, bounds.Dx(), bounds.Dy())
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %g: must be > 0", scale)
	}

	full := x1 == bounds.Min.X && y1 == bounds.Min.Y && x2 == bounds.Max.X && y2 == bounds.Max.Y
	if full && scale == 1.0 {
		return img, nil
	}

	var out image.Image = imaging.Crop(img, image.Rect(x1, y1, x2, y2))
	if scale != 1.0 {
		newWidth := max(1, int(float64(x2-x1)*scale))
		newHeight := max(1, int(float64(y2-y1)*scale))
		out = imaging.Resize(out, newWidth, newHeight, imaging.Lanczos)
	}
	return out, nil
}
