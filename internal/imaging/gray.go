package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Grayscale converts img to 8-bit luminance (0.299 R + 0.587 G + 0.114 B).
// The result is anchored at the origin. Gray inputs are copied unchanged.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			src := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src[:b.Dx()])
		}
		return out
	}

	// imaging.Grayscale returns NRGBA with equal channels.
	n := imaging.Grayscale(img)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = n.Pix[y*n.Stride+4*x]
		}
	}
	return out
}
