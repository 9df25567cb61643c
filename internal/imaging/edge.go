package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
)

// EdgeOptions configures Canny edge detection.
type EdgeOptions struct {
	// Low and High are the hysteresis thresholds on the Sobel gradient
	// magnitude of 0-255 gray values. If Low > High they are swapped.
	Low  float64 `json:"t1" yaml:"t1"`
	High float64 `json:"t2" yaml:"t2"`

	// Kernel is the side of the square Gaussian blur kernel applied before
	// the gradient. It must be odd; 1 disables blurring.
	Kernel int `json:"kernel" yaml:"kernel"`

	// L2Gradient uses sqrt(gx²+gy²) as the magnitude instead of |gx|+|gy|.
	L2Gradient bool `json:"l2_gradient" yaml:"l2_gradient"`
}

// DefaultEdgeOptions returns the thresholds and kernel used when none are
// given.
func DefaultEdgeOptions() EdgeOptions {
	return EdgeOptions{Low: 50, High: 150, Kernel: 3}
}

// Validate rejects unusable options.
func (o EdgeOptions) Validate() error {
	if o.Low < 0 || o.High < 0 {
		return fmt.Errorf("invalid thresholds t1=%g t2=%g: must be >= 0", o.Low, o.High)
	}
	if o.Kernel < 1 || o.Kernel%2 == 0 {
		return fmt.Errorf("invalid kernel size %d: must be odd and >= 1", o.Kernel)
	}
	return nil
}

// DetectEdges converts img to grayscale, blurs it and runs Canny.
func DetectEdges(img image.Image, opts EdgeOptions) (*Mask, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	gray := GaussianBlur(Grayscale(img), opts.Kernel)
	return Canny(gray, opts.Low, opts.High, opts.L2Gradient), nil
}

// gaussianKernel1D returns the normalised 1-D Gaussian for an odd size. Sizes
// up to 7 use the fixed binomial-like kernels, larger sizes derive sigma from
// the size.
func gaussianKernel1D(size int) []float64 {
	switch size {
	case 1:
		return []float64{1}
	case 3:
		return []float64{0.25, 0.5, 0.25}
	case 5:
		return []float64{0.0625, 0.25, 0.375, 0.25, 0.0625}
	case 7:
		return []float64{0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125}
	}

	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	k := make([]float64, size)
	var sum float64
	for i := range k {
		x := float64(i - size/2)
		k[i] = math.Exp(-x * x / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// GaussianBlur smooths gray with a size x size Gaussian. Borders replicate
// the edge pixels. A size of 1 or less returns gray unchanged.
func GaussianBlur(gray *image.Gray, size int) *image.Gray {
	if size <= 1 {
		return gray
	}

	k1 := gaussianKernel1D(size)
	kernel := convolution.NewKernel(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			kernel.Matrix[y*size+x] = k1[x] * k1[y]
		}
	}

	blurred := convolution.Convolve(gray, kernel, &convolution.Options{Wrap: false, KeepAlpha: true})
	b := blurred.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = blurred.Pix[blurred.PixOffset(b.Min.X+x, b.Min.Y+y)]
		}
	}
	return out
}

const (
	tan22 = 0.41421356
	tan67 = 2.41421356
)

// Canny finds edges in an already smoothed grayscale image.
//
// # Algorithm
//
//  1. Sobel 3x3 gradients with replicated borders.
//
//  2. Magnitude |gx|+|gy|, or sqrt(gx²+gy²) when l2 is set.
//
//  3. Non-maximum suppression: the gradient direction is quantised to
//     horizontal, vertical or one of the diagonals using tan(22.5°) and
//     tan(67.5°). A pixel survives if its magnitude is a local maximum
//     along that direction. Magnitudes outside the image count as 0.
//
//  4. Hysteresis: surviving pixels above high are strong edges; pixels above
//     low are kept only when 8-connected, directly or through other kept
//     pixels, to a strong edge.
func Canny(gray *image.Gray, low, high float64, l2 bool) *Mask {
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()
	out := NewMask(width, height)
	if width == 0 || height == 0 {
		return out
	}
	if low > high {
		low, high = high, low
	}

	px := func(x, y int) float64 {
		x = clamp(x, 0, width-1)
		y = clamp(y, 0, height-1)
		return float64(gray.Pix[gray.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}

	gx := make([]float64, width*height)
	gy := make([]float64, width*height)
	mag := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := (px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1)) -
				(px(x-1, y-1) + 2*px(x-1, y) + px(x-1, y+1))
			dy := (px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)) -
				(px(x-1, y-1) + 2*px(x, y-1) + px(x+1, y-1))
			i := y*width + x
			gx[i], gy[i] = dx, dy
			if l2 {
				mag[i] = math.Sqrt(dx*dx + dy*dy)
			} else {
				mag[i] = math.Abs(dx) + math.Abs(dy)
			}
		}
	}

	m := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= width || y >= height {
			return 0
		}
		return mag[y*width+x]
	}

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, width*height)
	var stack []int

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			v := mag[i]
			if v <= low {
				continue
			}

			ax, ay := math.Abs(gx[i]), math.Abs(gy[i])
			var peak bool
			switch {
			case ay < ax*tan22:
				peak = v > m(x-1, y) && v >= m(x+1, y)
			case ay > ax*tan67:
				peak = v > m(x, y-1) && v >= m(x, y+1)
			default:
				s := 1
				if (gx[i] < 0) != (gy[i] < 0) {
					s = -1
				}
				peak = v > m(x-s, y-1) && v > m(x+s, y+1)
			}
			if !peak {
				continue
			}

			if v > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.Pix[i] = 1

		x, y := i%width, i/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}
	return out
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
