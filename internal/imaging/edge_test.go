package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestEdgeOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    EdgeOptions
		wantErr bool
	}{
		{"defaults", DefaultEdgeOptions(), false},
		{"no blur", EdgeOptions{Low: 10, High: 20, Kernel: 1}, false},
		{"large kernel", EdgeOptions{Low: 10, High: 20, Kernel: 9}, false},
		{"swapped thresholds allowed", EdgeOptions{Low: 200, High: 100, Kernel: 3}, false},
		{"even kernel", EdgeOptions{Low: 10, High: 20, Kernel: 4}, true},
		{"zero kernel", EdgeOptions{Low: 10, High: 20, Kernel: 0}, true},
		{"negative threshold", EdgeOptions{Low: -1, High: 20, Kernel: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDetectEdges_StepEdge(t *testing.T) {
	img := createStepImage(20, 20, 10)

	mask, err := DetectEdges(img, DefaultEdgeOptions())
	if err != nil {
		t.Fatalf("DetectEdges failed: %v", err)
	}
	if mask.Width != 20 || mask.Height != 20 {
		t.Fatalf("mask size: got %dx%d, want 20x20", mask.Width, mask.Height)
	}

	for y := 0; y < 20; y++ {
		n := 0
		for x := 0; x < 20; x++ {
			if !mask.At(x, y) {
				continue
			}
			n++
			if x != 9 && x != 10 {
				t.Errorf("edge at (%d,%d) is away from the step", x, y)
			}
		}
		if n != 1 {
			t.Errorf("row %d: got %d edge pixels, want 1", y, n)
		}
	}
}

func TestDetectEdges_UniformImage(t *testing.T) {
	img := createInMemoryImage(30, 30, color.RGBA{128, 128, 128, 255})

	mask, err := DetectEdges(img, DefaultEdgeOptions())
	if err != nil {
		t.Fatalf("DetectEdges failed: %v", err)
	}
	if n := mask.Count(); n != 0 {
		t.Errorf("uniform image: got %d edge pixels, want 0", n)
	}
}

func TestDetectEdges_InvalidOptions(t *testing.T) {
	if _, err := DetectEdges(createInMemoryImage(4, 4, color.White), EdgeOptions{Low: 1, High: 2, Kernel: 2}); err == nil {
		t.Error("expected error for even kernel")
	}
}

func TestCanny_Thresholds(t *testing.T) {
	// Unblurred step of height 40: |gx| is 160 along the step.
	gray := image.NewGray(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 6; x < 12; x++ {
			gray.SetGray(x, y, color.Gray{40})
		}
	}

	tests := []struct {
		name      string
		low, high float64
		want      bool
	}{
		{"strong", 50, 150, true},
		{"below high and isolated weak", 50, 170, false},
		{"at high is not strong", 50, 160, false},
		{"at low is dropped", 160, 200, false},
		{"swapped", 150, 50, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask := Canny(gray, tt.low, tt.high, false)
			if got := mask.Count() > 0; got != tt.want {
				t.Errorf("edges found = %v, want %v (count %d)", got, tt.want, mask.Count())
			}
		})
	}
}

func TestCanny_Hysteresis(t *testing.T) {
	// Left half of the step is strong (contrast 60), right half weak (30).
	// The weak half survives only when connected to the strong half.
	gray := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if y < 10 {
				continue
			}
			if x < 10 {
				gray.SetGray(x, y, color.Gray{60})
			} else {
				gray.SetGray(x, y, color.Gray{30})
			}
		}
	}

	mask := Canny(gray, 100, 200, false)
	if !mask.At(15, 9) && !mask.At(15, 10) {
		t.Error("weak edge connected to strong edge should be kept")
	}

	weakOnly := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 10; y < 20; y++ {
		for x := 0; x < 20; x++ {
			weakOnly.SetGray(x, y, color.Gray{30})
		}
	}
	if n := Canny(weakOnly, 100, 200, false).Count(); n != 0 {
		t.Errorf("isolated weak edge: got %d pixels, want 0", n)
	}
}

func TestCanny_L2Gradient(t *testing.T) {
	gray := Grayscale(createStepImage(16, 16, 8))

	l1 := Canny(gray, 50, 150, false)
	l2 := Canny(gray, 50, 150, true)
	if l1.Count() == 0 || l2.Count() == 0 {
		t.Fatalf("expected edges with both norms, got L1=%d L2=%d", l1.Count(), l2.Count())
	}
	// A purely horizontal gradient has the same magnitude under both norms.
	for i := range l1.Pix {
		if l1.Pix[i] != l2.Pix[i] {
			t.Fatalf("L1 and L2 masks differ at index %d", i)
		}
	}
}

func TestCanny_EmptyImage(t *testing.T) {
	mask := Canny(image.NewGray(image.Rect(0, 0, 0, 0)), 50, 150, false)
	if mask.Width != 0 || mask.Height != 0 || len(mask.Pix) != 0 {
		t.Errorf("expected empty mask, got %dx%d", mask.Width, mask.Height)
	}
}

func TestGaussianKernel1D(t *testing.T) {
	for _, size := range []int{1, 3, 5, 7, 9, 11} {
		k := gaussianKernel1D(size)
		if len(k) != size {
			t.Fatalf("size %d: got %d taps", size, len(k))
		}
		var sum float64
		for i, v := range k {
			sum += v
			if math.Abs(v-k[size-1-i]) > 1e-12 {
				t.Errorf("size %d: kernel not symmetric at %d", size, i)
			}
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("size %d: taps sum to %g, want 1", size, sum)
		}
		if size > 1 && k[size/2] <= k[0] {
			t.Errorf("size %d: centre tap should dominate", size)
		}
	}
}

func TestGaussianBlur(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 9, 9))
	for i := range gray.Pix {
		gray.Pix[i] = 100
	}
	gray.SetGray(4, 4, color.Gray{255})

	if GaussianBlur(gray, 1) != gray {
		t.Error("kernel 1 should return the input unchanged")
	}

	blurred := GaussianBlur(gray, 5)
	if blurred.Bounds() != gray.Bounds() {
		t.Fatalf("bounds changed: %v", blurred.Bounds())
	}
	centre := blurred.GrayAt(4, 4).Y
	if centre >= 255 || centre <= 100 {
		t.Errorf("centre after blur: got %d, want between 100 and 255", centre)
	}
	if v := blurred.GrayAt(4, 5).Y; v <= 100 || v >= centre {
		t.Errorf("neighbour after blur: got %d, want between 100 and %d", v, centre)
	}
	if v := blurred.GrayAt(0, 0).Y; v < 99 || v > 100 {
		t.Errorf("far corner after blur: got %d, want ~100", v)
	}
}

func TestGrayscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 7, 6))
	img.Set(5, 5, color.RGBA{255, 0, 0, 255})
	img.Set(6, 5, color.RGBA{0, 0, 255, 255})

	g := Grayscale(img)
	if g.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Fatalf("bounds: got %v, want origin-anchored 2x1", g.Bounds())
	}
	// 0.299*255 and 0.114*255
	if v := g.GrayAt(0, 0).Y; v < 75 || v > 77 {
		t.Errorf("red luminance: got %d, want ~76", v)
	}
	if v := g.GrayAt(1, 0).Y; v < 28 || v > 30 {
		t.Errorf("blue luminance: got %d, want ~29", v)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}
	for _, tt := range tests {
		if got := clamp(tt.val, tt.lo, tt.hi); got != tt.want {
			t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.val, tt.lo, tt.hi, got, tt.want)
		}
	}
}
