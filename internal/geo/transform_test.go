package geo

import (
	"math"
	"testing"
)

func TestNewPixelTransform(t *testing.T) {
	tr := NewPixelTransform(1000, 2000, 0.3)

	tests := []struct {
		name     string
		col, row float64
		wantX    float64
		wantY    float64
	}{
		{"origin", 0, 0, 1000, 2000},
		{"one column", 1, 0, 1000.3, 2000},
		{"one row", 0, 1, 1000, 1999.7},
		{"diagonal", 10, 20, 1003, 1994},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tr.Apply(tt.col, tt.row)
			if math.Abs(x-tt.wantX) > 1e-9 || math.Abs(y-tt.wantY) > 1e-9 {
				t.Errorf("Apply(%g, %g): got (%g, %g), want (%g, %g)", tt.col, tt.row, x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestTransform_GDAL(t *testing.T) {
	tr := Transform{A: 0.5, C: 500000, E: -0.5, F: 4649776}
	if want := [6]float64{500000, 0.5, 0, 4649776, 0, -0.5}; tr.GDAL() != want {
		t.Errorf("GDAL(): got %v, want %v", tr.GDAL(), want)
	}
	if !tr.IsNorthUp() {
		t.Error("expected north-up transform")
	}
}

func TestTransform_Window(t *testing.T) {
	tr := NewPixelTransform(100, 200, 2)

	win, err := tr.Window(10, 5, 2)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if win.C != 120 || win.F != 190 {
		t.Errorf("window origin: got (%g, %g), want (120, 190)", win.C, win.F)
	}
	if win.A != 1 || win.E != -1 {
		t.Errorf("window pixel size: got (%g, %g), want (1, -1)", win.A, win.E)
	}

	// Pixel (2,2) of the upsampled window is pixel (11,6) of the source.
	wx, wy := win.Apply(2, 2)
	sx, sy := tr.Apply(11, 6)
	if wx != sx || wy != sy {
		t.Errorf("window pixel maps to (%g, %g), source pixel to (%g, %g)", wx, wy, sx, sy)
	}

	if _, err := tr.Window(0, 0, 0); err == nil {
		t.Error("expected error for zero scale")
	}
}

func TestTransform_Validate(t *testing.T) {
	if err := NewPixelTransform(0, 0, 1).Validate(); err != nil {
		t.Errorf("valid transform rejected: %v", err)
	}
	if err := (Transform{}).Validate(); err == nil {
		t.Error("zero transform should be degenerate")
	}
	if err := (Transform{A: math.NaN(), E: -1}).Validate(); err == nil {
		t.Error("NaN transform should be rejected")
	}
}

func TestTransform_PixelSize(t *testing.T) {
	px, py := NewPixelTransform(0, 0, 0.3).PixelSize()
	if math.Abs(px-0.3) > 1e-12 || math.Abs(py-0.3) > 1e-12 {
		t.Errorf("PixelSize: got (%g, %g), want (0.3, 0.3)", px, py)
	}
}
