package imaging

import (
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    Region
		wantErr bool
	}{
		{"", Region{}, false},
		{"10,20,30,40", Region{10, 20, 30, 40}, false},
		{" 1, 2 ,3,4 ", Region{1, 2, 3, 4}, false},
		{"top-left", Region{0, 0, 50, 40}, false},
		{"bottom-right", Region{50, 40, 100, 80}, false},
		{"right-half", Region{50, 0, 100, 80}, false},
		{"center", Region{25, 20, 75, 60}, false},
		{"1,2,3", Region{}, true},
		{"a,b,c,d", Region{}, true},
		{"middle", Region{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRegion(tt.in, 100, 80)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRegion(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseRegion(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	img := createStepImage(100, 80, 50)

	tests := []struct {
		name          string
		region        Region
		scale         float64
		wantW, wantH  int
		wantErr       bool
		wantUnchanged bool
	}{
		{"full image", Region{}, 1.0, 100, 80, false, true},
		{"crop", Region{10, 10, 60, 30}, 1.0, 50, 20, false, false},
		{"crop and upscale", Region{0, 0, 50, 40}, 2.0, 100, 80, false, false},
		{"downscale", Region{}, 0.5, 50, 40, false, false},
		{"outside bounds", Region{50, 50, 150, 60}, 1.0, 0, 0, true, false},
		{"inverted", Region{30, 30, 10, 40}, 1.0, 0, 0, true, false},
		{"bad scale", Region{}, 0, 0, 0, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Window(img, tt.region, tt.scale)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Window error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			b := got.Bounds()
			if b.Min.X != 0 || b.Min.Y != 0 || b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("bounds: got %v, want %dx%d at origin", b, tt.wantW, tt.wantH)
			}
			if tt.wantUnchanged && got != img {
				t.Error("full window at scale 1 should return the input")
			}
		})
	}
}

func TestWindow_Content(t *testing.T) {
	img := createStepImage(100, 80, 50)
	got, err := Window(img, Region{45, 0, 55, 10}, 1.0)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if r, _, _, _ := got.At(0, 0).RGBA(); r != 0 {
		t.Errorf("left of step should be black, got %v", got.At(0, 0))
	}
	white := color.NRGBAModel.Convert(color.White)
	if got.At(9, 9) != white {
		t.Errorf("right of step should be white, got %v", got.At(9, 9))
	}
}
