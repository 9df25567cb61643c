package trace

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/terrace-extractor/internal/imaging"
)

func TestContours_FilledSquare(t *testing.T) {
	m := maskFromRows(
		".....",
		".###.",
		".###.",
		".###.",
		".....",
	)
	got := Contours(m)
	want := []Polyline{{Points: pts(1, 1, 1, 2, 1, 3, 2, 3, 3, 3, 3, 2, 3, 1, 2, 1)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Contours mismatch (-want +got):\n%s", diff)
	}
}

func TestContours_RingHasHole(t *testing.T) {
	m := maskFromRows(
		".......",
		".#####.",
		".#...#.",
		".#...#.",
		".#...#.",
		".#####.",
		".......",
	)
	got := Contours(m)
	want := []Polyline{
		{Points: pts(1, 1, 1, 2, 1, 3, 1, 4, 1, 5, 2, 5, 3, 5, 4, 5,
			5, 5, 5, 4, 5, 3, 5, 2, 5, 1, 4, 1, 3, 1, 2, 1)},
		// The hole border cuts the inner corners.
		{Points: pts(1, 2, 2, 1, 3, 1, 4, 1, 5, 2, 5, 3,
			5, 4, 4, 5, 3, 5, 2, 5, 1, 4, 1, 3)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Contours mismatch (-want +got):\n%s", diff)
	}
}

func TestContours_Components(t *testing.T) {
	m := maskFromRows(
		"#.........",
		"..##......",
		"......#...",
		".......#..",
		"........#.",
	)
	got := Contours(m)
	want := []Polyline{
		{Points: pts(0, 0)},
		{Points: pts(2, 1, 3, 1)},
		{Points: pts(6, 2, 7, 3, 8, 4, 7, 3)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Contours mismatch (-want +got):\n%s", diff)
	}
}

func TestContours_TouchesBorder(t *testing.T) {
	m := maskFromRows(
		"###",
		"...",
	)
	got := Contours(m)
	want := []Polyline{{Points: pts(0, 0, 1, 0, 2, 0, 1, 0)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Contours mismatch (-want +got):\n%s", diff)
	}
}

func TestContours_EmptyMask(t *testing.T) {
	if got := Contours(imaging.NewMask(0, 0)); got != nil {
		t.Errorf("zero-size mask: got %v", got)
	}
	if got := Contours(imaging.NewMask(4, 4)); len(got) != 0 {
		t.Errorf("empty mask: got %d contours", len(got))
	}
}

func TestContours_DoesNotModifyMask(t *testing.T) {
	m := maskFromRows(".##.", ".##.")
	before := append([]uint8(nil), m.Pix...)
	Contours(m)
	if diff := cmp.Diff(before, m.Pix); diff != "" {
		t.Errorf("mask modified (-want +got):\n%s", diff)
	}
}
