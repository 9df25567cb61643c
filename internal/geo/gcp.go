package geo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// GCP is a ground control point tying a pixel position to a world position.
type GCP struct {
	Col, Row float64
	X, Y     float64
}

// ErrTooFewGCPs is returned when fewer than three control points are given.
var ErrTooFewGCPs = errors.New("at least 3 ground control points are required")

// ReadGCPs loads control points from a CSV file with columns col,row,x,y.
// A header row and lines starting with '#' are skipped.
func ReadGCPs(path string) ([]GCP, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCP file: %w", err)
	}
	defer f.Close()
	return ParseGCPs(f)
}

// ParseGCPs reads col,row,x,y records from r.
func ParseGCPs(r io.Reader) ([]GCP, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	var gcps []GCP
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid GCP file: %w", err)
		}

		var v [4]float64
		for i, s := range rec {
			if v[i], err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
				break
			}
		}
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("GCP record %d: %w", line, err)
		}
		gcps = append(gcps, GCP{Col: v[0], Row: v[1], X: v[2], Y: v[3]})
	}
	return gcps, nil
}

// FitTransform solves the affine transform that best maps the control
// points' pixel positions onto their world positions in the least-squares
// sense, and returns it with the root-mean-square residual in world units.
func FitTransform(gcps []GCP) (Transform, float64, error) {
	n := len(gcps)
	if n < 3 {
		return Transform{}, 0, ErrTooFewGCPs
	}

	a := mat.NewDense(n*2, 6, nil)
	b := mat.NewVecDense(n*2, nil)
	for i, g := range gcps {
		a.Set(i*2, 0, g.Col)
		a.Set(i*2, 1, g.Row)
		a.Set(i*2, 2, 1)
		b.SetVec(i*2, g.X)

		a.Set(i*2+1, 3, g.Col)
		a.Set(i*2+1, 4, g.Row)
		a.Set(i*2+1, 5, 1)
		b.SetVec(i*2+1, g.Y)
	}

	var qr mat.QR
	qr.Factorize(a)
	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, b); err != nil {
		return Transform{}, 0, fmt.Errorf("control points do not constrain an affine transform: %w", err)
	}

	t := Transform{
		A: params.AtVec(0), B: params.AtVec(1), C: params.AtVec(2),
		D: params.AtVec(3), E: params.AtVec(4), F: params.AtVec(5),
	}
	if err := t.Validate(); err != nil {
		return Transform{}, 0, err
	}

	var sum float64
	for _, g := range gcps {
		x, y := t.Apply(g.Col, g.Row)
		sum += (x-g.X)*(x-g.X) + (y-g.Y)*(y-g.Y)
	}
	return t, math.Sqrt(sum / float64(n)), nil
}
