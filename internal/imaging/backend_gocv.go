//go:build gocv

package imaging

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

// OpenCVBackend is registered when built with -tags gocv.
const OpenCVBackend = "opencv"

func init() {
	RegisterBackend(OpenCVBackend, func() Backend { return opencvBackend{} })
}

type opencvBackend struct{}

func (opencvBackend) Name() string { return OpenCVBackend }

func (opencvBackend) Edges(img image.Image, opts EdgeOptions) (*Mask, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.L2Gradient {
		return nil, errors.New("opencv backend does not support the L2 gradient")
	}

	gray := Grayscale(img)
	b := gray.Bounds()
	src, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8U, gray.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat: %w", err)
	}
	defer src.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	if opts.Kernel > 1 {
		gocv.GaussianBlur(src, &blurred, image.Pt(opts.Kernel, opts.Kernel), 0, 0, gocv.BorderDefault)
	} else {
		src.CopyTo(&blurred)
	}

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, float32(opts.Low), float32(opts.High))

	return matToMask(edges)
}

func (opencvBackend) Thin(m *Mask) (*Mask, error) {
	src, err := gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8U, m.Gray(255).Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	contrib.Thinning(src, &dst, contrib.ThinningZhangSuen)

	return matToMask(dst)
}

func matToMask(mat gocv.Mat) (*Mask, error) {
	data, err := mat.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("failed to read Mat: %w", err)
	}
	m := NewMask(mat.Cols(), mat.Rows())
	for i, v := range data[:len(m.Pix)] {
		if v != 0 {
			m.Pix[i] = 1
		}
	}
	return m, nil
}
