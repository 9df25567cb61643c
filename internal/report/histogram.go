package report

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// HistogramFileName is the length histogram written next to the report.
const HistogramFileName = "terrace_lengths.png"

// ErrNoLengths is returned by WriteHistogram when there is nothing to plot.
var ErrNoLengths = errors.New("no lengths to plot")

const maxBins = 30

// WriteHistogram plots the distribution of line lengths into dir and returns
// the image path. units labels the x axis.
func WriteHistogram(dir string, lengths []float64, units string) (string, error) {
	if len(lengths) == 0 {
		return "", ErrNoLengths
	}

	h, err := plotter.NewHist(plotter.Values(lengths), histogramBins(len(lengths)))
	if err != nil {
		return "", fmt.Errorf("failed to bin lengths: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Terrace line lengths (n=%d)", len(lengths))
	p.X.Label.Text = "Length"
	if units != "" {
		p.X.Label.Text = fmt.Sprintf("Length (%s)", units)
	}
	p.Y.Label.Text = "Lines"
	p.Add(h)

	path := filepath.Join(dir, HistogramFileName)
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save length histogram: %w", err)
	}
	return path, nil
}

// histogramBins uses the square-root rule, capped at maxBins.
func histogramBins(n int) int {
	bins := int(math.Ceil(math.Sqrt(float64(n))))
	return max(1, min(bins, maxBins))
}
