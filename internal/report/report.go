// Package report records what a terrace extraction run did: its inputs and
// parameters, georeferencing, counts at each stage, line length statistics
// and the artifacts it wrote.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FileName is the name of the JSON report inside the output directory.
const FileName = "terrace_report.json"

// Report is the JSON document written at the end of a run.
type Report struct {
	RunID     string    `json:"run_id"`
	Version   string    `json:"version,omitempty"`
	StartedAt time.Time `json:"started_at"`

	Input      Input      `json:"input"`
	Parameters Parameters `json:"parameters"`
	Georef     Georef     `json:"georeferencing"`
	Counts     Counts     `json:"counts"`

	// Lengths is nil when no feature survived.
	Lengths *LengthStats `json:"lengths,omitempty"`

	// Artifacts maps an artifact name (edges, skeleton, vectors, overlay,
	// histogram) to its path.
	Artifacts map[string]string `json:"artifacts"`

	// Stages holds the wall time of each stage in seconds.
	Stages         map[string]float64 `json:"stages_seconds"`
	ElapsedSeconds float64            `json:"elapsed_seconds"`
}

// Input describes the raster that was processed.
type Input struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bands  int    `json:"bands,omitempty"`

	// Window is the processed pixel region, empty for the full image.
	Window string  `json:"window,omitempty"`
	Scale  float64 `json:"scale"`
}

// Parameters echoes the settings that shaped the result.
type Parameters struct {
	Backend     string  `json:"backend"`
	T1          float64 `json:"t1"`
	T2          float64 `json:"t2"`
	Kernel      int     `json:"kernel"`
	L2Gradient  bool    `json:"l2_gradient"`
	TraceMode   string  `json:"trace_mode"`
	Simplify    float64 `json:"simplify"`
	MinLength   float64 `json:"min_length"`
	Format      string  `json:"format"`
	ProjectEPSG int     `json:"project_epsg,omitempty"`
}

// Georef describes how pixels were mapped to world coordinates.
type Georef struct {
	// Source is geotiff, worldfile, gcp or pixel-size.
	Source    string     `json:"source"`
	CRS       string     `json:"crs"`
	Transform [6]float64 `json:"geotransform"`

	// GCPResidual is the RMS fit error in world units when Source is gcp.
	GCPResidual *float64 `json:"gcp_rms,omitempty"`
}

// Counts tracks how much survived each stage.
type Counts struct {
	EdgePixels     int `json:"edge_pixels"`
	SkeletonPixels int `json:"skeleton_pixels"`
	Polylines      int `json:"polylines"`
	Features       int `json:"features"`
	Kept           int `json:"kept"`

	// FilterSkipped explains why length filtering did not run.
	FilterSkipped string `json:"filter_skipped,omitempty"`
}

// LengthStats summarises feature lengths in CRS units.
type LengthStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Total  float64 `json:"total"`
}

// New starts a report with a fresh run ID.
func New(version string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Version:   version,
		StartedAt: time.Now().UTC(),
		Artifacts: make(map[string]string),
		Stages:    make(map[string]float64),
	}
}

// Stage records the duration of a named stage.
func (r *Report) Stage(name string, d time.Duration) {
	r.Stages[name] = d.Seconds()
}

// ComputeLengthStats summarises lengths. It returns nil for an empty slice.
// The median is the empirical 0.5 quantile, so it is always one of the
// observed lengths.
func ComputeLengthStats(lengths []float64) *LengthStats {
	if len(lengths) == 0 {
		return nil
	}
	sorted := append([]float64(nil), lengths...)
	sort.Float64s(sorted)

	return &LengthStats{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Total:  floats.Sum(sorted),
	}
}

// Write stores the report as indented JSON in dir and returns its path.
func (r *Report) Write(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
