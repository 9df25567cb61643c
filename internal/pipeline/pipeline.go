// Package pipeline runs a terrace extraction end to end: read the image,
// detect edges, thin them, trace polylines, georeference them and write the
// vector and raster outputs.
//
// The stages run in order. Raster artifacts are written concurrently with
// tracing and vector output, and the first failure cancels the rest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/terrace-extractor/internal/config"
	"github.com/ironsheep/terrace-extractor/internal/geo"
	"github.com/ironsheep/terrace-extractor/internal/geotiff"
	"github.com/ironsheep/terrace-extractor/internal/imaging"
	"github.com/ironsheep/terrace-extractor/internal/report"
	"github.com/ironsheep/terrace-extractor/internal/trace"
	"github.com/ironsheep/terrace-extractor/internal/vector"
)

// Artifact names used as keys in Result.Artifacts and the report.
const (
	ArtifactEdges     = "edges"
	ArtifactSkeleton  = "skeleton"
	ArtifactVectors   = "vectors"
	ArtifactOverlay   = "overlay"
	ArtifactReport    = "report"
	ArtifactHistogram = "histogram"
)

// Runner executes extractions. Create one with New.
type Runner struct {
	logger  *zap.Logger
	cache   *imaging.ImageCache
	version string
}

// Option configures a Runner.
type Option func(*Runner)

// WithCache reads images through cache instead of from disk on every run.
func WithCache(cache *imaging.ImageCache) Option {
	return func(r *Runner) { r.cache = cache }
}

// WithVersion stamps reports with the tool version.
func WithVersion(v string) Option {
	return func(r *Runner) { r.version = v }
}

// New returns a Runner logging to logger. A nil logger discards logs.
func New(logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result summarises a finished run.
type Result struct {
	OutDir     string            `json:"out_dir"`
	VectorPath string            `json:"vector_path"`
	Artifacts  map[string]string `json:"artifacts"`

	Georeferenced bool   `json:"georeferenced"`
	GeorefSource  string `json:"georef_source"`
	CRS           string `json:"crs"`

	Polylines int `json:"polylines"`
	Kept      int `json:"kept"`

	Report *report.Report `json:"-"`
}

// run carries the state of one extraction between stages.
type run struct {
	cfg *config.Config
	log *zap.Logger
	rep *report.Report

	backend imaging.Backend
	mode    trace.Mode
	format  vector.Format

	img       image.Image
	georef    Georef
	transform geo.Transform

	mu        sync.Mutex
	artifacts map[string]string
}

func (s *run) artifact(name, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[name] = path
}

// Run executes the extraction described by cfg.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	start := time.Now()

	s := &run{cfg: cfg, rep: report.New(r.version), artifacts: make(map[string]string)}
	s.log = r.logger.With(zap.String("run_id", s.rep.RunID))
	s.mode, _ = trace.ParseMode(cfg.Trace.Mode)
	s.format, _ = vector.ParseFormat(cfg.Output.Format)

	var err error
	if s.backend, err = imaging.NewBackend(cfg.Backend); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create output directory: %w", err)
	}

	if err := r.read(s); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	edges, skeleton, err := s.detect(ctx)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	w := rasterWriter{dir: cfg.OutDir, georef: s.georef, transform: s.transform}
	for name, m := range map[string]*imaging.Mask{ArtifactEdges: edges, ArtifactSkeleton: skeleton} {
		name, m := name, m
		g.Go(func() error {
			path, err := w.write(gctx, "terrace_"+name, m)
			if err != nil {
				return err
			}
			s.artifact(name, path)
			return nil
		})
	}

	lines, kept, err := s.vectorize(gctx, skeleton)
	if err != nil {
		if werr := g.Wait(); werr != nil {
			return nil, fmt.Errorf("failed to write artifacts: %w", werr)
		}
		return nil, err
	}

	if cfg.Output.Overlay {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ov, err := imaging.Overlay(s.img, trace.Points(lines), imaging.DefaultOverlayOptions())
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.OutDir, "terrace_overlay.png")
			if err := imaging.SaveImage(path, ov); err != nil {
				return err
			}
			s.artifact(ArtifactOverlay, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to write artifacts: %w", err)
	}
	s.log.Debug("Artifacts written", zap.Any("artifacts", s.artifacts))

	if cfg.Output.Report {
		if err := s.writeReport(kept, start); err != nil {
			return nil, err
		}
	}

	s.log.Info("Extraction complete",
		zap.String("out", cfg.OutDir),
		zap.String("vectors", s.artifacts[ArtifactVectors]),
		zap.Int("polylines", len(lines)),
		zap.Int("kept", len(kept.Features)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		OutDir:        cfg.OutDir,
		VectorPath:    s.artifacts[ArtifactVectors],
		Artifacts:     s.artifacts,
		Georeferenced: s.georef.Embedded(),
		GeorefSource:  s.georef.Source,
		CRS:           kept.CRS.String(),
		Polylines:     len(lines),
		Kept:          len(kept.Features),
		Report:        s.rep,
	}, nil
}

// read loads the raster, resolves georeferencing and applies the window.
func (r *Runner) read(s *run) error {
	cfg := s.cfg
	t := time.Now()

	var raster *imaging.Raster
	var err error
	if r.cache != nil {
		raster, err = r.cache.Load(cfg.Image)
	} else {
		raster, err = imaging.Load(cfg.Image)
	}
	if err != nil {
		return err
	}
	full := raster.Image.Bounds()
	s.log.Info("Image loaded",
		zap.String("path", cfg.Image),
		zap.String("format", raster.Format),
		zap.Int("width", full.Dx()),
		zap.Int("height", full.Dy()),
		zap.Duration("elapsed", time.Since(t)))

	if s.georef, err = ResolveGeoref(raster, cfg.Georef); err != nil {
		return err
	}
	if s.georef.Warning != "" {
		s.log.Warn("Ignoring image georeferencing", zap.String("reason", s.georef.Warning))
	}
	s.log.Info("Georeferencing resolved",
		zap.String("source", s.georef.Source),
		zap.Stringer("crs", s.georef.CRS),
		zap.Stringer("transform", s.georef.Transform))

	region, err := imaging.ParseRegion(cfg.Window.Crop, full.Dx(), full.Dy())
	if err != nil {
		return err
	}
	if s.img, err = imaging.Window(raster.Image, region, cfg.Window.Scale); err != nil {
		return err
	}
	if s.transform, err = s.georef.Transform.Window(region.X1, region.Y1, cfg.Window.Scale); err != nil {
		return err
	}
	if !region.Empty() || cfg.Window.Scale != 1 {
		s.log.Debug("Processing window",
			zap.Stringer("region", region),
			zap.Float64("scale", cfg.Window.Scale),
			zap.Int("width", s.img.Bounds().Dx()),
			zap.Int("height", s.img.Bounds().Dy()))
	}
	s.rep.Stage("read", time.Since(t))

	s.rep.Input = report.Input{
		Path:   cfg.Image,
		Format: raster.Format,
		Width:  full.Dx(),
		Height: full.Dy(),
		Bands:  raster.Bands,
		Scale:  cfg.Window.Scale,
	}
	if !region.Empty() {
		s.rep.Input.Window = region.String()
	}
	s.rep.Parameters = report.Parameters{
		Backend:     s.backend.Name(),
		T1:          cfg.Edges.Low,
		T2:          cfg.Edges.High,
		Kernel:      cfg.Edges.Kernel,
		L2Gradient:  cfg.Edges.L2Gradient,
		TraceMode:   string(s.mode),
		Simplify:    cfg.Trace.Simplify,
		MinLength:   cfg.Output.MinLength,
		Format:      string(s.format),
		ProjectEPSG: cfg.Georef.ProjectEPSG,
	}
	s.rep.Georef = report.Georef{
		Source:    s.georef.Source,
		CRS:       s.georef.CRS.String(),
		Transform: s.transform.GDAL(),
	}
	if s.georef.Source == SourceGCP {
		rms := s.georef.GCPResidual
		s.rep.Georef.GCPResidual = &rms
	}
	return nil
}

// detect runs edge detection and thinning on the windowed image.
func (s *run) detect(ctx context.Context) (edges, skeleton *imaging.Mask, err error) {
	t := time.Now()
	edges, err = s.backend.Edges(s.img, s.cfg.Edges)
	if err != nil {
		return nil, nil, fmt.Errorf("edge detection failed: %w", err)
	}
	s.rep.Stage("edges", time.Since(t))
	s.rep.Counts.EdgePixels = edges.Count()
	s.log.Info("Edges detected",
		zap.String("backend", s.backend.Name()),
		zap.Int("pixels", s.rep.Counts.EdgePixels),
		zap.Duration("elapsed", time.Since(t)))

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	t = time.Now()
	skeleton, err = s.backend.Thin(edges)
	if err != nil {
		return nil, nil, fmt.Errorf("thinning failed: %w", err)
	}
	s.rep.Stage("thin", time.Since(t))
	s.rep.Counts.SkeletonPixels = skeleton.Count()
	s.log.Info("Edges thinned",
		zap.Int("pixels", s.rep.Counts.SkeletonPixels),
		zap.Duration("elapsed", time.Since(t)))
	return edges, skeleton, nil
}

// vectorize traces the skeleton, maps it to world coordinates, filters by
// length and writes the vector file.
func (s *run) vectorize(ctx context.Context, skeleton *imaging.Mask) ([]trace.Polyline, *vector.Collection, error) {
	cfg := s.cfg
	t := time.Now()
	lines, err := trace.Trace(skeleton, trace.Options{Mode: s.mode, Simplify: cfg.Trace.Simplify})
	if err != nil {
		return nil, nil, err
	}
	s.rep.Stage("trace", time.Since(t))
	s.rep.Counts.Polylines = len(lines)
	s.log.Info("Polylines traced",
		zap.String("mode", string(s.mode)),
		zap.Int("count", len(lines)),
		zap.Duration("elapsed", time.Since(t)))

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	t = time.Now()
	all, err := vector.FromPolylines(lines, s.transform, s.georef.CRS)
	if err != nil {
		return nil, nil, err
	}
	s.rep.Counts.Features = len(all.Features)

	kept, res, err := vector.FilterByLength(all, cfg.Output.MinLength, cfg.Georef.ProjectCRS())
	if err != nil {
		return nil, nil, err
	}
	s.rep.Counts.Kept = len(kept.Features)
	if res.Applied {
		s.log.Info("Length filter applied",
			zap.Float64("min_length", cfg.Output.MinLength),
			zap.Int("kept", len(kept.Features)),
			zap.Int("dropped", res.Dropped))
	} else {
		s.rep.Counts.FilterSkipped = res.Reason.Error()
		s.log.Warn("Length filter skipped", zap.Error(res.Reason), zap.Stringer("crs", kept.CRS))
	}

	path, err := vector.Write(cfg.OutDir, kept, s.format)
	if err != nil {
		return nil, nil, err
	}
	s.artifact(ArtifactVectors, path)
	s.rep.Stage("vectorize", time.Since(t))
	s.log.Info("Vectors written",
		zap.String("path", path),
		zap.String("format", string(s.format)),
		zap.Int("features", len(kept.Features)),
		zap.Duration("elapsed", time.Since(t)))
	return lines, kept, nil
}

func (s *run) writeReport(kept *vector.Collection, start time.Time) error {
	lengths := kept.Lengths()
	s.rep.Lengths = report.ComputeLengthStats(lengths)

	path, err := report.WriteHistogram(s.cfg.OutDir, lengths, lengthUnits(kept.CRS))
	switch {
	case err == nil:
		s.artifact(ArtifactHistogram, path)
	case !errors.Is(err, report.ErrNoLengths):
		return err
	}

	for k, v := range s.artifacts {
		s.rep.Artifacts[k] = v
	}
	s.rep.Artifacts[ArtifactReport] = filepath.Join(s.cfg.OutDir, report.FileName)
	s.rep.ElapsedSeconds = time.Since(start).Seconds()

	if path, err = s.rep.Write(s.cfg.OutDir); err != nil {
		return err
	}
	s.artifact(ArtifactReport, path)
	return nil
}

func lengthUnits(crs geo.CRS) string {
	switch {
	case !crs.Known():
		return ""
	case crs.IsGeographic():
		return "deg"
	default:
		return "m"
	}
}

// rasterWriter writes binary masks as 0/1 GeoTIFF when the input was
// georeferenced and as 0/255 PNG with a .pgw world file otherwise.
type rasterWriter struct {
	dir       string
	georef    Georef
	transform geo.Transform
}

func (w rasterWriter) write(ctx context.Context, name string, m *imaging.Mask) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if w.georef.Embedded() {
		path := filepath.Join(w.dir, name+".tif")
		return path, geotiff.WriteFile(path, m.Gray(1), geotiff.Options{
			Transform: w.transform,
			CRS:       w.georef.CRS,
			Deflate:   true,
		})
	}
	path := filepath.Join(w.dir, name+".png")
	if err := imaging.SaveImage(path, m.Gray(255)); err != nil {
		return "", err
	}
	return path, geo.WriteWorldFile(filepath.Join(w.dir, name+".pgw"), w.transform)
}
