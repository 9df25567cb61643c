package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/terrace-extractor/internal/config"
	"github.com/ironsheep/terrace-extractor/internal/geo"
	"github.com/ironsheep/terrace-extractor/internal/pipeline"
	"github.com/ironsheep/terrace-extractor/internal/vector"
)

// extractFlags mirrors the extract command line. Values are copied into the
// configuration only for flags the user set.
type extractFlags struct {
	image, out string

	t1, t2     float64
	kernel     int
	l2Gradient bool
	backend    string

	crop  string
	scale float64

	traceMode string
	simplify  float64

	minLength float64
	asGpkg    bool
	format    string
	overlay   bool
	report    bool

	epsg        string
	pixelSize   float64
	originX     float64
	originY     float64
	gcps        string
	projectEPSG string

	saveConfig string
}

func (a *app) extractCmd() *cobra.Command {
	var f extractFlags

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the extraction and write vectors and raster artifacts",
		Example: `  terrace-extractor extract --image ortho.tif --out result
  terrace-extractor extract --image photo.png --out result --epsg 32633 --pixel-size 0.25 --as-gpkg
  terrace-extractor extract --image photo.png --out result --gcps points.csv --epsg 32633 --trace-mode centerline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.apply(cmd.Flags().Changed, a.cfg); err != nil {
				return err
			}
			if f.saveConfig != "" {
				if err := a.cfg.Save(f.saveConfig); err != nil {
					return err
				}
			}

			res, err := pipeline.New(a.logger, pipeline.WithVersion(Version)).Run(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Outputs written to: %s\n", res.OutDir)
			fmt.Fprintf(cmd.OutOrStdout(), "Vector file: %s\n", res.VectorPath)
			return nil
		},
	}

	d := config.DefaultConfig()
	fl := cmd.Flags()
	fl.StringVar(&f.image, "image", "", "input raster (PNG, JPEG, GIF, BMP, TIFF or GeoTIFF)")
	fl.StringVar(&f.out, "out", "", "output directory, created if missing")

	fl.Float64Var(&f.t1, "t1", d.Edges.Low, "Canny low threshold")
	fl.Float64Var(&f.t2, "t2", d.Edges.High, "Canny high threshold")
	fl.IntVar(&f.kernel, "kernel", d.Edges.Kernel, "Gaussian blur kernel size (odd; 1 disables blurring)")
	fl.BoolVar(&f.l2Gradient, "l2-gradient", d.Edges.L2Gradient, "use the L2 gradient magnitude")
	fl.StringVar(&f.backend, "backend", d.Backend, "edge and thinning backend: native or opencv")

	fl.StringVar(&f.crop, "crop", d.Window.Crop, `process only "x1,y1,x2,y2" or a named region such as "top-left"`)
	fl.Float64Var(&f.scale, "scale", d.Window.Scale, "resample factor applied after cropping")

	fl.StringVar(&f.traceMode, "trace-mode", d.Trace.Mode, "contour or centerline")
	fl.Float64Var(&f.simplify, "simplify", d.Trace.Simplify, "Douglas-Peucker tolerance in pixels (0 keeps every point)")

	fl.Float64Var(&f.minLength, "min-length", d.Output.MinLength, "minimum line length in CRS units")
	fl.BoolVar(&f.asGpkg, "as-gpkg", false, "write a GeoPackage instead of a shapefile")
	fl.StringVar(&f.format, "format", "", "vector format: shp, gpkg or geojson (overrides --as-gpkg)")
	fl.BoolVar(&f.overlay, "overlay", d.Output.Overlay, "write the QA overlay PNG")
	fl.BoolVar(&f.report, "report", d.Output.Report, "write the JSON report and length histogram")

	fl.StringVar(&f.epsg, "epsg", "", `CRS of the image when it carries none, as "32633" or "EPSG:32633"`)
	fl.Float64Var(&f.pixelSize, "pixel-size", d.Georef.PixelSize, "ground size of one pixel when the image is not georeferenced")
	fl.Float64Var(&f.originX, "origin-x", d.Georef.OriginX, "world X of the top-left corner when the image is not georeferenced")
	fl.Float64Var(&f.originY, "origin-y", d.Georef.OriginY, "world Y of the top-left corner when the image is not georeferenced")
	fl.StringVar(&f.gcps, "gcps", "", "CSV of col,row,x,y ground control points")
	fl.StringVar(&f.projectEPSG, "project-epsg", "", "reproject vectors to this CRS before length filtering")
	fl.StringVar(&f.saveConfig, "save-config", "", "write the effective configuration as YAML to this path")

	return cmd
}

// apply copies every flag for which changed reports true into cfg.
func (f *extractFlags) apply(changed func(name string) bool, cfg *config.Config) error {
	if changed("image") {
		cfg.Image = f.image
	}
	if changed("out") {
		cfg.OutDir = f.out
	}
	if changed("t1") {
		cfg.Edges.Low = f.t1
	}
	if changed("t2") {
		cfg.Edges.High = f.t2
	}
	if changed("kernel") {
		cfg.Edges.Kernel = f.kernel
	}
	if changed("l2-gradient") {
		cfg.Edges.L2Gradient = f.l2Gradient
	}
	if changed("backend") {
		cfg.Backend = f.backend
	}
	if changed("crop") {
		cfg.Window.Crop = f.crop
	}
	if changed("scale") {
		cfg.Window.Scale = f.scale
	}
	if changed("trace-mode") {
		cfg.Trace.Mode = f.traceMode
	}
	if changed("simplify") {
		cfg.Trace.Simplify = f.simplify
	}
	if changed("min-length") {
		cfg.Output.MinLength = f.minLength
	}
	switch {
	case changed("format"):
		cfg.Output.Format = f.format
	case changed("as-gpkg") && f.asGpkg:
		cfg.Output.Format = string(vector.FormatGeoPackage)
	}
	if changed("overlay") {
		cfg.Output.Overlay = f.overlay
	}
	if changed("report") {
		cfg.Output.Report = f.report
	}
	if changed("epsg") {
		crs, err := geo.ParseCRS(f.epsg)
		if err != nil {
			return fmt.Errorf("--epsg: %w", err)
		}
		cfg.Georef.EPSG = crs.EPSG
	}
	if changed("pixel-size") {
		cfg.Georef.PixelSize = f.pixelSize
	}
	if changed("origin-x") {
		cfg.Georef.OriginX = f.originX
	}
	if changed("origin-y") {
		cfg.Georef.OriginY = f.originY
	}
	if changed("gcps") {
		cfg.Georef.GCPs = f.gcps
	}
	if changed("project-epsg") {
		crs, err := geo.ParseCRS(f.projectEPSG)
		if err != nil {
			return fmt.Errorf("--project-epsg: %w", err)
		}
		cfg.Georef.ProjectEPSG = crs.EPSG
	}
	return nil
}
