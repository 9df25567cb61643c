package pipeline

import (
	"fmt"

	"github.com/ironsheep/terrace-extractor/internal/config"
	"github.com/ironsheep/terrace-extractor/internal/geo"
	"github.com/ironsheep/terrace-extractor/internal/imaging"
)

// Georeferencing sources recorded in logs and the report.
const (
	SourceGCP       = "gcp"
	SourcePixelSize = "pixel-size"
)

// Georef is the resolved pixel-to-world mapping for the full input raster.
type Georef struct {
	Transform geo.Transform
	CRS       geo.CRS

	// Source is geotiff, worldfile, gcp or pixel-size.
	Source string

	// GCPResidual is the RMS fit error when Source is gcp.
	GCPResidual float64

	// Warning is set when georeferencing found with the image was ignored.
	Warning string
}

// Embedded reports whether the mapping came from the image or from control
// points rather than from the pixel-size fallback. Only then are raster
// artifacts written as GeoTIFF.
func (g Georef) Embedded() bool {
	return g.Source != SourcePixelSize && g.CRS.Known()
}

// ResolveGeoref picks the transform and CRS for r. Control points win over
// everything else. Otherwise a transform found with the image is used when a
// CRS is known, either from the image or from cfg. Failing that, pixels are
// placed on a north-up grid of cfg's pixel size.
func ResolveGeoref(r *imaging.Raster, cfg config.GeorefConfig) (Georef, error) {
	crs := r.CRS
	if !crs.Known() {
		crs = cfg.CRS()
	}

	if cfg.GCPs != "" {
		gcps, err := geo.ReadGCPs(cfg.GCPs)
		if err != nil {
			return Georef{}, err
		}
		t, rms, err := geo.FitTransform(gcps)
		if err != nil {
			return Georef{}, fmt.Errorf("failed to fit %s: %w", cfg.GCPs, err)
		}
		return Georef{Transform: t, CRS: crs, Source: SourceGCP, GCPResidual: rms}, nil
	}

	if r.HasTransform && crs.Known() {
		return Georef{Transform: r.Transform, CRS: crs, Source: r.Source}, nil
	}

	g := Georef{
		Transform: geo.NewPixelTransform(cfg.OriginX, cfg.OriginY, cfg.PixelSize),
		CRS:       cfg.CRS(),
		Source:    SourcePixelSize,
	}
	if r.HasTransform {
		g.Warning = fmt.Sprintf("%s transform has no CRS; using pixel size %g instead", r.Source, cfg.PixelSize)
	}
	return g, nil
}
