// Package vector holds georeferenced terrace lines and writes them as
// Shapefile, GeoPackage or GeoJSON.
package vector

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"

	"github.com/ironsheep/terrace-extractor/internal/geo"
	"github.com/ironsheep/terrace-extractor/internal/trace"
)

// Feature is one terrace line with its attributes.
type Feature struct {
	// ID is the 1-based position of the line in trace order. It survives
	// filtering, so gaps show which lines were dropped.
	ID   int
	Line *geom.LineString
}

// Length returns the planar length in CRS units.
func (f Feature) Length() float64 {
	return f.Line.Length()
}

// NumPoints returns the number of vertices.
func (f Feature) NumPoints() int {
	return f.Line.NumCoords()
}

// Collection is a set of features sharing one CRS. An unknown CRS means the
// coordinates are in an unspecified planar system.
type Collection struct {
	CRS      geo.CRS
	Features []Feature
}

// FromPolylines maps pixel polylines through t into world coordinates.
// Polylines with fewer than two points are skipped but still consume an ID.
func FromPolylines(lines []trace.Polyline, t geo.Transform, crs geo.CRS) (*Collection, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	c := &Collection{CRS: crs, Features: make([]Feature, 0, len(lines))}
	for i, l := range lines {
		if len(l.Points) < 2 {
			continue
		}
		flat := make([]float64, 0, 2*len(l.Points))
		for _, p := range l.Points {
			x, y := t.Apply(float64(p.X), float64(p.Y))
			flat = append(flat, x, y)
		}
		c.Features = append(c.Features, Feature{
			ID:   i + 1,
			Line: geom.NewLineStringFlat(geom.XY, flat),
		})
	}
	return c, nil
}

// Bounds returns the extent of every feature, or nil for an empty collection.
func (c *Collection) Bounds() *geom.Bounds {
	if len(c.Features) == 0 {
		return nil
	}
	b := geom.NewBounds(geom.XY)
	for _, f := range c.Features {
		b.Extend(f.Line)
	}
	return b
}

// Lengths returns the length of every feature in order.
func (c *Collection) Lengths() []float64 {
	out := make([]float64, len(c.Features))
	for i, f := range c.Features {
		out[i] = f.Length()
	}
	return out
}

// Reproject returns a copy of c with every coordinate converted to crs.
func (c *Collection) Reproject(crs geo.CRS) (*Collection, error) {
	project, err := geo.NewProjector(c.CRS, crs)
	if err != nil {
		return nil, fmt.Errorf("cannot reproject from %s to %s: %w", c.CRS, crs, err)
	}

	out := &Collection{CRS: crs, Features: make([]Feature, len(c.Features))}
	for i, f := range c.Features {
		src := f.Line.FlatCoords()
		flat := make([]float64, len(src))
		for j := 0; j+1 < len(src); j += 2 {
			x, y, err := project(src[j], src[j+1])
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", f.ID, err)
			}
			flat[j], flat[j+1] = x, y
		}
		out.Features[i] = Feature{ID: f.ID, Line: geom.NewLineStringFlat(geom.XY, flat)}
	}
	return out, nil
}

// ErrGeographicCRS is reported by FilterResult when lengths could not be
// compared because the CRS is angular.
var ErrGeographicCRS = errors.New("lengths in a geographic CRS are not metric")

// FilterResult describes what FilterByLength did.
type FilterResult struct {
	// Applied is false when filtering was skipped; Reason says why.
	Applied bool
	Reason  error
	Dropped int
}

// FilterByLength reprojects c to project when it is known, then keeps
// features at least minLength long. When the resulting CRS is unknown or
// geographic the collection is returned unfiltered.
func FilterByLength(c *Collection, minLength float64, project geo.CRS) (*Collection, FilterResult, error) {
	if project.Known() {
		var err error
		if c, err = c.Reproject(project); err != nil {
			return nil, FilterResult{}, err
		}
	}
	if !c.CRS.Known() {
		return c, FilterResult{Reason: geo.ErrUnknownCRS}, nil
	}
	if c.CRS.IsGeographic() {
		return c, FilterResult{Reason: ErrGeographicCRS}, nil
	}

	out := &Collection{CRS: c.CRS, Features: make([]Feature, 0, len(c.Features))}
	for _, f := range c.Features {
		if f.Length() >= minLength {
			out.Features = append(out.Features, f)
		}
	}
	return out, FilterResult{Applied: true, Dropped: len(c.Features) - len(out.Features)}, nil
}
