package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format selects the on-disk vector encoding.
type Format string

const (
	FormatShapefile  Format = "shp"
	FormatGeoPackage Format = "gpkg"
	FormatGeoJSON    Format = "geojson"
)

// BaseName is the file name, without extension, of every vector output.
const BaseName = "terrace_lines"

// LayerName is the feature table name inside a GeoPackage.
const LayerName = "terraces"

// ParseFormat accepts a format name; empty means Shapefile.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "shp", "shapefile":
		return FormatShapefile, nil
	case "gpkg", "geopackage":
		return FormatGeoPackage, nil
	case "geojson", "json":
		return FormatGeoJSON, nil
	}
	return "", fmt.Errorf("unknown vector format %q (want shp, gpkg or geojson)", s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatGeoPackage:
		return ".gpkg"
	case FormatGeoJSON:
		return ".geojson"
	default:
		return ".shp"
	}
}

// Path returns the output file for f inside dir.
func (f Format) Path(dir string) string {
	return filepath.Join(dir, BaseName+f.Ext())
}

// Write encodes c into dir in the requested format and returns the path of
// the main output file. Existing outputs are replaced.
func Write(dir string, c *Collection, f Format) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create output directory: %w", err)
	}
	path := f.Path(dir)

	var err error
	switch f {
	case FormatShapefile:
		err = WriteShapefile(path, c)
	case FormatGeoPackage:
		err = WriteGeoPackage(path, c)
	case FormatGeoJSON:
		err = WriteGeoJSON(path, c)
	default:
		return "", fmt.Errorf("unknown vector format %q", f)
	}
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
