package vector

import (
	"fmt"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
)

var shapefileFields = []shp.Field{
	shp.NumberField("id", 10),
	shp.FloatField("length", 18, 3),
	shp.NumberField("n_points", 10),
}

// WriteShapefile writes c as a PolyLine shapefile with .shx and .dbf
// siblings, plus a .prj when the CRS has a known WKT.
func WriteShapefile(path string, c *Collection) error {
	base := strings.TrimSuffix(path, ".shp")
	// A .prj left by an earlier run would mislabel an unknown CRS.
	for _, stale := range []string{base + ".prj", base + ".dbf", base + "dbf"} {
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	w, err := shp.Create(base+".shp", shp.POLYLINE)
	if err != nil {
		return err
	}
	if err := w.SetFields(shapefileFields); err != nil {
		w.Close()
		return err
	}

	for _, f := range c.Features {
		flat := f.Line.FlatCoords()
		part := make([]shp.Point, 0, len(flat)/2)
		for i := 0; i+1 < len(flat); i += 2 {
			part = append(part, shp.Point{X: flat[i], Y: flat[i+1]})
		}
		row := int(w.Write(shp.NewPolyLine([][]shp.Point{part})))

		attrs := []any{f.ID, f.Length(), f.NumPoints()}
		for field, v := range attrs {
			if err := w.WriteAttribute(row, field, v); err != nil {
				w.Close()
				return err
			}
		}
	}
	w.Close()

	// go-shp v0.1.1 names the table base+"dbf", without the dot.
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return fmt.Errorf("failed to rename attribute table: %w", err)
	}

	if wkt, ok := c.CRS.WKT(); ok {
		return os.WriteFile(base+".prj", []byte(wkt), 0o644)
	}
	return nil
}
