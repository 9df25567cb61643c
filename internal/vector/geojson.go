package vector

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// WriteGeoJSON writes c as a FeatureCollection. RFC 7946 drops the "crs"
// member, so the CRS is not recorded in the file.
func WriteGeoJSON(path string, c *Collection) error {
	fc := &geojson.FeatureCollection{
		BBox:     c.Bounds(),
		Features: make([]*geojson.Feature, 0, len(c.Features)),
	}
	for _, f := range c.Features {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.Itoa(f.ID),
			Geometry: f.Line,
			Properties: map[string]any{
				"id":       f.ID,
				"length":   f.Length(),
				"n_points": f.NumPoints(),
			},
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
