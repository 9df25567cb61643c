package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known EPSG codes the tool can describe and reproject between.
const (
	EPSGWGS84         = 4326
	EPSGWebMercator   = 3857
	epsgUTMNorthFirst = 32601
	epsgUTMNorthLast  = 32660
	epsgUTMSouthFirst = 32701
	epsgUTMSouthLast  = 32760
)

// CRS identifies a coordinate reference system by its EPSG code.
// The zero value is an unknown CRS.
type CRS struct {
	EPSG int `json:"epsg,omitempty" yaml:"epsg,omitempty"`
}

// EPSG returns the CRS with the given code. Codes <= 0 yield an unknown CRS.
func EPSG(code int) CRS {
	if code <= 0 {
		return CRS{}
	}
	return CRS{EPSG: code}
}

// ParseCRS accepts "4326", "EPSG:4326" or an empty string (unknown).
func ParseCRS(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CRS{}, nil
	}
	s = strings.TrimPrefix(strings.ToUpper(s), "EPSG:")
	code, err := strconv.Atoi(s)
	if err != nil || code <= 0 {
		return CRS{}, fmt.Errorf("invalid EPSG code %q", s)
	}
	return CRS{EPSG: code}, nil
}

// Known reports whether the CRS carries an EPSG code.
func (c CRS) Known() bool {
	return c.EPSG > 0
}

// IsGeographic reports whether coordinates are angular (degrees). Lengths in
// a geographic CRS are not metric, so length filtering is skipped for them.
func (c CRS) IsGeographic() bool {
	// EPSG allocates 2D geographic CRSs in the 4000-4999 block; 4978 and
	// neighbours are geocentric, which this tool never produces.
	return c.EPSG >= 4000 && c.EPSG < 5000 && c.EPSG != 4978
}

// UTMZone returns the WGS84 UTM zone number and hemisphere for EPSG
// 32601-32660 (north) and 32701-32760 (south).
func (c CRS) UTMZone() (zone int, north bool, ok bool) {
	switch {
	case c.EPSG >= epsgUTMNorthFirst && c.EPSG <= epsgUTMNorthLast:
		return c.EPSG - epsgUTMNorthFirst + 1, true, true
	case c.EPSG >= epsgUTMSouthFirst && c.EPSG <= epsgUTMSouthLast:
		return c.EPSG - epsgUTMSouthFirst + 1, false, true
	}
	return 0, false, false
}

func (c CRS) String() string {
	if !c.Known() {
		return "unknown"
	}
	return "EPSG:" + strconv.Itoa(c.EPSG)
}

// Name returns a human-readable name, falling back to the EPSG string.
func (c CRS) Name() string {
	switch {
	case c.EPSG == EPSGWGS84:
		return "WGS 84"
	case c.EPSG == EPSGWebMercator:
		return "WGS 84 / Pseudo-Mercator"
	}
	if zone, north, ok := c.UTMZone(); ok {
		return fmt.Sprintf("WGS 84 / UTM zone %d%s", zone, hemisphereLetter(north))
	}
	return c.String()
}

const wktGeogcsWGS84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// WKT returns an ESRI-flavoured WKT definition suitable for a shapefile .prj
// sidecar or a GeoPackage spatial reference row. ok is false for codes the
// tool has no definition for.
func (c CRS) WKT() (wkt string, ok bool) {
	switch c.EPSG {
	case EPSGWGS84:
		return wktGeogcsWGS84, true
	case EPSGWebMercator:
		return `PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere",` + wktGeogcsWGS84 +
			`,PROJECTION["Mercator_Auxiliary_Sphere"],PARAMETER["False_Easting",0.0],` +
			`PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",0.0],` +
			`PARAMETER["Standard_Parallel_1",0.0],PARAMETER["Auxiliary_Sphere_Type",0.0],UNIT["Meter",1.0]]`, true
	}
	zone, north, isUTM := c.UTMZone()
	if !isUTM {
		return "", false
	}
	falseNorthing := 0.0
	if !north {
		falseNorthing = 10000000.0
	}
	return fmt.Sprintf(`PROJCS["WGS_1984_UTM_Zone_%d%s",%s,PROJECTION["Transverse_Mercator"],`+
		`PARAMETER["False_Easting",500000.0],PARAMETER["False_Northing",%.1f],`+
		`PARAMETER["Central_Meridian",%.1f],PARAMETER["Scale_Factor",0.9996],`+
		`PARAMETER["Latitude_Of_Origin",0.0],UNIT["Meter",1.0]]`,
		zone, hemisphereLetter(north), wktGeogcsWGS84, falseNorthing, centralMeridian(zone)), true
}

func hemisphereLetter(north bool) string {
	if north {
		return "N"
	}
	return "S"
}

// centralMeridian returns the longitude of the central meridian of a UTM zone.
func centralMeridian(zone int) float64 {
	return float64(zone*6 - 183)
}
