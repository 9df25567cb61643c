package geo

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownCRS is returned when a reprojection is requested for
	// coordinates whose CRS was never established.
	ErrUnknownCRS = errors.New("source CRS is unknown")

	// ErrUnsupportedReprojection is returned for CRS pairs the tool cannot
	// convert between.
	ErrUnsupportedReprojection = errors.New("unsupported reprojection")
)

const webMercatorRadius = wgs84A

// Projector maps a coordinate pair from one CRS into another.
type Projector func(x, y float64) (float64, float64, error)

// NewProjector returns a projector from one CRS to another. Supported CRSs
// are WGS84 (4326), Web Mercator (3857) and the WGS84 UTM zones; any pair of
// them is converted through geographic WGS84. Points are projected into the
// requested UTM zone even when they lie outside it. Identical CRSs yield the
// identity projector.
func NewProjector(from, to CRS) (Projector, error) {
	if !from.Known() {
		return nil, ErrUnknownCRS
	}
	if !to.Known() {
		return nil, fmt.Errorf("%w: target CRS is unknown", ErrUnsupportedReprojection)
	}
	if from == to {
		return func(x, y float64) (float64, float64, error) { return x, y, nil }, nil
	}

	inverse, err := toWGS84(from)
	if err != nil {
		return nil, err
	}
	forward, err := fromWGS84(to)
	if err != nil {
		return nil, err
	}

	return func(x, y float64) (float64, float64, error) {
		lon, lat, err := inverse(x, y)
		if err != nil {
			return 0, 0, err
		}
		return forward(lon, lat)
	}, nil
}

// toWGS84 returns a projector producing (lon, lat) degrees.
func toWGS84(c CRS) (Projector, error) {
	if c.EPSG == EPSGWGS84 {
		return func(x, y float64) (float64, float64, error) { return x, y, nil }, nil
	}
	if c.EPSG == EPSGWebMercator {
		return func(x, y float64) (float64, float64, error) {
			lon := x / webMercatorRadius * 180 / math.Pi
			lat := (2*math.Atan(math.Exp(y/webMercatorRadius)) - math.Pi/2) * 180 / math.Pi
			return lon, lat, nil
		}, nil
	}
	if zone, north, ok := c.UTMZone(); ok {
		return func(x, y float64) (float64, float64, error) {
			lon, lat, err := utmInverse(x, y, zone, north)
			if err != nil {
				return 0, 0, fmt.Errorf("%s -> WGS84 at (%g, %g): %w", c, x, y, err)
			}
			return lon, lat, nil
		}, nil
	}
	return nil, fmt.Errorf("%w: no inverse for %s", ErrUnsupportedReprojection, c)
}

// fromWGS84 returns a projector consuming (lon, lat) degrees.
func fromWGS84(c CRS) (Projector, error) {
	if c.EPSG == EPSGWGS84 {
		return func(lon, lat float64) (float64, float64, error) { return lon, lat, nil }, nil
	}
	if c.EPSG == EPSGWebMercator {
		return func(lon, lat float64) (float64, float64, error) {
			if math.Abs(lat) >= 85.06 {
				return 0, 0, fmt.Errorf("latitude %g outside Web Mercator range", lat)
			}
			x := webMercatorRadius * lon * math.Pi / 180
			y := webMercatorRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
			return x, y, nil
		}, nil
	}
	if zone, north, ok := c.UTMZone(); ok {
		return func(lon, lat float64) (float64, float64, error) {
			return utmForward(lon, lat, zone, north)
		}, nil
	}
	return nil, fmt.Errorf("%w: no forward projection for %s", ErrUnsupportedReprojection, c)
}
