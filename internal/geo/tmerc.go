package geo

import (
	"fmt"
	"math"
)

// WGS84 ellipsoid and UTM constants.
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563

	utmScale         = 0.9996
	utmFalseEasting  = 500000.0
	utmFalseNorthing = 10000000.0

	// maxMeridianOffset bounds how far from a zone's central meridian a
	// point may lie. The series diverges towards 90 degrees.
	maxMeridianOffset = 80.0
)

// krueger holds the third-order Krüger series coefficients in n.
type krueger struct {
	rectA float64 // rectifying radius
	e     float64 // first eccentricity
	alpha [3]float64
	beta  [3]float64
	delta [3]float64
}

var wgs84Krueger = newKrueger(wgs84A, wgs84F)

func newKrueger(a, f float64) krueger {
	n := f / (2 - f)
	n2, n3 := n*n, n*n*n
	return krueger{
		rectA: a / (1 + n) * (1 + n2/4 + n2*n2/64),
		e:     math.Sqrt(f * (2 - f)),
		alpha: [3]float64{n/2 - 2*n2/3 + 5*n3/16, 13*n2/48 - 3*n3/5, 61 * n3 / 240},
		beta:  [3]float64{n/2 - 2*n2/3 + 37*n3/96, n2/48 + n3/15, 17 * n3 / 480},
		delta: [3]float64{2*n - 2*n2/3 - 2*n3, 7*n2/3 - 8*n3/5, 56 * n3 / 15},
	}
}

// utmForward projects (lon, lat) degrees into the given zone, whatever zone
// the point would naturally fall in. The false northing follows the zone's
// hemisphere, so points across the equator get northings below 0 (north
// zones) or above 10,000 km (south zones).
func utmForward(lon, lat float64, zone int, north bool) (float64, float64, error) {
	dLon := math.Mod(lon-centralMeridian(zone)+540, 360) - 180
	if math.Abs(lat) > 90 || math.Abs(dLon) > maxMeridianOffset {
		return 0, 0, fmt.Errorf("%w: (%g, %g) too far from UTM zone %d", ErrUnsupportedReprojection, lon, lat, zone)
	}

	k := wgs84Krueger
	phi, lam := lat*math.Pi/180, dLon*math.Pi/180
	sinPhi := math.Sin(phi)
	t := math.Sinh(math.Atanh(sinPhi) - k.e*math.Atanh(k.e*sinPhi))
	xi := math.Atan2(t, math.Cos(lam))
	eta := math.Atanh(math.Sin(lam) / math.Sqrt(1+t*t))

	x, y := eta, xi
	for j, a := range k.alpha {
		jj := 2 * float64(j+1)
		x += a * math.Cos(jj*xi) * math.Sinh(jj*eta)
		y += a * math.Sin(jj*xi) * math.Cosh(jj*eta)
	}

	easting := utmFalseEasting + utmScale*k.rectA*x
	northing := utmScale * k.rectA * y
	if !north {
		northing += utmFalseNorthing
	}
	return easting, northing, nil
}

// utmInverse is the inverse of utmForward and returns (lon, lat) degrees.
func utmInverse(easting, northing float64, zone int, north bool) (float64, float64, error) {
	if math.IsNaN(easting) || math.IsNaN(northing) || math.IsInf(easting, 0) || math.IsInf(northing, 0) {
		return 0, 0, fmt.Errorf("invalid UTM coordinate (%g, %g)", easting, northing)
	}
	if !north {
		northing -= utmFalseNorthing
	}

	k := wgs84Krueger
	xi := northing / (utmScale * k.rectA)
	eta := (easting - utmFalseEasting) / (utmScale * k.rectA)

	xiP, etaP := xi, eta
	for j, b := range k.beta {
		jj := 2 * float64(j+1)
		xiP -= b * math.Sin(jj*xi) * math.Cosh(jj*eta)
		etaP -= b * math.Cos(jj*xi) * math.Sinh(jj*eta)
	}

	chi := math.Asin(math.Sin(xiP) / math.Cosh(etaP))
	phi := chi
	for j, d := range k.delta {
		phi += d * math.Sin(2*float64(j+1)*chi)
	}
	lam := math.Atan2(math.Sinh(etaP), math.Cos(xiP))

	lon := math.Mod(centralMeridian(zone)+lam*180/math.Pi+540, 360) - 180
	return lon, phi * 180 / math.Pi, nil
}
