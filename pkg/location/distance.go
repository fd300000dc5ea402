package location

import "math"

const (
	// EarthRadiusMeters is the mean radius of the WGS-84 ellipsoid.
	EarthRadiusMeters = 6371008.8

	// MetersPerMile is the international mile.
	MetersPerMile = 1609.344
)

// DistanceMeters returns the great-circle distance between a and b using the
// haversine formula. The result is symmetric and zero for identical points.
// Non-finite coordinates produce NaN; callers must check for it.
func DistanceMeters(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180.0

	hSin := math.Sin(dLat / 2)
	hSin *= hSin

	vSin := math.Sin(dLon / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin
	// rounding can push h slightly past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// MetersToMiles converts meters to statute miles.
func MetersToMiles(m float64) float64 {
	return m / MetersPerMile
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// IsFinite reports whether both components of c are finite numbers.
func (c Coordinate) IsFinite() bool {
	return !math.IsNaN(c.Latitude) && !math.IsInf(c.Latitude, 0) &&
		!math.IsNaN(c.Longitude) && !math.IsInf(c.Longitude, 0)
}
