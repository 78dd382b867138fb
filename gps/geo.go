package gps

import "math"

const (
	earthRadiusMeters = 6371000.0

	// MetersPerDegreeLatitude is the length of one degree of latitude.
	MetersPerDegreeLatitude = 111320.0
)

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// Distance calculates distance in meters between two points using the
// Haversine formula
func Distance(from, to Coordinate) float64 {
	lat1Rad := toRadians(from.Latitude)
	lat2Rad := toRadians(to.Latitude)
	deltaLat := toRadians(to.Latitude - from.Latitude)
	deltaLon := toRadians(to.Longitude - from.Longitude)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Bearing calculates the great-circle initial bearing from one point to
// another, normalized to [0, 360).
func Bearing(from, to Coordinate) float64 {
	lat1Rad := toRadians(from.Latitude)
	lat2Rad := toRadians(to.Latitude)
	deltaLonRad := toRadians(to.Longitude - from.Longitude)

	y := math.Sin(deltaLonRad) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLonRad)

	bearing := math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
	if bearing >= 360 {
		bearing = 0
	}
	return bearing
}

// Destination calculates the point reached after travelling distance meters
// from start along the given bearing, on a spherical Earth.
func Destination(start Coordinate, distance, bearing float64) Coordinate {
	latRad := toRadians(start.Latitude)
	lonRad := toRadians(start.Longitude)
	bearingRad := toRadians(bearing)

	angularDistance := distance / earthRadiusMeters

	newLatRad := math.Asin(math.Sin(latRad)*math.Cos(angularDistance) +
		math.Cos(latRad)*math.Sin(angularDistance)*math.Cos(bearingRad))

	newLonRad := lonRad + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angularDistance)*math.Cos(latRad),
		math.Cos(angularDistance)-math.Sin(latRad)*math.Sin(newLatRad))

	newLon := toDegrees(newLonRad)

	// Normalize longitude to -180 to +180 range
	for newLon > 180 {
		newLon -= 360
	}
	for newLon < -180 {
		newLon += 360
	}

	return Coordinate{Latitude: toDegrees(newLatRad), Longitude: newLon}
}
