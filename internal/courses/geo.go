package courses

import (
	"math"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

const (
	earthRadiusKm     = 6371.0
	milesPerKm        = 0.621371
	metersPerMile     = 1609.34
	maxSearchRadiusM  = 50000.0
	defaultPageLimit  = 4
	defaultRadiusMile = 25.0
)

func deg2rad(deg float64) float64 { return deg * math.Pi / 180 }

// haversineKm is the great-circle distance between two points.
func haversineKm(a, b schemas.LatLng) float64 {
	dLat := deg2rad(b.Lat - a.Lat)
	dLng := deg2rad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(a.Lat))*math.Cos(deg2rad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// distanceMiles returns the distance rounded to one decimal.
func distanceMiles(a, b schemas.LatLng) float64 {
	return math.Round(haversineKm(a, b)*milesPerKm*10) / 10
}

// searchRadiusMeters converts a mile radius to the capped places radius.
func searchRadiusMeters(miles float64) float64 {
	return math.Min(miles*metersPerMile, maxSearchRadiusM)
}
