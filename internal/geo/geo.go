// Package geo holds the great-circle math the simulation runs on.
package geo

import (
	"math"

	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(a, b models.Location) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return earthRadiusKm * c
}

// HaversineM returns the great-circle distance between two points in meters.
func HaversineM(a, b models.Location) float64 {
	return HaversineKm(a, b) * 1000
}

// BearingDeg returns the initial bearing from a to b in degrees, [0,360).
func BearingDeg(a, b models.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Lerp interpolates between a and b; t is clamped to [0,1].
func Lerp(a, b models.Location, t float64) models.Location {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return models.Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lng: a.Lng + (b.Lng-a.Lng)*t}
}

// Offset shifts a point by the given meter deltas (north, east). Good
// enough away from the poles, which is all the fleet ever sees.
func Offset(base models.Location, northM, eastM float64) models.Location {
	latMetersPerDeg := 111320.0
	lngMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	return models.Location{
		Lat: base.Lat + northM/latMetersPerDeg,
		Lng: base.Lng + eastM/lngMetersPerDeg,
	}
}
