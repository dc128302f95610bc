package routing

import (
	"math"
)

const earthRadiusMeters = 6372797.560856

// Coordinate is a WGS84 longitude/latitude pair.
type Coordinate struct {
	Lon float64
	Lat float64
}

// IsValid reports whether the coordinate lies within the WGS84 bounds.
func (c Coordinate) IsValid() bool {
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// GreatCircleDistance returns the haversine distance to other in meters.
func (c Coordinate) GreatCircleDistance(other Coordinate) float64 {
	latA := c.Lat * math.Pi / 180
	latB := other.Lat * math.Pi / 180
	dLat := latB - latA
	dLon := (other.Lon - c.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
