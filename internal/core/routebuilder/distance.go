package routebuilder

import (
	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/pkg/geospatial"
)

// GreatCircleDistance returns the surface distance in meters between two
// points on a spherical earth, at full precision.
func GreatCircleDistance(a, b domain.GeoPoint) float64 {
	return geospatial.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// PathLength sums the distances between consecutive points.
func PathLength(points []domain.GeoPoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += GreatCircleDistance(points[i-1], points[i])
	}
	return total
}

// RoundMeters rounds a distance to whole meters for display.
func RoundMeters(m float64) int {
	return geospatial.RoundMeters(m)
}
