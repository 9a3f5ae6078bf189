package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

// GeoJSON implements ports.MapEncoder as RFC 7946 FeatureCollections.
type GeoJSON struct{}

func (GeoJSON) Format() string      { return "geojson" }
func (GeoJSON) ContentType() string { return "application/geo+json" }

// EncodeRoute emits one LineString per leg followed by Point features for the
// warm-up, the stops and the chilldown.
func (GeoJSON) EncodeRoute(route *domain.WorkoutRoute) ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	for _, leg := range route.Legs {
		f := geojson.NewFeature(lineString(leg.Polyline))
		f.Properties["kind"] = "leg"
		f.Properties["leg_number"] = leg.LegNumber
		f.Properties["distance_meters"] = leg.Distance
		fc.Append(f)
	}

	fc.Append(pointFeature(route.WarmupLocation, string(domain.MarkerWarmup), "Warm-up"))
	for i, s := range route.Stops {
		fc.Append(pointFeature(s, string(domain.MarkerStop), fmt.Sprintf("HIIT Stop %d", i+1)))
	}
	fc.Append(pointFeature(route.ChilldownLocation, "chilldown", "Chilldown"))

	fc.ExtraMembers = geojson.Properties{
		"id":              route.ID,
		"name":            route.Name,
		"distance_meters": route.DistanceMeters,
	}
	return fc.MarshalJSON()
}

// EncodeView renders a live view: markers as Points, polylines as
// LineStrings, and the view bounds as the collection bbox.
func (GeoJSON) EncodeView(view domain.RouteView) ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	for _, l := range view.Polylines {
		f := geojson.NewFeature(lineString(l.Points))
		f.Properties["kind"] = "polyline"
		f.Properties["style"] = string(l.Style)
		fc.Append(f)
	}
	for _, m := range view.Markers {
		fc.Append(pointFeature(m.Location, string(m.Kind), m.Title))
	}

	if view.Bounds != nil {
		fc.BBox = geojson.BBox{view.Bounds.MinLon, view.Bounds.MinLat, view.Bounds.MaxLon, view.Bounds.MaxLat}
	}
	fc.ExtraMembers = geojson.Properties{
		"phase":                       string(view.Phase),
		"total_distance_meters":       view.TotalDistanceMeters,
		"current_leg_distance_meters": view.CurrentLegDistanceMeters,
	}
	return fc.MarshalJSON()
}

func lineString(points []domain.GeoPoint) orb.LineString {
	ls := make(orb.LineString, 0, len(points))
	for _, p := range points {
		ls = append(ls, orb.Point{p.Lon, p.Lat})
	}
	return ls
}

func pointFeature(p domain.GeoPoint, kind, title string) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{p.Lon, p.Lat})
	f.Properties["kind"] = kind
	f.Properties["title"] = title
	return f
}
