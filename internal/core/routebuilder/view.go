package routebuilder

import (
	"fmt"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

// View projects r (and an optional meeting location) into what a map renderer
// draws: markers, polylines and rounded distances.
func View(r domain.Route, meeting *domain.GeoPoint) domain.RouteView {
	v := domain.RouteView{
		Phase:                    Phase(r),
		CurrentLegDistanceMeters: RoundMeters(r.CurrentLegDistanceMeters),
		TotalDistanceMeters:      RoundMeters(r.TotalDistanceMeters),
		Markers:                  []domain.Marker{},
		Polylines:                []domain.Polyline{},
		CanMarkStop:              r.Warmup != nil && len(r.CurrentLeg) > 1,
		CanFinalize:              CanFinalize(r),
	}

	if meeting != nil {
		v.Markers = append(v.Markers, domain.Marker{Kind: domain.MarkerMeeting, Title: "Meeting Location", Location: *meeting})
	}
	if r.Warmup != nil {
		v.Markers = append(v.Markers, domain.Marker{Kind: domain.MarkerWarmup, Title: "Warm-up", Location: *r.Warmup})
	}
	for i, s := range r.Stops {
		v.Markers = append(v.Markers, domain.Marker{
			Kind:     domain.MarkerStop,
			Title:    fmt.Sprintf("HIIT Stop %d", i+1),
			Location: s,
		})
	}

	for _, leg := range r.FinishedLegs {
		v.Polylines = append(v.Polylines, domain.Polyline{Style: domain.PolylineFinished, Points: leg.Clone()})
	}
	if len(r.CurrentLeg) > 1 {
		v.Polylines = append(v.Polylines, domain.Polyline{Style: domain.PolylineCurrent, Points: r.CurrentLeg.Clone()})
	}

	v.Bounds = bounds(v.Markers, v.Polylines)
	return v
}

func bounds(markers []domain.Marker, lines []domain.Polyline) *domain.Bounds {
	var b domain.Bounds
	first := true
	for _, m := range markers {
		b = b.Extend(m.Location, first)
		first = false
	}
	for _, l := range lines {
		for _, p := range l.Points {
			b = b.Extend(p, first)
			first = false
		}
	}
	if first {
		return nil
	}
	return &b
}
