package main

import (
	"fmt"

	"github.com/samirrijal/hiitroute/internal/adapters/export"
	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/core/routebuilder"
)

// buildRoute replays a GPX track through the route builder. Every segment
// ends with a stop, so the last segment's final point becomes the chilldown.
// A segment that starts where the previous one ended does not repeat that
// point.
func buildRoute(track *export.Track) (domain.Route, error) {
	r := routebuilder.Empty()
	for i, seg := range track.Segments {
		for j, p := range seg {
			if j == 0 && i > 0 && len(r.CurrentLeg) > 0 && r.CurrentLeg.Last() == p {
				continue
			}
			r = routebuilder.AddPoint(r, p)
		}
		next, err := routebuilder.MarkStop(r)
		if err != nil {
			return r, fmt.Errorf("segment %d: %w", i+1, err)
		}
		r = next
	}
	return r, nil
}
