package routebuilder

import (
	"strings"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

// CanFinalize reports whether Finalize would accept r given a valid name.
func CanFinalize(r domain.Route) bool {
	return len(r.CurrentLeg) <= 1 && len(r.FinishedLegs) > 0
}

// Finalize turns a closed route into the payload handed to persistence.
//
// The last point of the last leg is the chilldown; the end points of all
// other legs are stops. Distances are recomputed per leg so that the total
// always equals the sum of the legs.
func Finalize(r domain.Route, name, meetingLocationID string) (domain.RoutePayload, error) {
	if len(r.CurrentLeg) > 1 {
		return domain.RoutePayload{}, domain.ErrLegOpen
	}
	if len(r.FinishedLegs) == 0 {
		return domain.RoutePayload{}, domain.ErrNoLegs
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.RoutePayload{}, domain.ErrEmptyName
	}

	p := domain.RoutePayload{
		MeetingLocationID: meetingLocationID,
		Name:              name,
		Legs:              make([]domain.PayloadLeg, 0, len(r.FinishedLegs)),
		Stops:             make([]domain.GeoPoint, 0, len(r.FinishedLegs)-1),
		WarmupLocation:    r.FinishedLegs[0][0],
	}

	last := len(r.FinishedLegs) - 1
	for i, leg := range r.FinishedLegs {
		d := RoundMeters(PathLength(leg))
		p.Legs = append(p.Legs, domain.PayloadLeg{
			Polyline:  leg.Clone(),
			Distance:  d,
			LegNumber: i + 1,
		})
		p.Distance += d

		if i == last {
			p.ChilldownLocation = leg.Last()
		} else {
			p.Stops = append(p.Stops, leg.Last())
		}
	}
	return p, nil
}
