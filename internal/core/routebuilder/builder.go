// Package routebuilder turns a stream of map taps into a workout route.
//
// Every operation takes a Route snapshot and returns a new one; the input is
// never modified and the result shares no slices with it, so callers can keep
// old snapshots around.
package routebuilder

import (
	"github.com/samirrijal/hiitroute/internal/core/domain"
)

// Empty returns the canonical empty route.
func Empty() domain.Route {
	return domain.Route{}
}

// AddPoint places a point. The first point of a route becomes the warm-up and
// seeds the current leg; every later point extends the current leg.
func AddPoint(r domain.Route, p domain.GeoPoint) domain.Route {
	next := clone(r)
	if next.Warmup == nil {
		w := p
		next.Warmup = &w
		next.CurrentLeg = domain.Leg{p}
	} else {
		next.CurrentLeg = append(next.CurrentLeg, p)
	}
	return recompute(next)
}

// MarkStop closes the current leg at its last point. The new current leg
// starts where the closed one ended.
func MarkStop(r domain.Route) (domain.Route, error) {
	if r.Warmup == nil || len(r.CurrentLeg) == 0 {
		return r, domain.ErrEmptyRoute
	}

	p := r.CurrentLeg.Last()
	if p == *r.Warmup {
		return r, domain.ErrDuplicateStop
	}
	for _, s := range r.Stops {
		if s == p {
			return r, domain.ErrDuplicateStop
		}
	}

	next := clone(r)
	next.Stops = append(next.Stops, p)
	next.FinishedLegs = append(next.FinishedLegs, next.CurrentLeg)
	next.CurrentLeg = domain.Leg{p}
	return recompute(next), nil
}

// UndoLast steps back once:
//  1. an open leg with more than one point loses its last point;
//  2. otherwise the last stop is removed and its leg reopened;
//  3. otherwise only the warm-up is left and the whole route is cleared.
//
// Undo on an empty route is a no-op.
func UndoLast(r domain.Route) domain.Route {
	if r.Warmup == nil {
		return Empty()
	}

	next := clone(r)
	switch {
	case len(next.CurrentLeg) > 1:
		next.CurrentLeg = next.CurrentLeg[:len(next.CurrentLeg)-1]
	case len(next.FinishedLegs) > 0:
		last := len(next.FinishedLegs) - 1
		next.CurrentLeg = next.FinishedLegs[last]
		next.FinishedLegs = next.FinishedLegs[:last]
		next.Stops = next.Stops[:len(next.Stops)-1]
	default:
		return Empty()
	}
	return recompute(next)
}

// Reset discards the route.
func Reset(domain.Route) domain.Route {
	return Empty()
}

// Phase reports where r is in its lifecycle. PhaseFinalized is never returned
// here because finalizing does not change the snapshot.
func Phase(r domain.Route) domain.Phase {
	switch {
	case r.Warmup == nil:
		return domain.PhaseEmpty
	case len(r.CurrentLeg) > 1:
		return domain.PhaseBuildingLeg
	case len(r.FinishedLegs) > 0:
		return domain.PhaseLegClosed
	default:
		return domain.PhaseWarmupSet
	}
}

// recompute derives both distances from the points.
func recompute(r domain.Route) domain.Route {
	var total float64
	for _, leg := range r.FinishedLegs {
		total += PathLength(leg)
	}
	r.CurrentLegDistanceMeters = PathLength(r.CurrentLeg)
	r.TotalDistanceMeters = total + r.CurrentLegDistanceMeters
	return r
}

func clone(r domain.Route) domain.Route {
	out := domain.Route{
		TotalDistanceMeters:      r.TotalDistanceMeters,
		CurrentLegDistanceMeters: r.CurrentLegDistanceMeters,
		CurrentLeg:               r.CurrentLeg.Clone(),
	}
	if r.Warmup != nil {
		w := *r.Warmup
		out.Warmup = &w
	}
	if r.Stops != nil {
		out.Stops = make([]domain.GeoPoint, len(r.Stops))
		copy(out.Stops, r.Stops)
	}
	if r.FinishedLegs != nil {
		out.FinishedLegs = make([]domain.Leg, len(r.FinishedLegs))
		for i, leg := range r.FinishedLegs {
			out.FinishedLegs[i] = leg.Clone()
		}
	}
	return out
}
