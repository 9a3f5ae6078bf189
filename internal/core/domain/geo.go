package domain

// GeoPoint represents a geographic coordinate (WGS 84).
// Two points are the same point only when both coordinates match exactly.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Leg is an ordered path walked between two stops (or the warm-up and the first stop).
type Leg []GeoPoint

// Last returns the final point of the leg. The leg must not be empty.
func (l Leg) Last() GeoPoint {
	return l[len(l)-1]
}

// Clone returns a copy that shares no backing array with l.
func (l Leg) Clone() Leg {
	if l == nil {
		return nil
	}
	out := make(Leg, len(l))
	copy(out, l)
	return out
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Extend grows b so that it contains p. A zero Bounds is treated as empty
// only when first is true.
func (b Bounds) Extend(p GeoPoint, first bool) Bounds {
	if first {
		return Bounds{MinLat: p.Lat, MinLon: p.Lon, MaxLat: p.Lat, MaxLon: p.Lon}
	}
	if p.Lat < b.MinLat {
		b.MinLat = p.Lat
	}
	if p.Lat > b.MaxLat {
		b.MaxLat = p.Lat
	}
	if p.Lon < b.MinLon {
		b.MinLon = p.Lon
	}
	if p.Lon > b.MaxLon {
		b.MaxLon = p.Lon
	}
	return b
}
