package domain

// Phase is the position of a route in its construction lifecycle.
type Phase string

const (
	PhaseEmpty       Phase = "empty"
	PhaseWarmupSet   Phase = "warmup_set"
	PhaseBuildingLeg Phase = "building_leg"
	PhaseLegClosed   Phase = "leg_closed"
	PhaseFinalized   Phase = "finalized"
)

// MarkerKind tells the map layer which icon to draw.
type MarkerKind string

const (
	MarkerMeeting MarkerKind = "meeting"
	MarkerWarmup  MarkerKind = "warmup"
	MarkerStop    MarkerKind = "stop"
)

// PolylineStyle distinguishes closed legs from the leg being drawn.
type PolylineStyle string

const (
	PolylineFinished PolylineStyle = "finished"
	PolylineCurrent  PolylineStyle = "current"
)

// Marker is a labelled point on the map.
type Marker struct {
	Kind     MarkerKind `json:"kind"`
	Title    string     `json:"title"`
	Location GeoPoint   `json:"location"`
}

// Polyline is a drawable path.
type Polyline struct {
	Style  PolylineStyle `json:"style"`
	Points []GeoPoint    `json:"points"`
}

// RouteView is the read-only projection consumed by map renderers.
type RouteView struct {
	Phase                    Phase      `json:"phase"`
	CurrentLegDistanceMeters int        `json:"current_leg_distance_meters"`
	TotalDistanceMeters      int        `json:"total_distance_meters"`
	Markers                  []Marker   `json:"markers"`
	Polylines                []Polyline `json:"polylines"`
	Bounds                   *Bounds    `json:"bounds,omitempty"`
	CanMarkStop              bool       `json:"can_mark_stop"`
	CanFinalize              bool       `json:"can_finalize"`
}
