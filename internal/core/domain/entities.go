package domain

import (
	"time"
)

// Route is an in-progress workout route: a warm-up point, the legs already
// closed off by a stop, and the leg currently being drawn.
type Route struct {
	Warmup                   *GeoPoint  `json:"warmup,omitempty"`
	FinishedLegs             []Leg      `json:"finished_legs"`
	Stops                    []GeoPoint `json:"stops"`
	CurrentLeg               Leg        `json:"current_leg"`
	TotalDistanceMeters      float64    `json:"total_distance_meters"`
	CurrentLegDistanceMeters float64    `json:"current_leg_distance_meters"`
}

// IsEmpty reports whether no point has been placed yet.
func (r Route) IsEmpty() bool {
	return r.Warmup == nil
}

// MeetingLocation is where a crew gathers before a workout. It is picked on
// the map independently of any route.
type MeetingLocation struct {
	ID        string    `json:"id"`
	CrewID    string    `json:"crew_id"`
	Name      string    `json:"name"`
	Location  GeoPoint  `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// PayloadLeg is one closed leg of a finalized route.
type PayloadLeg struct {
	Polyline  []GeoPoint `json:"polyline"`
	Distance  int        `json:"distance"` // meters
	LegNumber int        `json:"leg_number"`
}

// RoutePayload is a finalized route ready to be handed to persistence.
type RoutePayload struct {
	MeetingLocationID string       `json:"meeting_location_id"`
	ChilldownLocation GeoPoint     `json:"chilldown_location"`
	Legs              []PayloadLeg `json:"legs"`
	WarmupLocation    GeoPoint     `json:"warmup_location"`
	Stops             []GeoPoint   `json:"stops"`
	Distance          int          `json:"distance"` // meters
	Name              string       `json:"name"`
}

// WorkoutRoute is a persisted route.
type WorkoutRoute struct {
	ID                string       `json:"id"`
	CrewID            string       `json:"crew_id"`
	Name              string       `json:"name"`
	MeetingLocationID string       `json:"meeting_location_id"`
	WarmupLocation    GeoPoint     `json:"warmup_location"`
	ChilldownLocation GeoPoint     `json:"chilldown_location"`
	Stops             []GeoPoint   `json:"stops"`
	Legs              []PayloadLeg `json:"legs"`
	DistanceMeters    int          `json:"distance_meters"`
	GPXObjectKey      string       `json:"gpx_object_key,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

// NewWorkoutRoute builds a WorkoutRoute from a finalized payload.
func NewWorkoutRoute(crewID string, p RoutePayload) *WorkoutRoute {
	return &WorkoutRoute{
		CrewID:            crewID,
		Name:              p.Name,
		MeetingLocationID: p.MeetingLocationID,
		WarmupLocation:    p.WarmupLocation,
		ChilldownLocation: p.ChilldownLocation,
		Stops:             p.Stops,
		Legs:              p.Legs,
		DistanceMeters:    p.Distance,
	}
}

// Session is one route-editing session. Transitions on a session are applied
// to the most recent Route snapshot only.
type Session struct {
	ID              string           `json:"id"`
	CrewID          string           `json:"crew_id"`
	MeetingLocation *MeetingLocation `json:"meeting_location,omitempty"`
	Route           Route            `json:"route"`
	Finalized       bool             `json:"finalized"`
	SavedRouteID    string           `json:"saved_route_id,omitempty"`
	Version         int64            `json:"version"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// MeetingPoint returns the meeting location coordinate, if any.
func (s *Session) MeetingPoint() *GeoPoint {
	if s.MeetingLocation == nil {
		return nil
	}
	p := s.MeetingLocation.Location
	return &p
}

// RouteSavedEvent is published after a route has been persisted.
type RouteSavedEvent struct {
	RouteID           string    `json:"route_id"`
	CrewID            string    `json:"crew_id"`
	MeetingLocationID string    `json:"meeting_location_id"`
	Name              string    `json:"name"`
	DistanceMeters    int       `json:"distance_meters"`
	Legs              int       `json:"legs"`
	SavedAt           time.Time `json:"saved_at"`
}

// SessionUpdate is broadcast to live viewers after every session transition.
type SessionUpdate struct {
	SessionID string    `json:"session_id"`
	Operation string    `json:"operation"`
	Version   int64     `json:"version"`
	View      RouteView `json:"view"`
	Time      time.Time `json:"time"`
}
