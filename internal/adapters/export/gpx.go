// Package export renders workout routes into GPX and GeoJSON files and reads
// GPX tracks back into legs.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

const creator = "hiitroute"

// GPX implements ports.RouteEncoder for GPX 1.1.
type GPX struct{}

func (GPX) Format() string      { return "gpx" }
func (GPX) ContentType() string { return "application/gpx+xml" }

// EncodeRoute writes one track per leg and a waypoint for the warm-up, every
// stop and the chilldown.
func (GPX) EncodeRoute(route *domain.WorkoutRoute) ([]byte, error) {
	doc := gpx.GPX{
		Version:     "1.1",
		Creator:     creator,
		Name:        route.Name,
		Description: fmt.Sprintf("%d m in %d legs", route.DistanceMeters, len(route.Legs)),
	}

	doc.Waypoints = append(doc.Waypoints, waypoint(route.WarmupLocation, "Warm-up", "warmup"))
	for i, s := range route.Stops {
		doc.Waypoints = append(doc.Waypoints, waypoint(s, fmt.Sprintf("HIIT Stop %d", i+1), "stop"))
	}
	doc.Waypoints = append(doc.Waypoints, waypoint(route.ChilldownLocation, "Chilldown", "chilldown"))

	for _, leg := range route.Legs {
		seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(leg.Polyline))}
		for _, p := range leg.Polyline {
			seg.Points = append(seg.Points, gpx.GPXPoint{Point: gpx.Point{Latitude: p.Lat, Longitude: p.Lon}})
		}
		doc.Tracks = append(doc.Tracks, gpx.GPXTrack{
			Name:        fmt.Sprintf("Leg %d", leg.LegNumber),
			Description: fmt.Sprintf("%d m", leg.Distance),
			Type:        "hiit-leg",
			Segments:    []gpx.GPXTrackSegment{seg},
		})
	}

	out, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("gpx xml: %w", err)
	}
	return out, nil
}

func waypoint(p domain.GeoPoint, name, typ string) gpx.GPXPoint {
	return gpx.GPXPoint{
		Point: gpx.Point{Latitude: p.Lat, Longitude: p.Lon},
		Name:  name,
		Type:  typ,
	}
}

// Track is a GPX document reduced to what the importer needs.
type Track struct {
	Name     string
	Segments [][]domain.GeoPoint
}

// ErrNoTrackPoints is returned for GPX files without any usable segment.
var ErrNoTrackPoints = errors.New("gpx file has no track points")

// ReadGPX parses a GPX document and returns its non-empty track segments in
// file order. The name is the document name, else the first track's name.
func ReadGPX(r io.Reader) (*Track, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gpx: %w", err)
	}
	doc, err := gpx.ParseBytes(bytes.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}

	t := &Track{Name: strings.TrimSpace(doc.Name)}
	for _, trk := range doc.Tracks {
		if t.Name == "" {
			t.Name = strings.TrimSpace(trk.Name)
		}
		for _, seg := range trk.Segments {
			if len(seg.Points) == 0 {
				continue
			}
			pts := make([]domain.GeoPoint, 0, len(seg.Points))
			for _, p := range seg.Points {
				pts = append(pts, domain.GeoPoint{Lat: p.Latitude, Lon: p.Longitude})
			}
			t.Segments = append(t.Segments, pts)
		}
	}
	if len(t.Segments) == 0 {
		return nil, ErrNoTrackPoints
	}
	return t, nil
}
