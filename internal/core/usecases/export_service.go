package usecases

import (
	"bytes"
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/core/ports"
	"github.com/samirrijal/hiitroute/internal/pkg/logging"
	"github.com/samirrijal/hiitroute/internal/pkg/metrics"
	"github.com/samirrijal/hiitroute/internal/pkg/telemetry"
)

type routeReader interface {
	GetByID(ctx context.Context, id string) (*domain.WorkoutRoute, error)
}

// Export is an encoded file ready to serve.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders saved routes and live sessions into files.
type ExportService struct {
	routes    routeReader
	sessions  ports.SessionStore
	gpx       ports.RouteEncoder
	geojson   ports.MapEncoder
	artifacts ports.ArtifactStore
}

// NewExportService creates a new ExportService. artifacts may be nil, in
// which case GPX files are always rendered on demand.
func NewExportService(
	routes routeReader,
	sessions ports.SessionStore,
	gpx ports.RouteEncoder,
	geojson ports.MapEncoder,
	artifacts ports.ArtifactStore,
) *ExportService {
	return &ExportService{routes: routes, sessions: sessions, gpx: gpx, geojson: geojson, artifacts: artifacts}
}

// GPX returns a route as a GPX document, preferring the stored artifact.
func (s *ExportService) GPX(ctx context.Context, routeID string) (*Export, error) {
	route, err := s.routes.GetByID(ctx, routeID)
	if err != nil {
		return nil, err
	}

	if s.artifacts != nil && route.GPXObjectKey != "" {
		data, err := s.artifacts.Get(ctx, route.GPXObjectKey)
		if err == nil {
			metrics.ExportsTotal.WithLabelValues("gpx_stored").Inc()
			return &Export{Filename: exportFilename(route, "gpx"), ContentType: s.gpx.ContentType(), Data: data}, nil
		}
		logging.FromContext(ctx).Warn("stored gpx unavailable, rendering", "route_id", routeID, "key", route.GPXObjectKey, "error", err)
	}

	return s.encode(ctx, route, s.gpx)
}

// GeoJSON returns a route as a GeoJSON FeatureCollection.
func (s *ExportService) GeoJSON(ctx context.Context, routeID string) (*Export, error) {
	route, err := s.routes.GetByID(ctx, routeID)
	if err != nil {
		return nil, err
	}
	return s.encode(ctx, route, s.geojson)
}

// SessionGeoJSON renders the current view of a live session.
func (s *ExportService) SessionGeoJSON(ctx context.Context, sessionID string) (*Export, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	data, err := s.geojson.EncodeView(SessionView(sess))
	if err != nil {
		return nil, fmt.Errorf("encode session geojson: %w", err)
	}
	metrics.ExportsTotal.WithLabelValues("session_geojson").Inc()
	return &Export{
		Filename:    "session-" + sessionID + ".geojson",
		ContentType: s.geojson.ContentType(),
		Data:        data,
	}, nil
}

// StoreGPX renders a route's GPX file into the artifact store and returns
// its object key.
func (s *ExportService) StoreGPX(ctx context.Context, route *domain.WorkoutRoute) (string, error) {
	if s.artifacts == nil {
		return "", fmt.Errorf("artifact store not configured")
	}
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRouteExport)
	defer span.End()
	span.SetAttributes(attribute.String("route.id", route.ID))

	data, err := s.gpx.EncodeRoute(route)
	if err != nil {
		return "", fmt.Errorf("encode gpx: %w", err)
	}
	key := GPXObjectKey(route)
	if err := s.artifacts.Put(ctx, key, s.gpx.ContentType(), bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("store gpx: %w", err)
	}
	return key, nil
}

// DeleteGPX removes a stored GPX artifact.
func (s *ExportService) DeleteGPX(ctx context.Context, key string) error {
	if s.artifacts == nil || key == "" {
		return nil
	}
	return s.artifacts.Delete(ctx, key)
}

func (s *ExportService) encode(ctx context.Context, route *domain.WorkoutRoute, enc ports.RouteEncoder) (*Export, error) {
	data, err := enc.EncodeRoute(route)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", enc.Format(), err)
	}
	metrics.ExportsTotal.WithLabelValues(enc.Format()).Inc()
	return &Export{Filename: exportFilename(route, enc.Format()), ContentType: enc.ContentType(), Data: data}, nil
}

// GPXObjectKey is where a route's GPX file lives in the artifact store.
func GPXObjectKey(route *domain.WorkoutRoute) string {
	return fmt.Sprintf("routes/%s/%s.gpx", route.CrewID, route.ID)
}

func exportFilename(route *domain.WorkoutRoute, ext string) string {
	return "route-" + route.ID + "." + ext
}
