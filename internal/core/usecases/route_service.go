package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/core/ports"
	"github.com/samirrijal/hiitroute/internal/pkg/logging"
	"github.com/samirrijal/hiitroute/internal/pkg/metrics"
	"github.com/samirrijal/hiitroute/internal/pkg/telemetry"
)

const routeCacheTTL = 600 // seconds

// RouteService handles persisted workout routes. It is the default
// RouteSaver: SaveRoute writes synchronously and publishes RouteSaved.
type RouteService struct {
	routes    ports.WorkoutRouteRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	now       func() time.Time
}

// NewRouteService creates a new RouteService. cache and publisher may be nil.
func NewRouteService(routes ports.WorkoutRouteRepository, cache ports.CacheService, publisher ports.EventPublisher) *RouteService {
	return &RouteService{routes: routes, cache: cache, publisher: publisher, now: time.Now}
}

var _ ports.RouteSaver = (*RouteService)(nil)

// SaveRoute persists a finalized payload for crewID.
func (s *RouteService) SaveRoute(ctx context.Context, crewID string, payload domain.RoutePayload) (*domain.WorkoutRoute, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRouteSave)
	defer span.End()

	route, err := s.Create(ctx, crewID, payload)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("route.id", route.ID), attribute.Int("route.legs", len(route.Legs)))

	s.PublishSaved(ctx, route)
	return route, nil
}

// ValidatePayload checks what must hold before a payload is persisted.
func ValidatePayload(crewID string, payload domain.RoutePayload) error {
	if strings.TrimSpace(crewID) == "" {
		return fmt.Errorf("%w: crew_id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(payload.Name) == "" {
		return domain.ErrEmptyName
	}
	if len(payload.Legs) == 0 {
		return domain.ErrNoLegs
	}
	return checkLegs(payload)
}

// checkLegs enforces the shape Finalize produces: numbered legs with
// polylines, each leg starting where the previous one ended, stops at the end
// of every leg but the last, and a total that is the sum of the legs.
func checkLegs(p domain.RoutePayload) error {
	sum := 0
	last := len(p.Legs) - 1
	if len(p.Stops) != last {
		return fmt.Errorf("%w: %d stops for %d legs", domain.ErrInvalidInput, len(p.Stops), len(p.Legs))
	}
	for i, leg := range p.Legs {
		if leg.LegNumber != i+1 {
			return fmt.Errorf("%w: leg %d is numbered %d", domain.ErrInvalidInput, i+1, leg.LegNumber)
		}
		if len(leg.Polyline) == 0 {
			return fmt.Errorf("%w: leg %d has no points", domain.ErrInvalidInput, i+1)
		}
		if leg.Distance < 0 {
			return fmt.Errorf("%w: leg %d has a negative distance", domain.ErrInvalidInput, i+1)
		}
		if i > 0 && leg.Polyline[0] != p.Stops[i-1] {
			return fmt.Errorf("%w: leg %d does not start at stop %d", domain.ErrInvalidInput, i+1, i)
		}
		end := leg.Polyline[len(leg.Polyline)-1]
		if i < last && end != p.Stops[i] {
			return fmt.Errorf("%w: leg %d does not end at stop %d", domain.ErrInvalidInput, i+1, i+1)
		}
		if i == last && end != p.ChilldownLocation {
			return fmt.Errorf("%w: last leg does not end at the chilldown", domain.ErrInvalidInput)
		}
		sum += leg.Distance
	}
	if p.Legs[0].Polyline[0] != p.WarmupLocation {
		return fmt.Errorf("%w: first leg does not start at the warm-up", domain.ErrInvalidInput)
	}
	if p.Distance != sum {
		return fmt.Errorf("%w: distance %d is not the sum of the legs (%d)", domain.ErrInvalidInput, p.Distance, sum)
	}
	return nil
}

// Create validates and stores a route without publishing any event.
func (s *RouteService) Create(ctx context.Context, crewID string, payload domain.RoutePayload) (*domain.WorkoutRoute, error) {
	return s.CreateWithID(ctx, uuid.NewString(), crewID, payload)
}

// CreateWithID stores a route under a caller-chosen ID. Creating an ID that
// already exists returns the stored route, so retried saves do not duplicate.
func (s *RouteService) CreateWithID(ctx context.Context, id, crewID string, payload domain.RoutePayload) (*domain.WorkoutRoute, error) {
	if err := ValidatePayload(crewID, payload); err != nil {
		return nil, err
	}

	if existing, err := s.routes.GetByID(ctx, id); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup route %s: %w", id, err)
	}

	route := domain.NewWorkoutRoute(crewID, payload)
	route.ID = id
	route.CreatedAt = s.now().UTC()

	if err := s.routes.Create(ctx, route); err != nil {
		return nil, fmt.Errorf("create route: %w", err)
	}
	metrics.ObserveRouteSaved(route.DistanceMeters, len(route.Legs))

	logging.FromContext(ctx).Info("route saved",
		"route_id", route.ID, "crew_id", crewID, "name", route.Name, "distance_m", route.DistanceMeters)
	return route, nil
}

// PublishSaved emits a RouteSaved event. Failures are logged only.
func (s *RouteService) PublishSaved(ctx context.Context, route *domain.WorkoutRoute) {
	if s.publisher == nil {
		return
	}
	event := &domain.RouteSavedEvent{
		RouteID:           route.ID,
		CrewID:            route.CrewID,
		MeetingLocationID: route.MeetingLocationID,
		Name:              route.Name,
		DistanceMeters:    route.DistanceMeters,
		Legs:              len(route.Legs),
		SavedAt:           route.CreatedAt,
	}
	if err := s.publisher.PublishRouteSaved(ctx, event); err != nil {
		logging.FromContext(ctx).Warn("publish route saved failed", "route_id", route.ID, "error", err)
	}
}

// GetByID returns a route, reading through the cache.
func (s *RouteService) GetByID(ctx context.Context, id string) (*domain.WorkoutRoute, error) {
	key := routeCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var route domain.WorkoutRoute
			if err := json.Unmarshal(data, &route); err == nil {
				metrics.CacheHits.WithLabelValues("route").Inc()
				return &route, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("route").Inc()
	}

	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheRoute(ctx, route)
	return route, nil
}

// Warm loads a route into the cache.
func (s *RouteService) Warm(ctx context.Context, id string) error {
	if s.cache == nil {
		return nil
	}
	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.cacheRoute(ctx, route)
	return nil
}

// ListByCrew returns every route saved by a crew, newest first.
func (s *RouteService) ListByCrew(ctx context.Context, crewID string) ([]domain.WorkoutRoute, error) {
	if crewID == "" {
		return nil, fmt.Errorf("%w: crew_id is required", domain.ErrInvalidInput)
	}
	return s.routes.ListByCrew(ctx, crewID)
}

// ListByMeetingLocation returns the routes starting from a meeting location.
func (s *RouteService) ListByMeetingLocation(ctx context.Context, meetingLocationID string) ([]domain.WorkoutRoute, error) {
	if meetingLocationID == "" {
		return nil, fmt.Errorf("%w: meeting_location_id is required", domain.ErrInvalidInput)
	}
	return s.routes.ListByMeetingLocation(ctx, meetingLocationID)
}

// AttachGPX records the object key of a route's GPX export.
func (s *RouteService) AttachGPX(ctx context.Context, id, key string) error {
	if err := s.routes.SetGPXObjectKey(ctx, id, key); err != nil {
		return fmt.Errorf("attach gpx: %w", err)
	}
	s.evict(ctx, id)
	return nil
}

// Delete removes a route.
func (s *RouteService) Delete(ctx context.Context, id string) error {
	if err := s.routes.Delete(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

func (s *RouteService) cacheRoute(ctx context.Context, route *domain.WorkoutRoute) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(route); err == nil {
		_ = s.cache.Set(ctx, routeCacheKey(route.ID), data, routeCacheTTL)
	}
}

func (s *RouteService) evict(ctx context.Context, id string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, routeCacheKey(id))
	}
}

func routeCacheKey(id string) string {
	return "routes:" + id
}
