package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

// Activity names as registered from RouteActivities' methods.
const (
	ActivityPersistRoute      = "PersistRoute"
	ActivityStoreGPX          = "StoreGPX"
	ActivityAttachGPX         = "AttachGPX"
	ActivityPublishRouteSaved = "PublishRouteSaved"
	ActivityDeleteRoute       = "DeleteRoute"
	ActivityDeleteGPX         = "DeleteGPX"
)

// ErrTypeInvalidRoute marks payloads that will never persist, so Temporal
// does not retry them.
const ErrTypeInvalidRoute = "InvalidRoute"

type routeStore interface {
	CreateWithID(ctx context.Context, id, crewID string, payload domain.RoutePayload) (*domain.WorkoutRoute, error)
	AttachGPX(ctx context.Context, id, key string) error
	PublishSaved(ctx context.Context, route *domain.WorkoutRoute)
	Delete(ctx context.Context, id string) error
}

type gpxStore interface {
	StoreGPX(ctx context.Context, route *domain.WorkoutRoute) (string, error)
	DeleteGPX(ctx context.Context, key string) error
}

// RouteActivities holds the activity implementations for SaveRouteWorkflow.
// Exports may be nil when no object storage is configured; StoreGPX is then
// a no-op.
type RouteActivities struct {
	Routes  routeStore
	Exports gpxStore
}

// PersistRoute writes the route under the ID chosen by the caller.
func (a *RouteActivities) PersistRoute(ctx context.Context, input SaveRouteInput) (*domain.WorkoutRoute, error) {
	route, err := a.Routes.CreateWithID(ctx, input.RouteID, input.CrewID, input.Payload)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrIncompleteRoute) ||
			errors.Is(err, domain.ErrEmptyName) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidRoute, err)
		}
		return nil, fmt.Errorf("persist route %s: %w", input.RouteID, err)
	}
	return route, nil
}

// StoreGPX uploads the GPX export and returns its object key, or "" when
// storage is disabled.
func (a *RouteActivities) StoreGPX(ctx context.Context, route *domain.WorkoutRoute) (string, error) {
	if a.Exports == nil {
		return "", nil
	}
	key, err := a.Exports.StoreGPX(ctx, route)
	if err != nil {
		return "", fmt.Errorf("store gpx for %s: %w", route.ID, err)
	}
	return key, nil
}

// AttachGPX records the object key on the route.
func (a *RouteActivities) AttachGPX(ctx context.Context, routeID, key string) error {
	if err := a.Routes.AttachGPX(ctx, routeID, key); err != nil {
		return fmt.Errorf("attach gpx to %s: %w", routeID, err)
	}
	return nil
}

// PublishRouteSaved emits the RouteSaved event.
func (a *RouteActivities) PublishRouteSaved(ctx context.Context, route *domain.WorkoutRoute) error {
	a.Routes.PublishSaved(ctx, route)
	return nil
}

// DeleteRoute removes a persisted route (saga compensation).
func (a *RouteActivities) DeleteRoute(ctx context.Context, routeID string) error {
	err := a.Routes.Delete(ctx, routeID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete route %s: %w", routeID, err)
	}
	activity.GetLogger(ctx).Info("route deleted (saga compensation)", "route_id", routeID)
	return nil
}

// DeleteGPX removes an uploaded export (saga compensation).
func (a *RouteActivities) DeleteGPX(ctx context.Context, key string) error {
	if a.Exports == nil || key == "" {
		return nil
	}
	if err := a.Exports.DeleteGPX(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete gpx %s: %w", key, err)
	}
	activity.GetLogger(ctx).Info("gpx deleted (saga compensation)", "key", key)
	return nil
}
