package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

// SaveRouteInput is the input for the save workflow. RouteID is chosen before
// the workflow starts so that retried activities write the same row.
type SaveRouteInput struct {
	RouteID string
	CrewID  string
	Payload domain.RoutePayload
}

// SaveRouteWorkflow persists a finalized route, exports it as GPX to object
// storage and records the object key. If the export cannot be stored or
// attached, the route is deleted again (saga compensation). Publishing the
// RouteSaved event is best effort.
func SaveRouteWorkflow(ctx workflow.Context, input SaveRouteInput) (*domain.WorkoutRoute, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting save route workflow", "routeID", input.RouteID, "crewID", input.CrewID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Persist
	var route domain.WorkoutRoute
	if err := workflow.ExecuteActivity(ctx, ActivityPersistRoute, input).Get(ctx, &route); err != nil {
		return nil, err
	}

	// Step 2: Export
	var key string
	if err := workflow.ExecuteActivity(ctx, ActivityStoreGPX, &route).Get(ctx, &key); err != nil {
		logger.Warn("gpx export failed, compensating", "error", err)
		compensate(ctx, route.ID, "")
		return nil, err
	}

	// Step 3: Attach
	if key != "" {
		if err := workflow.ExecuteActivity(ctx, ActivityAttachGPX, route.ID, key).Get(ctx, nil); err != nil {
			logger.Warn("attaching gpx failed, compensating", "error", err)
			compensate(ctx, route.ID, key)
			return nil, err
		}
		route.GPXObjectKey = key
	}

	// Step 4: Announce
	if err := workflow.ExecuteActivity(ctx, ActivityPublishRouteSaved, &route).Get(ctx, nil); err != nil {
		logger.Warn("publishing route saved failed", "error", err)
	}

	logger.Info("Route saved", "routeID", route.ID, "gpxKey", key)
	return &route, nil
}

func compensate(ctx workflow.Context, routeID, key string) {
	if key != "" {
		_ = workflow.ExecuteActivity(ctx, ActivityDeleteGPX, key).Get(ctx, nil)
	}
	_ = workflow.ExecuteActivity(ctx, ActivityDeleteRoute, routeID).Get(ctx, nil)
}
