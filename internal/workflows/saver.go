package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/core/ports"
	"github.com/samirrijal/hiitroute/internal/core/usecases"
)

// TemporalSaver saves finalized routes through SaveRouteWorkflow and waits
// for the result.
type TemporalSaver struct {
	client    client.Client
	taskQueue string
	newID     func() string
}

var _ ports.RouteSaver = (*TemporalSaver)(nil)

// NewTemporalSaver creates a saver that starts workflows on taskQueue.
func NewTemporalSaver(c client.Client, taskQueue string) *TemporalSaver {
	return &TemporalSaver{client: c, taskQueue: taskQueue, newID: uuid.NewString}
}

// SaveRoute validates the payload locally, so callers still get domain
// errors, then runs the workflow to completion.
func (s *TemporalSaver) SaveRoute(ctx context.Context, crewID string, payload domain.RoutePayload) (*domain.WorkoutRoute, error) {
	if err := usecases.ValidatePayload(crewID, payload); err != nil {
		return nil, err
	}

	input := SaveRouteInput{RouteID: s.newID(), CrewID: crewID, Payload: payload}
	opts := client.StartWorkflowOptions{
		ID:        "save-route-" + input.RouteID,
		TaskQueue: s.taskQueue,
	}

	run, err := s.client.ExecuteWorkflow(ctx, opts, SaveRouteWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("start save route workflow: %w", err)
	}

	var route domain.WorkoutRoute
	if err := run.Get(ctx, &route); err != nil {
		return nil, fmt.Errorf("save route workflow %s: %w", run.GetID(), err)
	}
	return &route, nil
}
