package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/core/ports"
	"github.com/samirrijal/hiitroute/internal/core/routebuilder"
	"github.com/samirrijal/hiitroute/internal/pkg/logging"
	"github.com/samirrijal/hiitroute/internal/pkg/metrics"
	"github.com/samirrijal/hiitroute/internal/pkg/telemetry"
)

// Session operation names, used for metrics and live updates.
const (
	OpStart    = "start"
	OpAddPoint = "add_point"
	OpMarkStop = "mark_stop"
	OpUndo     = "undo"
	OpReset    = "reset"
	OpFinalize = "finalize"
	OpDiscard  = "discard"
)

// SessionService drives route-editing sessions. Transitions on one session
// are serialised on this node; each one loads the latest snapshot, applies a
// pure routebuilder operation and stores the result.
type SessionService struct {
	store     ports.SessionStore
	locations ports.MeetingLocationRepository
	saver     ports.RouteSaver
	publisher ports.EventPublisher
	locks     *keyedMutex
	now       func() time.Time
}

// NewSessionService creates a new SessionService. publisher may be nil.
func NewSessionService(
	store ports.SessionStore,
	locations ports.MeetingLocationRepository,
	saver ports.RouteSaver,
	publisher ports.EventPublisher,
) *SessionService {
	return &SessionService{
		store:     store,
		locations: locations,
		saver:     saver,
		publisher: publisher,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// Start opens a new session for crewID at the given meeting location.
func (s *SessionService) Start(ctx context.Context, crewID, meetingLocationID string) (*domain.Session, error) {
	if strings.TrimSpace(crewID) == "" {
		return nil, fmt.Errorf("%w: crew_id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(meetingLocationID) == "" {
		return nil, fmt.Errorf("%w: meeting_location_id is required", domain.ErrInvalidInput)
	}

	loc, err := s.locations.GetByID(ctx, meetingLocationID)
	if err != nil {
		return nil, fmt.Errorf("meeting location %s: %w", meetingLocationID, err)
	}
	if loc.CrewID != "" && loc.CrewID != crewID {
		return nil, fmt.Errorf("meeting location %s: %w", meetingLocationID, domain.ErrNotFound)
	}

	now := s.now()
	sess := &domain.Session{
		ID:              uuid.NewString(),
		CrewID:          crewID,
		MeetingLocation: loc,
		Route:           routebuilder.Empty(),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		metrics.ObserveSessionOp(OpStart, err)
		return nil, fmt.Errorf("save session: %w", err)
	}

	metrics.ObserveSessionOp(OpStart, nil)
	logging.FromContext(ctx).Info("route session started",
		"session_id", sess.ID, "crew_id", crewID, "meeting_location_id", meetingLocationID)
	return sess, nil
}

// Get returns the latest snapshot of a session.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	return s.store.Get(ctx, id)
}

// View returns the renderable projection of a session.
func (s *SessionService) View(ctx context.Context, id string) (domain.RouteView, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.RouteView{}, err
	}
	return SessionView(sess), nil
}

// AddPoint appends p to the session's route.
func (s *SessionService) AddPoint(ctx context.Context, id string, p domain.GeoPoint) (*domain.Session, error) {
	return s.transition(ctx, id, OpAddPoint, func(sess *domain.Session) error {
		sess.Route = routebuilder.AddPoint(sess.Route, p)
		return nil
	})
}

// AddPoints appends several points as one transition, in order.
func (s *SessionService) AddPoints(ctx context.Context, id string, points []domain.GeoPoint) (*domain.Session, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points given", domain.ErrInvalidInput)
	}
	return s.transition(ctx, id, OpAddPoint, func(sess *domain.Session) error {
		for _, p := range points {
			sess.Route = routebuilder.AddPoint(sess.Route, p)
		}
		return nil
	})
}

// MarkStop closes the current leg at its last point.
func (s *SessionService) MarkStop(ctx context.Context, id string) (*domain.Session, error) {
	return s.transition(ctx, id, OpMarkStop, func(sess *domain.Session) error {
		next, err := routebuilder.MarkStop(sess.Route)
		if err != nil {
			return err
		}
		sess.Route = next
		return nil
	})
}

// Undo removes the most recent point or stop.
func (s *SessionService) Undo(ctx context.Context, id string) (*domain.Session, error) {
	return s.transition(ctx, id, OpUndo, func(sess *domain.Session) error {
		sess.Route = routebuilder.UndoLast(sess.Route)
		return nil
	})
}

// Reset clears the route. It is the only transition allowed on a finalized
// session and starts a fresh route in it.
func (s *SessionService) Reset(ctx context.Context, id string) (*domain.Session, error) {
	return s.transition(ctx, id, OpReset, func(sess *domain.Session) error {
		sess.Route = routebuilder.Reset(sess.Route)
		sess.Finalized = false
		sess.SavedRouteID = ""
		return nil
	})
}

// Finalize builds the route payload, hands it to the RouteSaver and marks the
// session finalized. The session is left untouched when the save fails.
func (s *SessionService) Finalize(ctx context.Context, id, name string) (*domain.WorkoutRoute, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSessionFinalize)
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	unlock := s.locks.Lock(id)
	defer unlock()

	route, err := s.finalizeLocked(ctx, id, name)
	metrics.ObserveSessionOp(OpFinalize, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("route.id", route.ID))
	return route, nil
}

func (s *SessionService) finalizeLocked(ctx context.Context, id, name string) (*domain.WorkoutRoute, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Finalized {
		return nil, domain.ErrSessionFinalized
	}

	meetingID := ""
	if sess.MeetingLocation != nil {
		meetingID = sess.MeetingLocation.ID
	}
	payload, err := routebuilder.Finalize(sess.Route, name, meetingID)
	if err != nil {
		return nil, err
	}

	saved, err := s.saver.SaveRoute(ctx, sess.CrewID, payload)
	if err != nil {
		return nil, fmt.Errorf("save route: %w", err)
	}

	// The route is stored at this point. Failing here would invite a retry
	// that saves it a second time, so a lost session write is only logged.
	sess.Finalized = true
	sess.SavedRouteID = saved.ID
	s.bump(sess)
	if err := s.store.Save(ctx, sess); err != nil {
		logging.FromContext(ctx).Warn("route saved but session not marked finalized",
			"session_id", id, "route_id", saved.ID, "error", err)
		return saved, nil
	}
	s.publish(ctx, sess, OpFinalize)

	logging.FromContext(ctx).Info("route finalized",
		"session_id", id, "route_id", saved.ID, "legs", len(payload.Legs), "distance_m", payload.Distance)
	return saved, nil
}

// Discard deletes a session. Unknown sessions are not an error.
func (s *SessionService) Discard(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	err := s.store.Delete(ctx, id)
	metrics.ObserveSessionOp(OpDiscard, err)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionService) transition(ctx context.Context, id, op string, apply func(*domain.Session) error) (*domain.Session, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSessionTransition)
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id), attribute.String("session.op", op))

	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.transitionLocked(ctx, id, op, apply)
	metrics.ObserveSessionOp(op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return sess, nil
}

func (s *SessionService) transitionLocked(ctx context.Context, id, op string, apply func(*domain.Session) error) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Finalized && op != OpReset {
		return nil, domain.ErrSessionFinalized
	}

	if err := apply(sess); err != nil {
		return nil, err
	}
	s.bump(sess)

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.publish(ctx, sess, op)

	logging.FromContext(ctx).Debug("route session updated",
		"session_id", id, "op", op, "version", sess.Version, "phase", routebuilder.Phase(sess.Route))
	return sess, nil
}

func (s *SessionService) bump(sess *domain.Session) {
	sess.Version++
	sess.UpdatedAt = s.now()
}

// publish is best effort: a lost live update never fails the transition.
func (s *SessionService) publish(ctx context.Context, sess *domain.Session, op string) {
	if s.publisher == nil {
		return
	}
	update := &domain.SessionUpdate{
		SessionID: sess.ID,
		Operation: op,
		Version:   sess.Version,
		View:      SessionView(sess),
		Time:      sess.UpdatedAt,
	}
	if err := s.publisher.PublishSessionUpdate(ctx, update); err != nil {
		logging.FromContext(ctx).Warn("publish session update failed", "session_id", sess.ID, "error", err)
	}
}

// SessionView projects a session snapshot. A finalized session reports the
// finalized phase and allows no further building.
func SessionView(sess *domain.Session) domain.RouteView {
	v := routebuilder.View(sess.Route, sess.MeetingPoint())
	if sess.Finalized {
		v.Phase = domain.PhaseFinalized
		v.CanMarkStop = false
		v.CanFinalize = false
	}
	return v
}
