package ports

import (
	"context"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

// WorkoutRouteRepository persists finalized routes.
type WorkoutRouteRepository interface {
	Create(ctx context.Context, route *domain.WorkoutRoute) error
	GetByID(ctx context.Context, id string) (*domain.WorkoutRoute, error)
	ListByCrew(ctx context.Context, crewID string) ([]domain.WorkoutRoute, error)
	ListByMeetingLocation(ctx context.Context, meetingLocationID string) ([]domain.WorkoutRoute, error)
	SetGPXObjectKey(ctx context.Context, id, key string) error
	Delete(ctx context.Context, id string) error
}

// MeetingLocationRepository persists meeting locations.
type MeetingLocationRepository interface {
	Create(ctx context.Context, loc *domain.MeetingLocation) error
	GetByID(ctx context.Context, id string) (*domain.MeetingLocation, error)
	ListByCrew(ctx context.Context, crewID string) ([]domain.MeetingLocation, error)
}

// SessionStore keeps in-progress editing sessions. Get returns
// domain.ErrNotFound for unknown or expired sessions.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
}
