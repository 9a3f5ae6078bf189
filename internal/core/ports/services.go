package ports

import (
	"context"
	"io"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRouteSaved(ctx context.Context, event *domain.RouteSavedEvent) error
	PublishSessionUpdate(ctx context.Context, update *domain.SessionUpdate) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeRouteSaved(ctx context.Context, handler func(ctx context.Context, event *domain.RouteSavedEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// RouteSaver hands a finalized route to persistence.
type RouteSaver interface {
	SaveRoute(ctx context.Context, crewID string, payload domain.RoutePayload) (*domain.WorkoutRoute, error)
}

// ArtifactStore keeps exported route files.
type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// RouteEncoder renders a saved route in a file format.
type RouteEncoder interface {
	Format() string
	ContentType() string
	EncodeRoute(route *domain.WorkoutRoute) ([]byte, error)
}

// ViewEncoder renders the projection of an in-progress route.
type ViewEncoder interface {
	EncodeView(view domain.RouteView) ([]byte, error)
}

// MapEncoder renders both saved routes and live views.
type MapEncoder interface {
	RouteEncoder
	ViewEncoder
}
