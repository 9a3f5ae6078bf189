package usecases_test

import (
	"context"
	"io"
	"sync"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

// --- Mock SessionStore ---

type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	saveFn   func(ctx context.Context, s *domain.Session) error
	saves    int
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]domain.Session)}
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *mockSessionStore) Save(ctx context.Context, s *domain.Session) error {
	if m.saveFn != nil {
		if err := m.saveFn(ctx, s); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	m.saves++
	return nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// --- Mock MeetingLocationRepository ---

type mockLocationRepo struct {
	createFn     func(ctx context.Context, loc *domain.MeetingLocation) error
	getByIDFn    func(ctx context.Context, id string) (*domain.MeetingLocation, error)
	listByCrewFn func(ctx context.Context, crewID string) ([]domain.MeetingLocation, error)
}

func (m *mockLocationRepo) Create(ctx context.Context, loc *domain.MeetingLocation) error {
	if m.createFn != nil {
		return m.createFn(ctx, loc)
	}
	return nil
}

func (m *mockLocationRepo) GetByID(ctx context.Context, id string) (*domain.MeetingLocation, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockLocationRepo) ListByCrew(ctx context.Context, crewID string) ([]domain.MeetingLocation, error) {
	if m.listByCrewFn != nil {
		return m.listByCrewFn(ctx, crewID)
	}
	return nil, nil
}

// --- Mock RouteSaver ---

type mockSaver struct {
	saveRouteFn func(ctx context.Context, crewID string, p domain.RoutePayload) (*domain.WorkoutRoute, error)
	calls       []domain.RoutePayload
}

func (m *mockSaver) SaveRoute(ctx context.Context, crewID string, p domain.RoutePayload) (*domain.WorkoutRoute, error) {
	m.calls = append(m.calls, p)
	if m.saveRouteFn != nil {
		return m.saveRouteFn(ctx, crewID, p)
	}
	r := domain.NewWorkoutRoute(crewID, p)
	r.ID = "route-1"
	return r, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu      sync.Mutex
	saved   []domain.RouteSavedEvent
	updates []domain.SessionUpdate
	err     error
}

func (m *mockPublisher) PublishRouteSaved(ctx context.Context, e *domain.RouteSavedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *e)
	return m.err
}

func (m *mockPublisher) PublishSessionUpdate(ctx context.Context, u *domain.SessionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, *u)
	return m.err
}

// --- Mock WorkoutRouteRepository ---

type mockRouteRepo struct {
	createFn    func(ctx context.Context, r *domain.WorkoutRoute) error
	getByIDFn   func(ctx context.Context, id string) (*domain.WorkoutRoute, error)
	listFn      func(ctx context.Context, key string) ([]domain.WorkoutRoute, error)
	setGPXFn    func(ctx context.Context, id, key string) error
	deleteFn    func(ctx context.Context, id string) error
	getByIDHits int
}

func (m *mockRouteRepo) Create(ctx context.Context, r *domain.WorkoutRoute) error {
	if m.createFn != nil {
		return m.createFn(ctx, r)
	}
	return nil
}

func (m *mockRouteRepo) GetByID(ctx context.Context, id string) (*domain.WorkoutRoute, error) {
	m.getByIDHits++
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRouteRepo) ListByCrew(ctx context.Context, crewID string) ([]domain.WorkoutRoute, error) {
	if m.listFn != nil {
		return m.listFn(ctx, crewID)
	}
	return nil, nil
}

func (m *mockRouteRepo) ListByMeetingLocation(ctx context.Context, id string) ([]domain.WorkoutRoute, error) {
	if m.listFn != nil {
		return m.listFn(ctx, id)
	}
	return nil, nil
}

func (m *mockRouteRepo) SetGPXObjectKey(ctx context.Context, id, key string) error {
	if m.setGPXFn != nil {
		return m.setGPXFn(ctx, id, key)
	}
	return nil
}

func (m *mockRouteRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Mock encoders and ArtifactStore ---

type mockEncoder struct {
	format string
	views  []domain.RouteView
}

func (m *mockEncoder) Format() string      { return m.format }
func (m *mockEncoder) ContentType() string { return "application/" + m.format }

func (m *mockEncoder) EncodeRoute(r *domain.WorkoutRoute) ([]byte, error) {
	return []byte(m.format + ":" + r.ID), nil
}

func (m *mockEncoder) EncodeView(v domain.RouteView) ([]byte, error) {
	m.views = append(m.views, v)
	return []byte(m.format + ":view"), nil
}

type mockArtifacts struct {
	objects map[string][]byte
	putErr  error
}

func newMockArtifacts() *mockArtifacts { return &mockArtifacts{objects: make(map[string][]byte)} }

func (m *mockArtifacts) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *mockArtifacts) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.objects[key]; ok {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockArtifacts) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}
