package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/hiitroute/internal/adapters/export"
	handler "github.com/samirrijal/hiitroute/internal/adapters/http"
	"github.com/samirrijal/hiitroute/internal/adapters/memory"
	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/core/usecases"
	"github.com/samirrijal/hiitroute/internal/pkg/geospatial"
)

// ---- Mock repositories ----

type mockLocationRepo struct {
	mu   sync.Mutex
	locs map[string]domain.MeetingLocation
}

func newMockLocationRepo(locs ...domain.MeetingLocation) *mockLocationRepo {
	m := &mockLocationRepo{locs: make(map[string]domain.MeetingLocation)}
	for _, l := range locs {
		m.locs[l.ID] = l
	}
	return m
}

func (m *mockLocationRepo) Create(ctx context.Context, loc *domain.MeetingLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locs[loc.ID] = *loc
	return nil
}

func (m *mockLocationRepo) GetByID(ctx context.Context, id string) (*domain.MeetingLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (m *mockLocationRepo) ListByCrew(ctx context.Context, crewID string) ([]domain.MeetingLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MeetingLocation
	for _, l := range m.locs {
		if l.CrewID == crewID {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockRouteRepo struct {
	mu     sync.Mutex
	routes map[string]domain.WorkoutRoute
	order  []string

	listByCrewFn func(ctx context.Context, crewID string) ([]domain.WorkoutRoute, error)
}

func newMockRouteRepo() *mockRouteRepo {
	return &mockRouteRepo{routes: make(map[string]domain.WorkoutRoute)}
}

func (m *mockRouteRepo) Create(ctx context.Context, r *domain.WorkoutRoute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[r.ID] = *r
	m.order = append(m.order, r.ID)
	return nil
}

func (m *mockRouteRepo) GetByID(ctx context.Context, id string) (*domain.WorkoutRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *mockRouteRepo) ListByCrew(ctx context.Context, crewID string) ([]domain.WorkoutRoute, error) {
	if m.listByCrewFn != nil {
		return m.listByCrewFn(ctx, crewID)
	}
	return m.filter(func(r domain.WorkoutRoute) bool { return r.CrewID == crewID }), nil
}

func (m *mockRouteRepo) ListByMeetingLocation(ctx context.Context, id string) ([]domain.WorkoutRoute, error) {
	return m.filter(func(r domain.WorkoutRoute) bool { return r.MeetingLocationID == id }), nil
}

func (m *mockRouteRepo) SetGPXObjectKey(ctx context.Context, id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.GPXObjectKey = key
	m.routes[id] = r
	return nil
}

func (m *mockRouteRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.routes, id)
	return nil
}

func (m *mockRouteRepo) filter(keep func(domain.WorkoutRoute) bool) []domain.WorkoutRoute {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WorkoutRoute
	for _, id := range m.order {
		if r, ok := m.routes[id]; ok && keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// ---- Test helpers ----

var abando = domain.MeetingLocation{
	ID:       "loc-1",
	CrewID:   "crew-1",
	Name:     "Abando",
	Location: domain.GeoPoint{Lat: 43.2614, Lon: -2.9253},
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	store := memory.NewSessionStore(time.Hour)
	locations := newMockLocationRepo(abando)
	routes := usecases.NewRouteService(newMockRouteRepo(), nil, nil)

	d := &handler.Dependencies{
		Sessions:  usecases.NewSessionService(store, locations, routes, nil),
		Routes:    routes,
		Locations: usecases.NewMeetingLocationService(locations),
		Exports:   usecases.NewExportService(routes, store, export.GPX{}, export.GeoJSON{}, nil),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

type sessionBody struct {
	ID           string           `json:"id"`
	Version      int64            `json:"version"`
	Finalized    bool             `json:"finalized"`
	SavedRouteID string           `json:"saved_route_id"`
	View         domain.RouteView `json:"view"`
}

type routeBody struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DistanceMeters int    `json:"distance_meters"`
	Legs           []struct {
		LegNumber       int    `json:"leg_number"`
		Distance        int    `json:"distance"`
		EncodedPolyline string `json:"encoded_polyline"`
	} `json:"legs"`
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(readBody(t, resp.Body), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func expectError(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("expected %d, got %d", status, resp.StatusCode)
	}
	apiErr := decode[handler.APIError](t, resp)
	if apiErr.Code != code {
		t.Errorf("expected code %s, got %s (%s)", code, apiErr.Code, apiErr.Message)
	}
}

func startSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp := doJSON(t, app, "POST", "/v1/sessions", `{"crew_id":"crew-1","meeting_location_id":"loc-1"}`)
	if resp.StatusCode != 201 {
		t.Fatalf("start session: expected 201, got %d", resp.StatusCode)
	}
	return decode[sessionBody](t, resp).ID
}

func addPoint(t *testing.T, app *fiber.App, id string, lat, lon float64) sessionBody {
	t.Helper()
	resp := doJSON(t, app, "POST", "/v1/sessions/"+id+"/points", fmt.Sprintf(`{"lat":%g,"lon":%g}`, lat, lon))
	if resp.StatusCode != 200 {
		t.Fatalf("add point: expected 200, got %d", resp.StatusCode)
	}
	return decode[sessionBody](t, resp)
}

// ---- Meeting location handler tests ----

func TestCreateMeetingLocation_Success(t *testing.T) {
	app := setupApp(makeDeps())

	resp := doJSON(t, app, "POST", "/v1/meeting-locations",
		`{"crew_id":"crew-1","name":"Doña Casilda park","lat":43.2637,"lon":-2.9437}`)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	loc := decode[domain.MeetingLocation](t, resp)
	if loc.ID == "" {
		t.Error("expected an id")
	}
	if resp.Header.Get("Location") != "/v1/meeting-locations/"+loc.ID {
		t.Errorf("unexpected Location header %q", resp.Header.Get("Location"))
	}
}

func TestCreateMeetingLocation_Validation(t *testing.T) {
	app := setupApp(makeDeps())

	tests := []struct {
		name string
		body string
	}{
		{"missing coordinates", `{"crew_id":"crew-1","name":"Park"}`},
		{"missing name", `{"crew_id":"crew-1","name":"  ","lat":1,"lon":1}`},
		{"missing crew", `{"name":"Park","lat":1,"lon":1}`},
		{"non-numeric lat", `{"crew_id":"crew-1","name":"Park","lat":"north","lon":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, "POST", "/v1/meeting-locations", tt.body)
			expectError(t, resp, 400, "bad_request")
		})
	}
}

func TestListMeetingLocations(t *testing.T) {
	app := setupApp(makeDeps())

	resp := doJSON(t, app, "GET", "/v1/meeting-locations?crew_id=crew-1", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	result := decode[struct {
		Data       []domain.MeetingLocation `json:"data"`
		Pagination handler.Pagination       `json:"pagination"`
	}](t, resp)
	if result.Pagination.Total != 1 || len(result.Data) != 1 {
		t.Fatalf("expected 1 location, got %d (total %d)", len(result.Data), result.Pagination.Total)
	}

	resp = doJSON(t, app, "GET", "/v1/meeting-locations", "")
	expectError(t, resp, 400, "bad_request")
}

func TestGetMeetingLocation_NotFound(t *testing.T) {
	app := setupApp(makeDeps())
	resp := doJSON(t, app, "GET", "/v1/meeting-locations/nope", "")
	expectError(t, resp, 404, "not_found")
}

// ---- Session handler tests ----

func TestStartSession(t *testing.T) {
	app := setupApp(makeDeps())

	resp := doJSON(t, app, "POST", "/v1/sessions", `{"crew_id":"crew-1","meeting_location_id":"loc-1"}`)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	sess := decode[sessionBody](t, resp)
	if sess.Version != 1 {
		t.Errorf("expected version 1, got %d", sess.Version)
	}
	if sess.View.Phase != domain.PhaseEmpty {
		t.Errorf("expected empty phase, got %s", sess.View.Phase)
	}
	if len(sess.View.Markers) != 1 || sess.View.Markers[0].Kind != domain.MarkerMeeting {
		t.Errorf("expected only the meeting marker, got %+v", sess.View.Markers)
	}

	resp = doJSON(t, app, "GET", "/v1/sessions/"+sess.ID, "")
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Errorf("expected no-store, got %q", resp.Header.Get("Cache-Control"))
	}
}

func TestStartSession_UnknownLocation(t *testing.T) {
	app := setupApp(makeDeps())
	resp := doJSON(t, app, "POST", "/v1/sessions", `{"crew_id":"crew-1","meeting_location_id":"nope"}`)
	expectError(t, resp, 404, "not_found")

	resp = doJSON(t, app, "POST", "/v1/sessions", `{"crew_id":"crew-2","meeting_location_id":"loc-1"}`)
	expectError(t, resp, 404, "not_found")
}

func TestSessionFlow_FinalizeAndExport(t *testing.T) {
	app := setupApp(makeDeps())
	id := startSession(t, app)

	addPoint(t, app, id, 0, 0)
	s := addPoint(t, app, id, 0, 0.001)
	if s.View.CurrentLegDistanceMeters != 111 {
		t.Errorf("expected current leg 111 m, got %d", s.View.CurrentLegDistanceMeters)
	}
	if !s.View.CanMarkStop {
		t.Error("expected can_mark_stop")
	}

	resp := doJSON(t, app, "POST", "/v1/sessions/"+id+"/stop", "")
	if resp.StatusCode != 200 {
		t.Fatalf("stop: expected 200, got %d", resp.StatusCode)
	}
	s = decode[sessionBody](t, resp)
	if s.View.Phase != domain.PhaseLegClosed || !s.View.CanFinalize {
		t.Errorf("expected closed leg ready to finalize, got %+v", s.View)
	}

	resp = doJSON(t, app, "POST", "/v1/sessions/"+id+"/finalize", `{"name":"  Riverside  "}`)
	if resp.StatusCode != 201 {
		t.Fatalf("finalize: expected 201, got %d", resp.StatusCode)
	}
	route := decode[routeBody](t, resp)
	if route.Name != "Riverside" {
		t.Errorf("expected trimmed name, got %q", route.Name)
	}
	if route.DistanceMeters != 111 || len(route.Legs) != 1 {
		t.Fatalf("unexpected route %+v", route)
	}
	if route.Legs[0].EncodedPolyline != geospatial.EncodePolyline([][2]float64{{0, 0}, {0, 0.001}}) {
		t.Errorf("unexpected encoded polyline %q", route.Legs[0].EncodedPolyline)
	}

	resp = doJSON(t, app, "GET", "/v1/sessions/"+id, "")
	s = decode[sessionBody](t, resp)
	if !s.Finalized || s.SavedRouteID != route.ID || s.View.Phase != domain.PhaseFinalized {
		t.Errorf("expected finalized session pointing at %s, got %+v", route.ID, s)
	}

	resp = doJSON(t, app, "GET", "/v1/routes/"+route.ID+"/gpx", "")
	if resp.StatusCode != 200 {
		t.Fatalf("gpx: expected 200, got %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "route-"+route.ID+".gpx") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if !strings.Contains(string(readBody(t, resp.Body)), "<gpx") {
		t.Error("expected a gpx document")
	}

	resp = doJSON(t, app, "GET", "/v1/routes/"+route.ID+"/geojson", "")
	if resp.StatusCode != 200 {
		t.Fatalf("geojson: expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("unexpected Content-Type %q", ct)
	}
}

func TestAddPoint_EncodedPolyline(t *testing.T) {
	app := setupApp(makeDeps())
	id := startSession(t, app)

	encoded := geospatial.EncodePolyline([][2]float64{{0, 0}, {0, 0.001}, {0, 0.002}})
	resp := doJSON(t, app, "POST", "/v1/sessions/"+id+"/points", `{"polyline":"`+encoded+`"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	s := decode[sessionBody](t, resp)
	if s.Version != 2 {
		t.Errorf("expected one transition, got version %d", s.Version)
	}
	if s.View.CurrentLegDistanceMeters != 222 {
		t.Errorf("expected 222 m, got %d", s.View.CurrentLegDistanceMeters)
	}

	resp = doJSON(t, app, "POST", "/v1/sessions/"+id+"/points", `{"polyline":"_p~iF~ps|U_"}`)
	expectError(t, resp, 400, "bad_request")

	resp = doJSON(t, app, "POST", "/v1/sessions/"+id+"/points", `{"lat":1}`)
	expectError(t, resp, 400, "bad_request")
}

func TestSessionErrors(t *testing.T) {
	app := setupApp(makeDeps())
	id := startSession(t, app)

	t.Run("stop on empty route", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/v1/sessions/"+id+"/stop", "")
		expectError(t, resp, 409, "empty_route")
	})

	addPoint(t, app, id, 0, 0)

	t.Run("stop on warmup", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/v1/sessions/"+id+"/stop", "")
		expectError(t, resp, 409, "duplicate_stop")
	})

	t.Run("finalize without legs", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/v1/sessions/"+id+"/finalize", `{"name":"x"}`)
		expectError(t, resp, 422, "incomplete_route")
	})

	addPoint(t, app, id, 0, 0.001)
	doJSON(t, app, "POST", "/v1/sessions/"+id+"/stop", "")

	t.Run("finalize without name", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/v1/sessions/"+id+"/finalize", `{"name":"   "}`)
		expectError(t, resp, 422, "empty_name")
	})

	addPoint(t, app, id, 0, 0.002)

	t.Run("finalize with open leg", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/v1/sessions/"+id+"/finalize", `{"name":"x"}`)
		expectError(t, resp, 422, "incomplete_route")
	})

	t.Run("unknown session", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/v1/sessions/nope/undo", "")
		expectError(t, resp, 404, "not_found")
	})
}

func TestFinalizedSessionRejectsEditsUntilReset(t *testing.T) {
	app := setupApp(makeDeps())
	id := startSession(t, app)
	addPoint(t, app, id, 0, 0)
	addPoint(t, app, id, 0, 0.001)
	doJSON(t, app, "POST", "/v1/sessions/"+id+"/stop", "")
	if resp := doJSON(t, app, "POST", "/v1/sessions/"+id+"/finalize", `{"name":"Loop"}`); resp.StatusCode != 201 {
		t.Fatalf("finalize: expected 201, got %d", resp.StatusCode)
	}

	resp := doJSON(t, app, "POST", "/v1/sessions/"+id+"/points", `{"lat":1,"lon":1}`)
	expectError(t, resp, 409, "session_finalized")

	resp = doJSON(t, app, "POST", "/v1/sessions/"+id+"/reset", "")
	if resp.StatusCode != 200 {
		t.Fatalf("reset: expected 200, got %d", resp.StatusCode)
	}
	s := decode[sessionBody](t, resp)
	if s.Finalized || s.View.Phase != domain.PhaseEmpty {
		t.Errorf("expected a fresh route after reset, got %+v", s)
	}
}

func TestUndoAndDiscard(t *testing.T) {
	app := setupApp(makeDeps())
	id := startSession(t, app)
	addPoint(t, app, id, 0, 0)
	addPoint(t, app, id, 0, 0.001)

	resp := doJSON(t, app, "POST", "/v1/sessions/"+id+"/undo", "")
	s := decode[sessionBody](t, resp)
	if s.View.Phase != domain.PhaseWarmupSet {
		t.Errorf("expected warmup_set after undo, got %s", s.View.Phase)
	}

	resp = doJSON(t, app, "DELETE", "/v1/sessions/"+id, "")
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = doJSON(t, app, "GET", "/v1/sessions/"+id, "")
	expectError(t, resp, 404, "not_found")
}

func TestSessionGeoJSON(t *testing.T) {
	app := setupApp(makeDeps())
	id := startSession(t, app)
	addPoint(t, app, id, 0, 0)

	resp := doJSON(t, app, "GET", "/v1/sessions/"+id+"/geojson", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Errorf("expected meeting and warm-up markers, got %s with %d features", fc.Type, len(fc.Features))
	}
}

// ---- Route handler tests ----

func TestListRoutes_PaginationAndLinks(t *testing.T) {
	repo := newMockRouteRepo()
	for i := 0; i < 5; i++ {
		_ = repo.Create(context.Background(), &domain.WorkoutRoute{
			ID: fmt.Sprintf("r%d", i), CrewID: "crew-1", Name: fmt.Sprintf("Route %d", i),
		})
	}
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(repo, nil, nil)
	})
	app := setupApp(deps)

	resp := doJSON(t, app, "GET", "/v1/routes?crew_id=crew-1&offset=2&limit=2", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	link := resp.Header.Get("Link")
	for _, want := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`, "crew_id=crew-1"} {
		if !strings.Contains(link, want) {
			t.Errorf("expected Link header to contain %s, got %q", want, link)
		}
	}

	result := decode[struct {
		Data       []routeBody        `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}](t, resp)
	if result.Pagination.Total != 5 || len(result.Data) != 2 {
		t.Fatalf("expected 2 of 5, got %d of %d", len(result.Data), result.Pagination.Total)
	}
	if result.Data[0].ID != "r2" {
		t.Errorf("expected r2 first, got %s", result.Data[0].ID)
	}
}

func TestListRoutes_MissingFilter(t *testing.T) {
	app := setupApp(makeDeps())
	resp := doJSON(t, app, "GET", "/v1/routes", "")
	expectError(t, resp, 400, "bad_request")
}

func TestListRoutes_RepositoryError(t *testing.T) {
	repo := newMockRouteRepo()
	repo.listByCrewFn = func(ctx context.Context, crewID string) ([]domain.WorkoutRoute, error) {
		return nil, fmt.Errorf("connection refused")
	}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(repo, nil, nil)
	}))

	resp := doJSON(t, app, "GET", "/v1/routes?crew_id=crew-1", "")
	apiErr := decode[handler.APIError](t, resp)
	if resp.StatusCode != 500 || apiErr.Code != "internal_error" {
		t.Fatalf("expected 500 internal_error, got %d %s", resp.StatusCode, apiErr.Code)
	}
	if strings.Contains(apiErr.Message, "connection refused") {
		t.Error("internal error details leaked to the client")
	}
}

func TestDeleteRoute(t *testing.T) {
	repo := newMockRouteRepo()
	_ = repo.Create(context.Background(), &domain.WorkoutRoute{ID: "r1", CrewID: "crew-1", Name: "Loop"})
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(repo, nil, nil)
	}))

	resp := doJSON(t, app, "DELETE", "/v1/routes/r1", "")
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = doJSON(t, app, "GET", "/v1/routes/r1", "")
	expectError(t, resp, 404, "not_found")
}

func TestLegacySaveRoute_IsDeprecated(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{"name":"Old client","meeting_location_id":"loc-1",
		"warmup_location":{"lat":0,"lon":0},"chilldown_location":{"lat":0,"lon":0.001},
		"legs":[{"leg_number":1,"distance":111,"polyline":[{"lat":0,"lon":0},{"lat":0,"lon":0.001}]}],
		"stops":[],"distance":111}`
	resp := doJSON(t, app, "POST", "/v1/crews/crew-1/routes", body)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header")
	}
	if resp.Header.Get("Sunset") == "" {
		t.Error("expected Sunset header")
	}
	if !strings.Contains(resp.Header.Get("Link"), "successor-version") {
		t.Errorf("expected successor link, got %q", resp.Header.Get("Link"))
	}

	resp = doJSON(t, app, "POST", "/v1/crews/crew-1/routes", `{"name":"No legs"}`)
	expectError(t, resp, 422, "incomplete_route")

	forged := `{"name":"Forged","meeting_location_id":"loc-1",
		"warmup_location":{"lat":0,"lon":0},"chilldown_location":{"lat":0,"lon":0.001},
		"legs":[{"leg_number":7,"distance":10,"polyline":[]},{"leg_number":7,"distance":5,"polyline":[{"lat":0,"lon":0.001}]}],
		"stops":[],"distance":999999}`
	resp = doJSON(t, app, "POST", "/v1/crews/crew-1/routes", forged)
	expectError(t, resp, 400, "bad_request")
}

// ---- System tests ----

func TestDocs_DescribeTheService(t *testing.T) {
	app := setupApp(makeDeps())

	resp := doJSON(t, app, "GET", "/docs", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	page := string(readBody(t, resp.Body))
	for _, want := range []string{"<title>HIIT Route API - Swagger UI</title>", "v1.0.0", "split into legs by HIIT stops", "/ws", "/graphql"} {
		if !strings.Contains(page, want) {
			t.Errorf("docs page is missing %q", want)
		}
	}

	// Served from the binary, independent of the working directory.
	resp = doJSON(t, app, "GET", "/docs/openapi.yaml", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(string(readBody(t, resp.Body)), "openapi: 3.0.3") {
		t.Error("expected the OpenAPI document")
	}
}

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps())
	resp := doJSON(t, app, "GET", "/v1/health", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	json.Unmarshal(readBody(t, resp.Body), &body)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %q", body["status"])
	}
}

func TestReady_NoDB(t *testing.T) {
	app := setupApp(makeDeps())
	resp := doJSON(t, app, "GET", "/v1/ready", "")
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503 without a database, got %d", resp.StatusCode)
	}
}

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps())
	resp := doJSON(t, app, "GET", "/v1/health", "")
	if v := resp.Header.Get("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected a request id")
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps())

	resp := doJSON(t, app, "GET", "/v1/meeting-locations/loc-1", "")
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag")
	}

	req := httptest.NewRequest("GET", "/v1/meeting-locations/loc-1", nil)
	req.Header.Set("If-None-Match", `W/"other", `+etag)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestGraphQL_SessionLifecycle(t *testing.T) {
	app := setupApp(makeDeps())

	gql := func(query string) map[string]interface{} {
		t.Helper()
		body, _ := json.Marshal(map[string]string{"query": query})
		resp := doJSON(t, app, "POST", "/graphql", string(body))
		if resp.StatusCode != 200 {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var result struct {
			Data   map[string]interface{} `json:"data"`
			Errors []interface{}          `json:"errors"`
		}
		if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
			t.Fatal(err)
		}
		if len(result.Errors) > 0 {
			t.Fatalf("graphql errors: %v", result.Errors)
		}
		return result.Data
	}

	data := gql(`mutation { startSession(crew_id: "crew-1", meeting_location_id: "loc-1") { id version } }`)
	id := data["startSession"].(map[string]interface{})["id"].(string)

	gql(fmt.Sprintf(`mutation { addPoint(id: %q, lat: 0, lon: 0) { version } }`, id))
	gql(fmt.Sprintf(`mutation { addPoint(id: %q, lat: 0, lon: 0.001) { version } }`, id))
	gql(fmt.Sprintf(`mutation { markStop(id: %q) { version } }`, id))

	data = gql(fmt.Sprintf(`{ session(id: %q) { version view { phase can_finalize total_distance_meters } } }`, id))
	view := data["session"].(map[string]interface{})["view"].(map[string]interface{})
	if view["phase"] != "leg_closed" || view["can_finalize"] != true {
		t.Errorf("unexpected view %v", view)
	}
	if view["total_distance_meters"].(float64) != 111 {
		t.Errorf("expected 111 m, got %v", view["total_distance_meters"])
	}

	data = gql(fmt.Sprintf(`mutation { finalize(id: %q, name: "Loop") { id name legs { leg_number encoded_polyline } } }`, id))
	route := data["finalize"].(map[string]interface{})
	if route["name"] != "Loop" {
		t.Errorf("expected Loop, got %v", route["name"])
	}

	data = gql(`{ routes(crew_id: "crew-1") { id name } meetingLocations(crew_id: "crew-1") { name } }`)
	if routes := data["routes"].([]interface{}); len(routes) != 1 {
		t.Errorf("expected 1 route, got %d", len(routes))
	}
}

func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(handler.AccessLogMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.ErrTeapot })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusTeapot {
		t.Errorf("expected 418, got %d", resp.StatusCode)
	}
}
