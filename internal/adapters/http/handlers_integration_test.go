//go:build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/hiitroute/internal/adapters/export"
	"github.com/samirrijal/hiitroute/internal/adapters/http"
	"github.com/samirrijal/hiitroute/internal/adapters/memory"
	"github.com/samirrijal/hiitroute/internal/adapters/postgres"
	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/core/usecases"
	"github.com/samirrijal/hiitroute/internal/pkg/config"
	"github.com/samirrijal/hiitroute/migrations"
)

// setupTestDB connects to the database named by HIITROUTE_DATABASE_* and
// applies the migrations.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("hiitroute-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if _, err := postgres.Migrate(ctx, db, migrations.FS); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// setupTestDeps creates dependencies with real repos, no cache or events.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	routeRepo := postgres.NewWorkoutRouteRepo(db)
	locationRepo := postgres.NewMeetingLocationRepo(db)
	store := memory.NewSessionStore(time.Hour)

	routes := usecases.NewRouteService(routeRepo, nil, nil)
	return &http.Dependencies{
		Sessions:  usecases.NewSessionService(store, locationRepo, routes, nil),
		Routes:    routes,
		Locations: usecases.NewMeetingLocationService(locationRepo),
		Exports:   usecases.NewExportService(routes, store, export.GPX{}, export.GeoJSON{}, nil),
		DB:        db,
	}
}

// TestSessionFinalize_Integration draws and saves a route end to end.
func TestSessionFinalize_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	app := setupApp(setupTestDeps(t, db))
	crew := "crew-integ-" + time.Now().Format("20060102150405")

	resp := doJSON(t, app, "POST", "/v1/meeting-locations",
		`{"crew_id":"`+crew+`","name":"Abando","lat":43.2614,"lon":-2.9253}`)
	if resp.StatusCode != 201 {
		t.Fatalf("create location: expected 201, got %d", resp.StatusCode)
	}
	loc := decode[domain.MeetingLocation](t, resp)

	resp = doJSON(t, app, "POST", "/v1/sessions",
		`{"crew_id":"`+crew+`","meeting_location_id":"`+loc.ID+`"}`)
	if resp.StatusCode != 201 {
		t.Fatalf("start session: expected 201, got %d", resp.StatusCode)
	}
	id := decode[sessionBody](t, resp).ID

	addPoint(t, app, id, 43.2620, -2.9250)
	addPoint(t, app, id, 43.2630, -2.9240)
	doJSON(t, app, "POST", "/v1/sessions/"+id+"/stop", "")
	addPoint(t, app, id, 43.2640, -2.9230)
	doJSON(t, app, "POST", "/v1/sessions/"+id+"/stop", "")

	resp = doJSON(t, app, "POST", "/v1/sessions/"+id+"/finalize", `{"name":"Ria loop"}`)
	if resp.StatusCode != 201 {
		t.Fatalf("finalize: expected 201, got %d", resp.StatusCode)
	}
	saved := decode[routeBody](t, resp)

	req := httptest.NewRequest("GET", "/v1/routes?meeting_location_id="+loc.ID, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []routeBody         `json:"data"`
		Pagination struct{ Total int } `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Pagination.Total != 1 || result.Data[0].ID != saved.ID {
		t.Fatalf("expected the saved route, got %+v", result.Data)
	}
	if len(result.Data[0].Legs) != 2 {
		t.Errorf("expected 2 legs, got %d", len(result.Data[0].Legs))
	}

	resp = doJSON(t, app, "GET", "/v1/routes/"+saved.ID+"/gpx", "")
	if !strings.Contains(string(readBody(t, resp.Body)), "Ria loop") {
		t.Error("expected the route name in the gpx export")
	}
}

// TestReady_Integration checks readiness against a live database.
func TestReady_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	app := setupApp(setupTestDeps(t, db))
	resp := doJSON(t, app, "GET", "/v1/ready", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
