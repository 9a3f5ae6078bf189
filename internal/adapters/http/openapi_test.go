package http_test

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/samirrijal/hiitroute/api"
)

// TestOpenAPIDocument validates the embedded OpenAPI document.
func TestOpenAPIDocument(t *testing.T) {
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(api.OpenAPI)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI doc: %v", err)
	}

	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI doc validation failed: %v", err)
	}

	expectedPaths := []string{
		"/v1/health",
		"/v1/ready",
		"/v1/meeting-locations",
		"/v1/meeting-locations/{id}",
		"/v1/sessions",
		"/v1/sessions/{id}",
		"/v1/sessions/{id}/geojson",
		"/v1/sessions/{id}/points",
		"/v1/sessions/{id}/stop",
		"/v1/sessions/{id}/undo",
		"/v1/sessions/{id}/reset",
		"/v1/sessions/{id}/finalize",
		"/v1/routes",
		"/v1/routes/{id}",
		"/v1/routes/{id}/gpx",
		"/v1/routes/{id}/geojson",
		"/v1/crews/{crew_id}/routes",
		"/graphql",
	}

	for _, path := range expectedPaths {
		if item := doc.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found in document", path)
		}
	}

	expectedSchemas := []string{
		"GeoPoint",
		"MeetingLocation",
		"Session",
		"RouteView",
		"Marker",
		"Polyline",
		"Leg",
		"RoutePayload",
		"WorkoutRoute",
		"APIError",
		"Pagination",
	}

	for _, schema := range expectedSchemas {
		if doc.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}

	if legacy := doc.Paths.Find("/v1/crews/{crew_id}/routes"); legacy != nil && !legacy.Post.Deprecated {
		t.Error("expected the crew route upload to be marked deprecated")
	}

	t.Logf("OpenAPI doc valid: %d paths, %d schemas", len(doc.Paths.Map()), len(doc.Components.Schemas))
}

// TestOpenAPIInfo verifies document metadata.
func TestOpenAPIInfo(t *testing.T) {
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(api.OpenAPI)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI doc: %v", err)
	}

	if doc.Info.Title != "HIIT Route API" {
		t.Errorf("expected title 'HIIT Route API', got %q", doc.Info.Title)
	}

	if doc.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", doc.Info.Version)
	}

	if doc.Info.Description == "" {
		t.Error("expected non-empty description")
	}

	if len(doc.Servers) == 0 {
		t.Error("expected at least one server")
	}

	t.Logf("OpenAPI Info: %s v%s @ %s", doc.Info.Title, doc.Info.Version, doc.Servers[0].URL)
}
