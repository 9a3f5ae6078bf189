// Command importer saves a GPX track as a workout route. Each track segment
// becomes one leg.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/samirrijal/hiitroute/internal/adapters/export"
	"github.com/samirrijal/hiitroute/internal/adapters/postgres"
	"github.com/samirrijal/hiitroute/internal/core/routebuilder"
	"github.com/samirrijal/hiitroute/internal/core/usecases"
	"github.com/samirrijal/hiitroute/internal/pkg/config"
	"github.com/samirrijal/hiitroute/internal/pkg/logging"
)

func main() {
	crewID := pflag.String("crew", "", "crew that owns the route (required)")
	meetingID := pflag.String("meeting-location", "", "meeting location ID (required)")
	name := pflag.String("name", "", "route name; defaults to the GPX name")
	pflag.Parse()

	if pflag.NArg() != 1 || *crewID == "" || *meetingID == "" {
		log.Fatal("usage: importer --crew <id> --meeting-location <id> [--name <name>] <file.gpx>")
	}

	cfg, err := config.Load("hiitroute-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	f, err := os.Open(pflag.Arg(0))
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer f.Close()

	track, err := export.ReadGPX(f)
	if err != nil {
		log.Fatalf("gpx: %v", err)
	}
	if *name == "" {
		*name = track.Name
	}

	route, err := buildRoute(track)
	if err != nil {
		log.Fatalf("build route: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	locations := usecases.NewMeetingLocationService(postgres.NewMeetingLocationRepo(db))
	loc, err := locations.GetByID(ctx, *meetingID)
	if err != nil {
		log.Fatalf("meeting location %s: %v", *meetingID, err)
	}
	if loc.CrewID != *crewID {
		log.Fatalf("meeting location %s belongs to crew %s", loc.ID, loc.CrewID)
	}

	payload, err := routebuilder.Finalize(route, *name, loc.ID)
	if err != nil {
		log.Fatalf("finalize: %v", err)
	}

	routes := usecases.NewRouteService(postgres.NewWorkoutRouteRepo(db), nil, nil)
	saved, err := routes.SaveRoute(ctx, *crewID, payload)
	if err != nil {
		log.Fatalf("save: %v", err)
	}

	slog.Info("route imported",
		"route_id", saved.ID,
		"name", saved.Name,
		"legs", len(saved.Legs),
		"distance_meters", saved.DistanceMeters,
	)
}
