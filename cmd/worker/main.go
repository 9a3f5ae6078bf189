package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/hiitroute/internal/adapters/export"
	natsadapter "github.com/samirrijal/hiitroute/internal/adapters/nats"
	"github.com/samirrijal/hiitroute/internal/adapters/objectstore"
	"github.com/samirrijal/hiitroute/internal/adapters/postgres"
	"github.com/samirrijal/hiitroute/internal/adapters/valkey"
	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/core/ports"
	"github.com/samirrijal/hiitroute/internal/core/usecases"
	"github.com/samirrijal/hiitroute/internal/pkg/config"
	"github.com/samirrijal/hiitroute/internal/pkg/logging"
	"github.com/samirrijal/hiitroute/internal/workflows"
)

func main() {
	cfg, err := config.Load("hiitroute-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, cache warming disabled", "error", err)
	} else {
		cache = vc
		defer vc.Close()
	}

	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, routes.saved will not be published", "error", err)
	} else {
		publisher = pub
		defer pub.Close()
	}

	routeSvc := usecases.NewRouteService(postgres.NewWorkoutRouteRepo(db), cache, publisher)

	activities := &workflows.RouteActivities{Routes: routeSvc}
	if cfg.Storage.Enabled {
		store, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			log.Fatalf("object storage: %v", err)
		}
		// The worker never renders session views.
		activities.Exports = usecases.NewExportService(routeSvc, nil, export.GPX{}, export.GeoJSON{}, store)
	}

	// Warm the route cache whenever any replica saves a route.
	if cache != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.NATS.Durable)
		if err != nil {
			slog.Warn("nats subscriber unavailable, cache warming disabled", "error", err)
		} else {
			defer sub.Close()
			err = sub.SubscribeRouteSaved(ctx, func(ctx context.Context, event *domain.RouteSavedEvent) error {
				return routeSvc.Warm(ctx, event.RouteID)
			})
			if err != nil {
				slog.Warn("subscribe routes.saved failed", "error", err)
			}
		}
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.SaveRouteWorkflow)
	w.RegisterActivity(activities)

	slog.Info("route worker started", "task_queue", cfg.Temporal.TaskQueue, "gpx_storage", cfg.Storage.Enabled)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
