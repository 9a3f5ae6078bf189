package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"github.com/samirrijal/hiitroute/internal/adapters/export"
	"github.com/samirrijal/hiitroute/internal/adapters/http"
	"github.com/samirrijal/hiitroute/internal/adapters/memory"
	natsadapter "github.com/samirrijal/hiitroute/internal/adapters/nats"
	"github.com/samirrijal/hiitroute/internal/adapters/objectstore"
	"github.com/samirrijal/hiitroute/internal/adapters/postgres"
	"github.com/samirrijal/hiitroute/internal/adapters/valkey"
	"github.com/samirrijal/hiitroute/internal/core/ports"
	"github.com/samirrijal/hiitroute/internal/core/usecases"
	"github.com/samirrijal/hiitroute/internal/pkg/config"
	"github.com/samirrijal/hiitroute/internal/pkg/logging"
	"github.com/samirrijal/hiitroute/internal/pkg/telemetry"
	"github.com/samirrijal/hiitroute/internal/workflows"
)

func main() {
	cfg, err := config.Load("hiitroute-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	var cache ports.CacheService
	valkeyCache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		valkeyCache = nil
	} else {
		cache = valkeyCache
		defer valkeyCache.Close()
	}

	// NATS: one connection for publishing and for the WebSocket relay
	var publisher ports.EventPublisher
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
		natsConn = nil
	} else {
		defer natsConn.Close()
		pub, err := natsadapter.NewPublisherFromConn(natsConn)
		if err != nil {
			slog.Warn("jetstream unavailable, events disabled", "error", err)
		} else {
			publisher = pub
		}
	}

	// Session store
	var sessions ports.SessionStore
	if cfg.Sessions.Store == "valkey" && valkeyCache != nil {
		sessions = valkey.NewSessionStore(valkeyCache.Client(), cfg.Sessions.TTL())
	} else {
		if cfg.Sessions.Store == "valkey" {
			slog.Warn("falling back to in-memory sessions; they will not survive a restart or be shared across replicas")
		}
		mem := memory.NewSessionStore(cfg.Sessions.TTL())
		go mem.RunJanitor(ctx, time.Minute)
		sessions = mem
	}

	// Object storage
	var artifacts ports.ArtifactStore
	var store *objectstore.Store
	if cfg.Storage.Enabled {
		store, err = objectstore.New(ctx, objectstore.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			slog.Warn("object storage unavailable, gpx rendered on demand", "error", err)
			store = nil
		} else {
			artifacts = store
		}
	}

	// Repos
	routeRepo := postgres.NewWorkoutRouteRepo(db)
	locationRepo := postgres.NewMeetingLocationRepo(db)

	// Use cases
	routeSvc := usecases.NewRouteService(routeRepo, cache, publisher)

	var saver ports.RouteSaver = routeSvc
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    tlog.NewStructuredLogger(slog.Default()),
		})
		if err != nil {
			log.Fatalf("temporal client: %v", err)
		}
		defer tc.Close()
		saver = workflows.NewTemporalSaver(tc, cfg.Temporal.TaskQueue)
		slog.Info("routes are saved through temporal", "task_queue", cfg.Temporal.TaskQueue)
	}

	deps := &http.Dependencies{
		Sessions:  usecases.NewSessionService(sessions, locationRepo, saver, publisher),
		Routes:    routeSvc,
		Locations: usecases.NewMeetingLocationService(locationRepo),
		Exports:   usecases.NewExportService(routeSvc, sessions, export.GPX{}, export.GeoJSON{}, artifacts),
		Saver:     saver,
		NATS:      natsConn,
		DB:        db,
		Cache:     valkeyCache,
		Artifacts: store,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "HIIT Route API",
	})

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
