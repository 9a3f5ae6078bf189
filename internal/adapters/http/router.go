package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/hiitroute/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(recover.New())

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(cors.New(cors.Config{
		AllowMethods:  "GET,POST,DELETE,OPTIONS",
		ExposeHeaders: "Link,ETag,Location,Deprecation,Sunset",
	}))

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Drawing a route posts one point per tap, so the limit is generous.
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited",
				"too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware(legacyRoutes))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	v1.Post("/meeting-locations", withTimeout(CreateMeetingLocationHandler(deps)))
	v1.Get("/meeting-locations", withTimeout(ListMeetingLocationsHandler(deps)))
	v1.Get("/meeting-locations/:id", withTimeout(GetMeetingLocationHandler(deps)))

	v1.Post("/sessions", withTimeout(StartSessionHandler(deps)))
	v1.Get("/sessions/:id", withTimeout(GetSessionHandler(deps)))
	v1.Get("/sessions/:id/geojson", withTimeout(SessionGeoJSONHandler(deps)))
	v1.Post("/sessions/:id/points", withTimeout(AddPointHandler(deps)))
	v1.Post("/sessions/:id/stop", withTimeout(MarkStopHandler(deps)))
	v1.Post("/sessions/:id/undo", withTimeout(UndoHandler(deps)))
	v1.Post("/sessions/:id/reset", withTimeout(ResetHandler(deps)))
	v1.Post("/sessions/:id/finalize", withTimeout(FinalizeSessionHandler(deps)))
	v1.Delete("/sessions/:id", withTimeout(DiscardSessionHandler(deps)))

	v1.Get("/routes", withTimeout(ListRoutesHandler(deps)))
	v1.Get("/routes/:id", withTimeout(GetRouteHandler(deps)))
	v1.Delete("/routes/:id", withTimeout(DeleteRouteHandler(deps)))
	v1.Get("/routes/:id/gpx", withTimeout(RouteGPXHandler(deps)))
	v1.Get("/routes/:id/geojson", withTimeout(RouteGeoJSONHandler(deps)))

	// Deprecated: clients should finalize a session instead.
	v1.Post("/crews/:crew_id/routes", withTimeout(LegacySaveRouteHandler(deps)))

	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// Live session view
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
