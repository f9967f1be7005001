package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/touristroute/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
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
	app.Get("/v1/health", HealthHandler())
	app.Get("/v1/ready", ReadyHandler(deps))

	// The backend may take up to a minute, so the budget comes from config.
	wrap := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, deps.requestTimeout())
	}

	v1 := app.Group("/v1")
	v1.Post("/route-views", wrap(RouteViewHandler(deps)))
	v1.Post("/recommendations", wrap(RouteViewHandler(deps)))
	v1.Get("/sessions/:sid/view", wrap(SessionViewHandler(deps)))
	v1.Get("/sessions/:sid/view.geojson", wrap(SessionViewGeoJSONHandler(deps)))
	v1.Get("/sessions/:sid/searches", wrap(SessionSearchesHandler(deps)))

	// Client navigation state
	v1.Get("/state/:key", wrap(GetStateHandler(deps)))
	v1.Put("/state/:key", wrap(PutStateHandler(deps)))
	v1.Delete("/state/:key", wrap(DeleteStateHandler(deps)))

	// Auth
	v1.Post("/auth/login", wrap(LoginHandler(deps)))
	v1.Post("/auth/register", wrap(RegisterHandler(deps)))
	v1.Get("/auth/me", RequireAuth(deps), MeHandler())

	// GraphQL
	app.Post("/graphql", wrap(GraphQLHandler(deps)))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.openAPIPath())

	// WebSocket view feed
	if deps.Feed != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.Feed)))
	}
}
