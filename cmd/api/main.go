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
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/touristroute/internal/adapters/backend"
	"github.com/samirrijal/touristroute/internal/adapters/http"
	natsadapter "github.com/samirrijal/touristroute/internal/adapters/nats"
	"github.com/samirrijal/touristroute/internal/adapters/postgres"
	"github.com/samirrijal/touristroute/internal/adapters/valkey"
	"github.com/samirrijal/touristroute/internal/core/domain"
	"github.com/samirrijal/touristroute/internal/core/ports"
	"github.com/samirrijal/touristroute/internal/core/usecases"
	"github.com/samirrijal/touristroute/internal/core/viewmodel"
	"github.com/samirrijal/touristroute/internal/pkg/config"
	"github.com/samirrijal/touristroute/internal/pkg/logging"
	"github.com/samirrijal/touristroute/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("touristroute-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format, "touristroute-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache
	var responseCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		responseCache = cache
	}

	// NATS
	var (
		publisher ports.EventPublisher
		feed      http.ViewFeed
	)
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
		pub = nil
	} else {
		defer pub.Close()
		publisher = pub
	}

	// WebSocket relay shares the publisher's connection when there is one
	var natsConn *nats.Conn
	if pub != nil {
		natsConn = pub.Conn()
	} else if conn, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer conn.Close()
		natsConn = conn
	}
	if natsConn != nil {
		feed = natsadapter.NewSubscriber(natsConn)
	}

	// Backend
	order, err := domain.ParseCoordinateOrder(cfg.Backend.CoordinateOrder)
	if err != nil {
		log.Fatalf("backend: %v", err)
	}
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.TimeoutDuration(), order)

	// Repos
	stateRepo := postgres.NewStateRepo(db)
	searchRepo := postgres.NewSearchRepo(db)

	var store ports.StateStore = stateRepo
	if cfg.State.Backend == "valkey" {
		if cache == nil {
			log.Fatalf("state backend valkey requires a reachable valkey at %s", cfg.Valkey.Addr)
		}
		store = valkey.NewStateStore(cache, cfg.State.TTL)
	}

	// Use cases
	planner := usecases.NewPlannerService(client,
		viewmodel.NewDeriver(cfg.View.FallbackCenter()), store, searchRepo, responseCache, publisher)
	planner.SetCacheTTL(cfg.Cache.TTL)

	deps := &http.Dependencies{
		Planner:        planner,
		State:          usecases.NewStateService(store, cfg.State.MaxBlobBytes),
		History:        usecases.NewHistoryService(searchRepo, stateRepo),
		Auth:           usecases.NewAuthService(client, cfg.Auth.JWTSecret, cfg.Auth.TokenTTLDuration()),
		Feed:           feed,
		NATS:           natsConn,
		DB:             db,
		Cache:          cache,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "TouristRoute API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, http://localhost:8081",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Session-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "backend", cfg.Backend.BaseURL)
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
