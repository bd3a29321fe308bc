package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/brahimariani/geant4-api/internal/bus"
	"github.com/brahimariani/geant4-api/internal/config"
	"github.com/brahimariani/geant4-api/internal/engine"
	"github.com/brahimariani/geant4-api/internal/handler"
	"github.com/brahimariani/geant4-api/internal/middleware"
	"github.com/brahimariani/geant4-api/internal/model"
	"github.com/brahimariani/geant4-api/internal/results"
	"github.com/brahimariani/geant4-api/internal/store"
	"github.com/brahimariani/geant4-api/internal/worker"
	ws "github.com/brahimariani/geant4-api/internal/websocket"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection. Without Redis, simulations run in-process
	// instead of through the task queue.
	ctx := context.Background()
	redisAvailable := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available, running simulations in-process: %v", err)
		redisAvailable = false
	}

	// Initialize validator
	validate := validator.New()

	// Initialize event bus and result collector
	eventBus := bus.New()
	collector, err := results.NewCollector(cfg.Simulation.ResultsPath)
	if err != nil {
		log.Fatalf("Failed to prepare results directory: %v", err)
	}

	// Initialize simulation engine
	eng := engine.New(engine.Config{
		ResultsPath:    cfg.Simulation.ResultsPath,
		WorkPath:       cfg.Simulation.WorkPath,
		InstallPath:    cfg.Geant4.InstallPath,
		DataPath:       cfg.Geant4.DataPath,
		ExecutablePath: cfg.Geant4.ExecutablePath,
		BatchDelay:     time.Duration(cfg.Simulation.BatchDelayMS) * time.Millisecond,
	}, eventBus, collector)

	// Pick the dispatcher: asynq when Redis is reachable, otherwise run
	// simulations directly in this process.
	if redisAvailable {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()
		eng.SetDispatcher(engine.NewAsynqDispatcher(asynqClient))

		// Start Asynq worker server
		go startWorkerServer(cfg, eng)
	} else {
		direct := engine.NewDirectDispatcher(cfg.Simulation.MaxConcurrent)
		direct.Bind(eng)
		eng.SetDispatcher(direct)
	}

	// Initialize configuration stores
	geometryStore := store.NewGeometryStore()
	physicsStore := store.NewPhysicsStore()
	sourceStore := store.NewSourceStore()

	// Initialize WebSocket manager
	manager := ws.NewManager(eng, eventBus)

	// Initialize handlers
	simulationHandler := handler.NewSimulationHandler(eng, geometryStore, physicsStore, sourceStore, validate)
	geometryHandler := handler.NewGeometryHandler(geometryStore, validate)
	physicsHandler := handler.NewPhysicsHandler(physicsStore, validate)
	sourceHandler := handler.NewSourceHandler(sourceStore, validate)
	engineHandler := handler.NewEngineHandler(eng, validate)
	resultsHandler := handler.NewResultsHandler(eng, collector)
	eventHandler := handler.NewEventHandler(eventBus, manager)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.Enabled, cfg.Auth.JWTSecret, cfg.Auth.Expiration)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "geant4-api",
			"time":    time.Now().UTC(),
		})
	})

	// API routes
	api := app.Group("/api/v1", authMiddleware.Authenticate())

	// Simulation routes
	simulations := api.Group("/simulations")
	simulations.Get("/", simulationHandler.List)
	simulations.Post("/", rateLimiter.CreateLimit(cfg.RateLimit.CreatePerMin), simulationHandler.Create)
	simulations.Post("/quick-start/:template", rateLimiter.CreateLimit(cfg.RateLimit.CreatePerMin), simulationHandler.QuickStart)
	simulations.Get("/:id", simulationHandler.Get)
	simulations.Delete("/:id", simulationHandler.Delete)
	simulations.Post("/:id/start", rateLimiter.ControlLimit(cfg.RateLimit.ControlPerMin), simulationHandler.Start)
	simulations.Post("/:id/pause", rateLimiter.ControlLimit(cfg.RateLimit.ControlPerMin), simulationHandler.Pause)
	simulations.Post("/:id/resume", rateLimiter.ControlLimit(cfg.RateLimit.ControlPerMin), simulationHandler.Resume)
	simulations.Post("/:id/cancel", rateLimiter.ControlLimit(cfg.RateLimit.ControlPerMin), simulationHandler.Cancel)
	simulations.Get("/:id/progress", simulationHandler.Progress)

	// Geometry routes
	geometries := api.Group("/geometries")
	geometries.Get("/", geometryHandler.List)
	geometries.Get("/templates", geometryHandler.Templates)
	geometries.Get("/templates/:name", geometryHandler.Template)
	geometries.Get("/materials", geometryHandler.Materials)
	geometries.Post("/", rateLimiter.CreateLimit(cfg.RateLimit.CreatePerMin), geometryHandler.Create)
	geometries.Post("/validate", geometryHandler.Validate)
	geometries.Get("/:id", geometryHandler.Get)
	geometries.Delete("/:id", geometryHandler.Delete)
	geometries.Post("/:id/validate", geometryHandler.ValidateSaved)
	geometries.Get("/:id/gdml", geometryHandler.ExportGDML)
	geometries.Post("/:id/copy", geometryHandler.Copy)

	// Physics routes
	physics := api.Group("/physics")
	physics.Get("/", physicsHandler.List)
	physics.Get("/templates", physicsHandler.Templates)
	physics.Get("/templates/:name", physicsHandler.Template)
	physics.Get("/physics-lists", physicsHandler.PhysicsLists)
	physics.Get("/physics-lists/:name", physicsHandler.PhysicsListInfo)
	physics.Get("/em-options", physicsHandler.EMOptions)
	physics.Post("/recommend", physicsHandler.Recommend)
	physics.Post("/", rateLimiter.CreateLimit(cfg.RateLimit.CreatePerMin), physicsHandler.Create)
	physics.Post("/validate", physicsHandler.Validate)
	physics.Get("/:id", physicsHandler.Get)
	physics.Delete("/:id", physicsHandler.Delete)
	physics.Post("/:id/validate", physicsHandler.ValidateSaved)
	physics.Get("/:id/macro", physicsHandler.Macro)

	// Particle source routes
	sources := api.Group("/sources")
	sources.Get("/", sourceHandler.List)
	sources.Get("/templates", sourceHandler.Templates)
	sources.Get("/templates/:name", sourceHandler.Template)
	sources.Get("/particles", sourceHandler.Particles)
	sources.Get("/particles/:name", sourceHandler.ParticleInfo)
	sources.Get("/energy-distributions", sourceHandler.EnergyDistributions)
	sources.Get("/angular-distributions", sourceHandler.AngularDistributions)
	sources.Get("/position-distributions", sourceHandler.PositionDistributions)
	sources.Post("/", rateLimiter.CreateLimit(cfg.RateLimit.CreatePerMin), sourceHandler.Create)
	sources.Post("/validate", sourceHandler.Validate)
	sources.Get("/:id", sourceHandler.Get)
	sources.Delete("/:id", sourceHandler.Delete)
	sources.Post("/:id/validate", sourceHandler.ValidateSaved)
	sources.Get("/:id/gps", sourceHandler.GPS)

	// Geant4 installation routes
	geant4 := api.Group("/geant4")
	geant4.Get("/status", engineHandler.Status)
	geant4.Post("/configure", engineHandler.Configure)
	geant4.Get("/verify", engineHandler.Verify)
	geant4.Get("/environment", engineHandler.Environment)
	geant4.Get("/build-instructions", engineHandler.BuildInstructions)

	// Result routes
	resultsGroup := api.Group("/results")
	resultsGroup.Get("/", resultsHandler.List)
	resultsGroup.Get("/:id", resultsHandler.Get)
	resultsGroup.Delete("/:id", resultsHandler.Delete)
	resultsGroup.Get("/:id/summary", resultsHandler.Summary)
	resultsGroup.Get("/:id/detectors", resultsHandler.Detectors)
	resultsGroup.Get("/:id/hits", resultsHandler.Hits)
	resultsGroup.Get("/:id/analysis", resultsHandler.Analysis)
	resultsGroup.Get("/:id/histogram/:name", resultsHandler.Histogram)
	resultsGroup.Get("/:id/export/json", resultsHandler.ExportJSON)
	resultsGroup.Get("/:id/export/csv", resultsHandler.ExportCSV)
	resultsGroup.Get("/:id/live", resultsHandler.Live)

	// Event history routes
	events := api.Group("/events")
	events.Get("/:id/history", eventHandler.History)
	events.Delete("/:id/history", eventHandler.ClearHistory)

	// WebSocket connection stats
	app.Get("/ws/connections", eventHandler.Connections)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/simulations/:id", websocket.New(func(c *websocket.Conn) {
		simulationID := c.Params("id")
		opts := model.StreamOptions{
			IncludeHits:         c.Query("include_hits") == "true",
			IncludeTrajectories: c.Query("include_trajectories") == "true",
		}
		manager.HandleSimulation(c, simulationID, opts)
	}))

	app.Get("/ws/all", websocket.New(func(c *websocket.Conn) {
		manager.HandleMonitor(c)
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, eng *engine.Engine) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Simulation.MaxConcurrent,
			Queues: map[string]int{
				engine.QueueSimulations: 10,
			},
		},
	)

	simulationWorker := worker.NewSimulationWorker(eng)

	mux := asynq.NewServeMux()
	mux.HandleFunc(engine.TaskTypeRun, simulationWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
