// @title Wiki Quiz API
// @version 1.0
// @description Generates multiple-choice quizzes from English Wikipedia articles.
// @contact.name API Support
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8000
// @BasePath /api
// @schemes http https
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"wiki-quiz/internal/adapter"
	"wiki-quiz/internal/adapter/llm"
	"wiki-quiz/internal/adapter/quizgen"
	"wiki-quiz/internal/adapter/wikipedia"
	"wiki-quiz/internal/cache"
	"wiki-quiz/internal/config"
	"wiki-quiz/internal/database"
	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/handler"
	"wiki-quiz/internal/logger"
	"wiki-quiz/internal/metrics"
	"wiki-quiz/internal/middleware"
	"wiki-quiz/internal/repository"
	"wiki-quiz/internal/service"
	"wiki-quiz/internal/validation"

	_ "wiki-quiz/cmd/api/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	m := metrics.New(prometheus.DefaultRegisterer)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// Connect to database and bring the schema up to date
	db, err := database.Connect(startCtx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := database.RunMigrations(db.DB, cfg.DB.Driver, appLogger); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	quizRepository := repository.NewQuizDatabaseAdapter(db)
	txManager := repository.NewTransactionManagerAdapter(db, appLogger)

	// The preferred model is shared through Redis when one is configured.
	var preference domain.ModelPreference = quizgen.NewMemoryModelPreference()
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(startCtx, cfg.Redis)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		preference = adapter.NewRedisModelPreference(adapter.NewRedisStore(redisClient))
		appLogger.Info("Model preference stored in Redis", zap.String("address", cfg.Redis.Address))
	}

	factory, err := llm.NewFactory(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		ServerURL:   cfg.LLM.ServerURL,
		Temperature: cfg.LLM.Temperature,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to configure model provider", zap.Error(err))
	}

	parser, err := quizgen.NewParser(quizgen.ParserConfig{
		StrictValidation: cfg.Quiz.StrictValidation,
	}, appLogger, m)
	if err != nil {
		appLogger.Fatal("Failed to create response parser", zap.Error(err))
	}
	appLogger.Info("Response parser ready", zap.Stringer("mode", parser.Mode()))

	generator, err := quizgen.NewGenerator(quizgen.GeneratorConfig{
		Candidates:     cfg.LLM.ModelCandidates,
		PreferredModel: cfg.LLM.PreferredModel,
		Timeout:        cfg.LLM.Timeout,
	}, factory, parser, preference, appLogger, m)
	if err != nil {
		appLogger.Fatal("Failed to create quiz generator", zap.Error(err))
	}

	fetcher := wikipedia.NewFetcher(wikipedia.Config{
		SummaryBaseURL: cfg.Wikipedia.SummaryBaseURL,
		UserAgent:      cfg.Wikipedia.UserAgent,
		SummaryTimeout: cfg.Wikipedia.SummaryTimeout,
		PageTimeout:    cfg.Wikipedia.PageTimeout,
		MinExtractLen:  cfg.Wikipedia.MinExtractLen,
	}, appLogger, m)

	quizService := service.NewQuizService(fetcher, generator, quizRepository, txManager, appLogger)
	quizHandler := handler.NewQuizHandler(quizService, validation.NewValidator())

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(m))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept," + middleware.RequestIDHeader,
		MaxAge:       300,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/swagger/*", swagger.HandlerDefault)

	quizHandler.Mount(app)

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
