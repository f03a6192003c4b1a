package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/nerus-go-api/internal/cache"
	"github.com/noah-isme/nerus-go-api/internal/config"
	"github.com/noah-isme/nerus-go-api/internal/database"
	"github.com/noah-isme/nerus-go-api/internal/handler"
	"github.com/noah-isme/nerus-go-api/internal/middleware"
	"github.com/noah-isme/nerus-go-api/internal/repository"
	"github.com/noah-isme/nerus-go-api/internal/router"
	"github.com/noah-isme/nerus-go-api/internal/service"
	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.AI.CacheBackend == cache.BackendRedis {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	resultCache, err := cache.New(cfg.AI.CacheBackend, redisClient, cache.Options{
		TTL:     cfg.AI.CacheTTL,
		Enabled: cfg.AI.EnableCache,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create analysis cache: %v", err)
	}

	registry := ai.NewRegistry(
		ai.NewGeminiProvider(providerConfig(cfg.AI.Gemini, cfg.AI.Timeout, logger)),
		ai.NewGroqProvider(providerConfig(cfg.AI.Groq, cfg.AI.Timeout, logger)),
		ai.NewOpenAIProvider(providerConfig(cfg.AI.OpenAI, cfg.AI.Timeout, logger)),
		ai.NewAnthropicProvider(providerConfig(cfg.AI.Anthropic, cfg.AI.Timeout, logger)),
	)
	orchestrator := ai.NewOrchestrator(registry, ai.OrchestratorConfig{
		Primary:        cfg.AI.Provider,
		Secondary:      cfg.AI.FallbackProvider,
		AttemptTimeout: cfg.AI.Timeout,
		Logger:         logger,
	})

	analysisService := service.NewAnalysisService(orchestrator, resultCache, service.AnalysisServiceConfig{
		DedupeInFlight: cfg.AI.DedupeInFlight,
	}, logger)

	health := analysisService.Health()
	logger.Info().
		Str("primary", health.Primary).
		Bool("primary_available", health.PrimaryAvailable).
		Str("fallback", health.Fallback).
		Int("available_providers", health.TotalAvailable).
		Str("cache_backend", cfg.AI.CacheBackend).
		Int("max_retries", cfg.AI.MaxRetries).
		Msg("analysis core initialised")

	notifier := service.ReviewNotifier(service.NewLogReviewNotifier(logger))
	if cfg.NATSURL != "" {
		conn, err := service.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Drain()
		notifier = service.NewNATSReviewNotifier(conn, cfg.NATSSubject, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	problemRepo := repository.NewProblemRepository(db)
	solutionRepo := repository.NewSolutionRepository(db)

	solutionService := service.NewSolutionService(problemRepo, solutionRepo, analysisService, notifier, validate, logger)

	solutionHandler := handler.NewSolutionHandler(solutionService, logger)
	aiAdminHandler := handler.NewAIAdminHandler(analysisService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    2 * service.MaxSolutionFileBytes,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.AllowOrigins,
		AccessLog:    cfg.AccessLog,
	})
	router.Register(app, cfg, router.Dependencies{
		SolutionHandler: solutionHandler,
		AIAdminHandler:  aiAdminHandler,
		Analysis:        analysisService,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
		SubmitLimiter:   middleware.RateLimit("solutions", cfg.AI.RateLimitPerMinute, time.Minute),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func providerConfig(settings config.ProviderSettings, timeout time.Duration, logger zerolog.Logger) ai.ProviderConfig {
	return ai.ProviderConfig{
		APIKey:  settings.APIKey,
		Model:   settings.Model,
		Timeout: timeout,
		Logger:  logger,
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
