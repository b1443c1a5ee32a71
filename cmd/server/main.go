package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/repurposehq/repurpose/internal/ai"
	"github.com/repurposehq/repurpose/internal/config"
	"github.com/repurposehq/repurpose/internal/content"
	"github.com/repurposehq/repurpose/internal/database"
	"github.com/repurposehq/repurpose/internal/health"
	"github.com/repurposehq/repurpose/internal/pipeline"
	"github.com/repurposehq/repurpose/internal/publish"
	"github.com/repurposehq/repurpose/internal/scheduling"
	"github.com/repurposehq/repurpose/internal/source"
	"github.com/repurposehq/repurpose/internal/transcribe"
	"github.com/repurposehq/repurpose/internal/worker"
)

func main() {
	// Real environment variables take precedence over .env entries; a
	// missing file is fine.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	logger := worker.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	if cfg.Env == "development" {
		if err := database.SeedDevData(db); err != nil {
			logger.Warn("Failed to seed dev data", "error", err)
		}
	}

	if err := worker.InitClient(cfg.RedisURL); err != nil {
		logger.Error("Failed to init task client", "error", err)
		os.Exit(1)
	}
	defer worker.CloseClient()

	provider, err := ai.NewProvider(cfg)
	if err != nil {
		logger.Error("Failed to build AI provider", "error", err)
		os.Exit(1)
	}

	var cache source.TranscriptCache
	redisCache, err := source.NewRedisTranscriptCache(cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		logger.Warn("Transcript cache disabled", "error", err)
	} else {
		cache = redisCache
		defer redisCache.Close()
	}

	resolver := source.NewResolver(
		source.NewYouTubeClient(),
		source.NewYtDlpMetadataFetcher(cfg.YtDlpPath),
		cache,
		logger,
	)

	processor := pipeline.NewProcessor(db, resolver, provider, worker.EnqueueTranscribeAudio, logger)
	transcriber := transcribe.NewWhisperTranscriber(cfg.OpenAIAPIKey, cfg.YtDlpPath, "")
	publisher := publish.NewStubPublisher(logger)
	allocator := scheduling.NewAllocator(db, logger)

	stopWorker, err := worker.Start(cfg, worker.Deps{
		DB:          db,
		Processor:   processor,
		Transcriber: transcriber,
		Publisher:   publisher,
	})
	if err != nil {
		logger.Error("Failed to start worker", "error", err)
		os.Exit(1)
	}
	defer stopWorker()

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer stopScheduler()

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.GET("/health", gin.WrapF(health.Handler))

	handlers := content.NewHandlers(db, resolver, allocator, publisher,
		worker.EnqueueGenerateContent, worker.EnqueueTranscribeAudio)
	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "ai_provider", cfg.AIProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
}
