package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/config"
	"github.com/BerylCAtieno/docvault-api/internal/db"
	"github.com/BerylCAtieno/docvault-api/internal/embedding"
	"github.com/BerylCAtieno/docvault-api/internal/extractor"
	"github.com/BerylCAtieno/docvault-api/internal/history"
	"github.com/BerylCAtieno/docvault-api/internal/llm"
	"github.com/BerylCAtieno/docvault-api/internal/repository"
	"github.com/BerylCAtieno/docvault-api/internal/router"
	"github.com/BerylCAtieno/docvault-api/internal/services"
	"github.com/BerylCAtieno/docvault-api/internal/storage"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
	"github.com/BerylCAtieno/docvault-api/internal/vectorstore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to open database", "error", err)
	}
	defer database.Close()

	// Run migrations
	if err := db.RunMigrations(database); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	repo := repository.NewRepository(database)
	registry := extractor.NewRegistry()

	// Archival storage is optional
	var blobs storage.BlobStore
	if cfg.S3Enabled {
		s3Storage, err := storage.NewS3Storage(ctx, cfg)
		if err != nil {
			logger.Warn("S3 storage unavailable, archiving disabled", "error", err)
		} else {
			defer s3Storage.Close()
			blobs = s3Storage
		}
	}

	embedder, err := embedding.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize embedder", "error", err)
	}

	index, err := vectorstore.NewIndex(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize vector backend", "backend", cfg.VectorBackend, "error", err)
	}
	store := vectorstore.New(embedder, index)
	defer store.Close()

	var gateway llm.Gateway
	var classifier services.IntentClassifier
	if cfg.LLMEnabled() {
		openRouter := llm.NewOpenRouterGateway(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL, logger)
		gateway = openRouter
		classifier = openRouter
	} else {
		logger.Info("No OpenRouter API key set, using keyword rules and plain similarity search")
	}

	var recorder history.Recorder = history.NewMemoryRecorder(cfg.IntentHistorySize)
	if cfg.RedisAddr != "" {
		redisRecorder, err := history.NewRedisRecorder(ctx, cfg)
		if err != nil {
			logger.Warn("Redis unavailable, keeping intent history in memory", "error", err)
		} else {
			defer redisRecorder.Close()
			recorder = redisRecorder
		}
	}

	vectorizer := services.NewVectorizer(repo, registry, blobs, store, cfg, logger)

	// Uploads in quick succession share one run
	var uploadTrigger services.RunStarter = vectorizer
	var coalescer *services.CoalescingStarter
	if cfg.RunTriggerDelay > 0 {
		coalescer = services.NewCoalescingStarter(vectorizer, cfg.RunTriggerDelay)
		uploadTrigger = coalescer
	}

	docService := services.NewDocumentService(repo, uploadTrigger, store, cfg, logger)
	dispatcher := services.NewIntentDispatcher(repo, classifier, recorder, cfg.UploadDir, logger)
	searchService := services.NewSearchService(repo, store, gateway, logger)

	// Setup HTTP router
	handler := router.NewRouter(router.Dependencies{
		Documents:   docService,
		Runs:        vectorizer,
		Dispatcher:  dispatcher,
		Search:      searchService,
		MaxFileSize: cfg.MaxFileSize,
	}, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "vector_backend", cfg.VectorBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if coalescer != nil {
		coalescer.Stop()
	}

	runCtx, runCancel := context.WithTimeout(context.Background(), cfg.RunStopTimeout)
	defer runCancel()

	if err := vectorizer.Shutdown(runCtx); err != nil {
		logger.Warn("Vectorization run did not stop in time", "error", err)
	}

	logger.Info("Server exited")
}
