package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"elearning-chat-platform/internal/ai"
	"elearning-chat-platform/internal/config"
	"elearning-chat-platform/internal/logger"
	"elearning-chat-platform/internal/telemetry"
	"elearning-chat-platform/internal/vectorstore"
	"elearning-chat-platform/middleware"
	"elearning-chat-platform/routes"
	"elearning-chat-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracing := telemetry.InitTracer("elearning-chat-platform")
	telemetry.InitMetrics()

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	store, err := vectorstore.Open(startCtx, cfg, db)
	if err != nil {
		log.Fatal("Failed to open vector index:", err)
	}

	geminiClient, err := ai.NewGeminiClient(startCtx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	embedder, generator := services.NewGeminiBackend(geminiClient)
	chunker := services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	ragService := services.NewRAGService(embedder, generator, store, chunker, cfg.TopKRetrieval)
	fileService := services.NewFileService(db, ragService, cfg)
	permService := services.NewPermissionService(db)

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.RedisAddr(cfg),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	cleanup := services.NewCleanupService(db, store, ragService)
	cleanup.Start(cfg.OrphanSweepMinutes)
	defer cleanup.Stop()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize + 1<<20))

	routes.Register(router, routes.Dependencies{
		Cfg:   cfg,
		DB:    db,
		RDB:   rdb,
		Files: fileService,
		RAG:   ragService,
		Perms: permService,
		Queue: queueClient,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("Tracing shutdown failed", "error", err)
	}

	logger.Info("Server exited")
}
