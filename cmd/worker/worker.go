package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"elearning-chat-platform/internal/ai"
	"elearning-chat-platform/internal/config"
	"elearning-chat-platform/internal/logger"
	"elearning-chat-platform/internal/queue"
	"elearning-chat-platform/internal/vectorstore"
	"elearning-chat-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.DBName)

	startCtx := context.Background()
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

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     config.RedisAddr(cfg),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			// indexing is model-bound, not CPU-bound, but each task holds a
			// file in memory; keep concurrency modest
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(fileService)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIndexFile, processor.HandleIndexFile)
	mux.HandleFunc(queue.TaskReindexCourse, processor.HandleReindexCourse)

	logger.Info("Starting indexing worker", "concurrency", 10, "redis", config.RedisAddr(cfg))
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
