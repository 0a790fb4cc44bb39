package main

import (
	"context"
	"flag"
	"log"

	"go.mongodb.org/mongo-driver/bson"

	"elearning-chat-platform/internal/ai"
	"elearning-chat-platform/internal/config"
	"elearning-chat-platform/internal/logger"
	"elearning-chat-platform/internal/vectorstore"
	"elearning-chat-platform/models"
	"elearning-chat-platform/services"
)

// Rebuilds the vector index from the stored files. Run after changing the
// embedding model, chunk size or similarity settings; delete the old
// persist directory and index manifest first so the new parameters apply.
func main() {
	courseID := flag.Int64("course", 0, "reindex a single course (0 = all courses)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	ctx := context.Background()
	defer mongoClient.Disconnect(ctx)
	db := mongoClient.Database(cfg.DBName)

	store, err := vectorstore.Open(ctx, cfg, db)
	if err != nil {
		log.Fatal("Failed to open vector index:", err)
	}

	geminiClient, err := ai.NewGeminiClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	embedder, generator := services.NewGeminiBackend(geminiClient)
	chunker := services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	ragService := services.NewRAGService(embedder, generator, store, chunker, cfg.TopKRetrieval)
	fileService := services.NewFileService(db, ragService, cfg)

	var courseIDs []int64
	if *courseID > 0 {
		courseIDs = []int64{*courseID}
	} else {
		cursor, err := db.Collection("courses").Find(ctx, bson.M{})
		if err != nil {
			log.Fatal("Failed to list courses:", err)
		}
		var courses []models.Course
		if err := cursor.All(ctx, &courses); err != nil {
			log.Fatal("Failed to list courses:", err)
		}
		for _, c := range courses {
			courseIDs = append(courseIDs, c.ID)
		}
	}

	var failures int
	for _, id := range courseIDs {
		logger.Info("Reindexing course", "course_id", id)
		if err := fileService.ReindexCourse(ctx, id); err != nil {
			logger.Error("Reindex failed", "course_id", id, "error", err)
			failures++
		}
	}

	if failures > 0 {
		log.Fatalf("Reindex finished with %d failed courses", failures)
	}
	logger.Info("Reindex complete", "courses", len(courseIDs))
}
