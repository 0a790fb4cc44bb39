package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"elearning-chat-platform/internal/logger"
	"elearning-chat-platform/internal/vectorstore"
)

// CleanupService periodically reconciles the vector index against the files
// collection and removes chunks whose file record no longer exists. Such
// orphans can appear if the process dies between a vector delete and the
// record delete.
type CleanupService struct {
	scheduler *gocron.Scheduler
	db        *mongo.Database
	store     *vectorstore.Store
	rag       *RAGService
}

func NewCleanupService(db *mongo.Database, store *vectorstore.Store, rag *RAGService) *CleanupService {
	return &CleanupService{
		scheduler: gocron.NewScheduler(time.UTC),
		db:        db,
		store:     store,
		rag:       rag,
	}
}

// Start schedules the orphan sweep every intervalMinutes.
func (c *CleanupService) Start(intervalMinutes int) {
	_, err := c.scheduler.Every(intervalMinutes).Minutes().Do(c.SweepOrphans)
	if err != nil {
		logger.Error("Failed to schedule orphan sweep", "error", err)
		return
	}
	c.scheduler.StartAsync()
	logger.Info("Orphan sweep scheduled", "interval_minutes", intervalMinutes)
}

func (c *CleanupService) Stop() {
	c.scheduler.Stop()
}

// SweepOrphans removes indexed chunks for files that have no record.
func (c *CleanupService) SweepOrphans() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fileIDs, err := c.store.FileIDs(ctx)
	if err != nil {
		logger.Error("Orphan sweep could not list indexed files", "error", err)
		return
	}

	var orphans int64
	for _, fileID := range fileIDs {
		n, err := c.db.Collection("files").CountDocuments(ctx, bson.M{"_id": fileID})
		if err != nil {
			logger.Error("Orphan sweep lookup failed", "file_id", fileID, "error", err)
			continue
		}
		if n > 0 {
			continue
		}
		removed, err := c.rag.DeleteFileDocuments(ctx, fileID)
		if err != nil {
			logger.Error("Orphan sweep delete failed", "file_id", fileID, "error", err)
			continue
		}
		orphans += removed
	}

	if orphans > 0 {
		logger.Info("Orphan sweep removed stale chunks", "chunks", orphans)
	}
}
