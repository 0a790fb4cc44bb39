package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"elearning-chat-platform/internal/logger"
)

const (
	// TaskIndexFile runs the extract-chunk-embed-index pipeline for one
	// uploaded file. Queued for uploads above the synchronous size limit.
	TaskIndexFile = "file:index"

	// TaskReindexCourse rebuilds a whole course's index from its stored
	// files, used after embedding parameter changes.
	TaskReindexCourse = "course:reindex"
)

type IndexFilePayload struct {
	FileID   int64 `json:"file_id"`
	CourseID int64 `json:"course_id"`
}

type ReindexCoursePayload struct {
	CourseID int64 `json:"course_id"`
}

func NewIndexFileTask(fileID, courseID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(IndexFilePayload{FileID: fileID, CourseID: courseID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIndexFile, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

func NewReindexCourseTask(courseID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(ReindexCoursePayload{CourseID: courseID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReindexCourse, payload,
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("low"),
	), nil
}

// FileIndexer is implemented by the file service.
type FileIndexer interface {
	ProcessAndIndex(ctx context.Context, fileID int64) error
	ReindexCourse(ctx context.Context, courseID int64) error
}

// TaskProcessor dispatches queued tasks to the indexing pipeline.
type TaskProcessor struct {
	indexer FileIndexer
}

func NewTaskProcessor(indexer FileIndexer) *TaskProcessor {
	return &TaskProcessor{indexer: indexer}
}

func (p *TaskProcessor) HandleIndexFile(ctx context.Context, t *asynq.Task) error {
	var payload IndexFilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal %s payload: %v: %w", TaskIndexFile, err, asynq.SkipRetry)
	}

	logger.Info("Processing queued file", "file_id", payload.FileID, "course_id", payload.CourseID)
	return p.indexer.ProcessAndIndex(ctx, payload.FileID)
}

func (p *TaskProcessor) HandleReindexCourse(ctx context.Context, t *asynq.Task) error {
	var payload ReindexCoursePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal %s payload: %v: %w", TaskReindexCourse, err, asynq.SkipRetry)
	}

	logger.Info("Reindexing course", "course_id", payload.CourseID)
	return p.indexer.ReindexCourse(ctx, payload.CourseID)
}
