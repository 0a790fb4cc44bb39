package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"elearning-chat-platform/internal/config"
	"elearning-chat-platform/internal/logger"
	"elearning-chat-platform/internal/telemetry"
	"elearning-chat-platform/models"
)

// FileService owns the lifecycle of uploaded course materials: validation,
// disk storage, the extract-chunk-embed-index pipeline and cleanup.
type FileService struct {
	db  *mongo.Database
	rag *RAGService
	cfg *config.Config
}

func NewFileService(db *mongo.Database, rag *RAGService, cfg *config.Config) *FileService {
	return &FileService{db: db, rag: rag, cfg: cfg}
}

func (s *FileService) files() *mongo.Collection {
	return s.db.Collection("files")
}

// SaveUpload validates and persists an uploaded file and creates its record
// in pending state. Indexing happens separately, synchronously or through
// the worker depending on size.
func (s *FileService) SaveUpload(ctx context.Context, courseID int64, originalName, contentType string, content []byte) (*models.CourseFile, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !SupportedExtensions[ext] {
		return nil, fmt.Errorf("unsupported file type %q, allowed: .pdf, .txt, .xlsx", ext)
	}
	if int64(len(content)) > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("file exceeds the %d MB limit", s.cfg.MaxFileSize/(1<<20))
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	storedName := uuid.New().String() + ext
	path := filepath.Join(s.cfg.UploadDir, storedName)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	id, err := NextSequence(ctx, s.db, "files")
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("allocate file id: %w", err)
	}

	file := &models.CourseFile{
		ID:           id,
		CourseID:     courseID,
		Filename:     storedName,
		OriginalName: originalName,
		FilePath:     path,
		Size:         int64(len(content)),
		ContentType:  contentType,
		Status:       models.FileStatusPending,
		UploadedAt:   time.Now(),
	}
	if _, err := s.files().InsertOne(ctx, file); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("record file: %w", err)
	}

	logger.Info("File stored", "file_id", id, "course_id", courseID, "name", originalName, "size", file.Size)
	return file, nil
}

// ProcessAndIndex runs the full indexing pipeline for a stored file. The
// file record tracks progress; a failure at any stage leaves the index free
// of the file's chunks and the record in failed state with the reason.
func (s *FileService) ProcessAndIndex(ctx context.Context, fileID int64) error {
	var file models.CourseFile
	if err := s.files().FindOne(ctx, bson.M{"_id": fileID}).Decode(&file); err != nil {
		return fmt.Errorf("load file %d: %w", fileID, err)
	}

	s.setStatus(ctx, fileID, models.FileStatusProcessing, "")

	content, err := os.ReadFile(file.FilePath)
	if err != nil {
		return s.fail(ctx, fileID, fmt.Errorf("read stored file: %w", err))
	}

	text, err := ExtractText(content, file.OriginalName)
	if err != nil {
		// an unreadable file will never extract; drop the stored bytes so
		// they cannot pile up as orphaned storage
		if rmErr := os.Remove(file.FilePath); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("Could not remove unextractable file", "path", file.FilePath, "error", rmErr)
		}
		return s.fail(ctx, fileID, err)
	}

	chunks, err := s.rag.IndexDocument(ctx, text, file.CourseID, file.ID, file.OriginalName)
	if err != nil {
		return s.fail(ctx, fileID, err)
	}

	now := time.Now()
	_, err = s.files().UpdateOne(ctx, bson.M{"_id": fileID}, bson.M{"$set": bson.M{
		"status":         models.FileStatusIndexed,
		"chunks_indexed": chunks,
		"indexed_at":     now,
		"error_message":  "",
	}})
	if err != nil {
		return fmt.Errorf("mark file %d indexed: %w", fileID, err)
	}

	if telemetry.ChunksIndexed != nil {
		telemetry.ChunksIndexed.Add(ctx, int64(chunks))
	}
	logger.Info("File indexed", "file_id", fileID, "course_id", file.CourseID, "chunks", chunks)
	return nil
}

func (s *FileService) fail(ctx context.Context, fileID int64, cause error) error {
	logger.Error("File indexing failed", "file_id", fileID, "error", cause)
	s.setStatus(ctx, fileID, models.FileStatusFailed, cause.Error())
	return cause
}

func (s *FileService) setStatus(ctx context.Context, fileID int64, status, errMsg string) {
	_, err := s.files().UpdateOne(ctx, bson.M{"_id": fileID}, bson.M{"$set": bson.M{
		"status":        status,
		"error_message": errMsg,
	}})
	if err != nil {
		logger.Error("Failed to update file status", "file_id", fileID, "status", status, "error", err)
	}
}

// GetFile loads one file record.
func (s *FileService) GetFile(ctx context.Context, fileID int64) (*models.CourseFile, error) {
	var file models.CourseFile
	if err := s.files().FindOne(ctx, bson.M{"_id": fileID}).Decode(&file); err != nil {
		return nil, err
	}
	return &file, nil
}

// ListFiles returns a course's file records, newest first.
func (s *FileService) ListFiles(ctx context.Context, courseID int64) ([]models.CourseFile, error) {
	cursor, err := s.files().Find(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	files := []models.CourseFile{}
	if err := cursor.All(ctx, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// DeleteFile removes a file's chunks from the index, its record and its
// bytes on disk, in that order. A failure to remove vectors aborts the
// delete so the catalog never claims chunks that are still retrievable.
func (s *FileService) DeleteFile(ctx context.Context, fileID int64) error {
	file, err := s.GetFile(ctx, fileID)
	if err != nil {
		return err
	}

	removed, err := s.rag.DeleteFileDocuments(ctx, fileID)
	if err != nil {
		return err
	}

	if _, err := s.files().DeleteOne(ctx, bson.M{"_id": fileID}); err != nil {
		return err
	}
	if err := os.Remove(file.FilePath); err != nil && !os.IsNotExist(err) {
		logger.Warn("Could not remove stored file", "path", file.FilePath, "error", err)
	}

	logger.Info("File deleted", "file_id", fileID, "chunks_removed", removed)
	return nil
}

// ReindexCourse drops a course's indexed chunks and rebuilds them from the
// stored files. Files that fail stay in failed state without stopping the
// rest of the rebuild.
func (s *FileService) ReindexCourse(ctx context.Context, courseID int64) error {
	if _, err := s.rag.DeleteCourseDocuments(ctx, courseID); err != nil {
		return err
	}

	files, err := s.ListFiles(ctx, courseID)
	if err != nil {
		return err
	}

	var failed int
	for _, f := range files {
		if err := s.ProcessAndIndex(ctx, f.ID); err != nil {
			failed++
		}
	}

	logger.Info("Course reindexed", "course_id", courseID, "files", len(files), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("reindex course %d: %d of %d files failed", courseID, failed, len(files))
	}
	return nil
}

// DeleteCourseFiles removes all of a course's materials: indexed chunks,
// file records and stored bytes.
func (s *FileService) DeleteCourseFiles(ctx context.Context, courseID int64) error {
	removed, err := s.rag.DeleteCourseDocuments(ctx, courseID)
	if err != nil {
		return err
	}

	files, err := s.ListFiles(ctx, courseID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f.FilePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("Could not remove stored file", "path", f.FilePath, "error", err)
		}
	}

	if _, err := s.files().DeleteMany(ctx, bson.M{"course_id": courseID}); err != nil {
		return err
	}

	logger.Info("Course files deleted", "course_id", courseID, "files", len(files), "chunks_removed", removed)
	return nil
}
