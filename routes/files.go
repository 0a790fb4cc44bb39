package routes

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"elearning-chat-platform/internal/config"
	"elearning-chat-platform/internal/logger"
	"elearning-chat-platform/internal/queue"
	"elearning-chat-platform/middleware"
	"elearning-chat-platform/models"
	"elearning-chat-platform/services"
	"elearning-chat-platform/utils"
)

type FileHandler struct {
	db     *mongo.Database
	files  *services.FileService
	perms  *services.PermissionService
	client *asynq.Client
	cfg    *config.Config
}

func NewFileHandler(db *mongo.Database, files *services.FileService, perms *services.PermissionService, client *asynq.Client, cfg *config.Config) *FileHandler {
	return &FileHandler{db: db, files: files, perms: perms, client: client, cfg: cfg}
}

func fileIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("file_id"), 10, 64)
	if err != nil || id <= 0 {
		utils.RespondWithBadRequest(c, "Invalid file id", nil)
		return 0, false
	}
	return id, true
}

func (h *FileHandler) requireCourseOwner(c *gin.Context, courseID int64) bool {
	userID, ok := middleware.GetUserObjectID(c)
	if !ok {
		utils.RespondWithUnauthorized(c, "Invalid user identity")
		return false
	}
	if middleware.GetRole(c) == models.RoleAdmin {
		return true
	}

	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	owns, err := h.perms.OwnsCourse(ctx, courseID, userID)
	if err != nil {
		utils.RespondWithInternalError(c, "Could not check course ownership", nil)
		return false
	}
	if !owns {
		utils.RespondWithForbidden(c, "Only the course owner can manage materials")
		return false
	}
	return true
}

// Upload accepts a course-material file. Small files are indexed inline so
// the response carries the final state; larger files are queued and come
// back as pending.
func (h *FileHandler) Upload(c *gin.Context) {
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}
	if !h.requireCourseOwner(c, courseID) {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithBadRequest(c, "Missing file field", nil)
		return
	}
	src, err := header.Open()
	if err != nil {
		utils.RespondWithBadRequest(c, "Could not read uploaded file", nil)
		return
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, h.cfg.MaxFileSize+1))
	if err != nil {
		utils.RespondWithBadRequest(c, "Could not read uploaded file", nil)
		return
	}

	ctx, cancel := utils.WithLongTimeout(c.Request.Context())
	defer cancel()

	file, err := h.files.SaveUpload(ctx, courseID, header.Filename, header.Header.Get("Content-Type"), content)
	if err != nil {
		utils.RespondWithBadRequest(c, err.Error(), nil)
		return
	}

	if file.Size <= h.cfg.SyncProcessingLimit {
		if err := h.files.ProcessAndIndex(ctx, file.ID); err != nil {
			respondIndexingError(c, err)
			return
		}
		indexed, err := h.files.GetFile(ctx, file.ID)
		if err != nil {
			utils.RespondWithInternalError(c, "Could not load file record", nil)
			return
		}
		c.JSON(http.StatusCreated, models.UploadResponse{
			ID:            indexed.ID,
			Filename:      indexed.OriginalName,
			Status:        indexed.Status,
			ChunksIndexed: indexed.ChunksIndexed,
			Message:       "file indexed",
		})
		return
	}

	task, err := queue.NewIndexFileTask(file.ID, courseID)
	if err != nil {
		utils.RespondWithInternalError(c, "Could not queue file for indexing", nil)
		return
	}
	if _, err := h.client.Enqueue(task); err != nil {
		logger.Error("Failed to enqueue indexing task", "file_id", file.ID, "error", err)
		utils.RespondWithInternalError(c, "Could not queue file for indexing", nil)
		return
	}

	c.JSON(http.StatusAccepted, models.UploadResponse{
		ID:       file.ID,
		Filename: file.OriginalName,
		Status:   file.Status,
		Message:  "file accepted, indexing in progress",
	})
}

// respondIndexingError maps pipeline failures onto the error envelope.
// Extraction problems are the uploader's to fix; model and index outages
// are retryable.
func respondIndexingError(c *gin.Context, err error) {
	var exErr *services.ExtractionError
	switch {
	case services.AsExtractionError(err, &exErr):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, "extraction_failed", exErr.Reason, gin.H{
			"filename": exErr.Filename,
			"format":   exErr.Format,
		})
	case services.IsModelUnavailable(err):
		utils.RespondWithServiceUnavailable(c, "model_unavailable", "The embedding service is unavailable, try again later")
	case services.IsIndexError(err):
		utils.RespondWithServiceUnavailable(c, "index_unavailable", "The vector index is unavailable, try again later")
	default:
		utils.RespondWithInternalError(c, "Indexing failed", nil)
	}
}

func (h *FileHandler) List(c *gin.Context) {
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}
	userID, okID := middleware.GetUserObjectID(c)
	if !okID {
		utils.RespondWithUnauthorized(c, "Invalid user identity")
		return
	}

	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	allowed, err := h.perms.CanAccessCourse(ctx, courseID, userID, middleware.GetRole(c))
	if err != nil {
		utils.RespondWithInternalError(c, "Could not check course access", nil)
		return
	}
	if !allowed {
		utils.RespondWithForbidden(c, "No access to this course")
		return
	}

	files, err := h.files.ListFiles(ctx, courseID)
	if err != nil {
		utils.RespondWithInternalError(c, "Could not load files", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course_id": courseID, "files": files})
}

func (h *FileHandler) Delete(c *gin.Context) {
	fileID, ok := fileIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := utils.WithLongTimeout(c.Request.Context())
	defer cancel()

	file, err := h.files.GetFile(ctx, fileID)
	if err != nil {
		utils.RespondWithNotFound(c, "File not found")
		return
	}
	if !h.requireCourseOwner(c, file.CourseID) {
		return
	}

	if err := h.files.DeleteFile(ctx, fileID); err != nil {
		utils.RespondWithServiceUnavailable(c, "index_unavailable", "Could not remove the file from the index")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "file deleted", "file_id": fileID})
}

// Reindex queues a rebuild of a course's index from its stored files.
func (h *FileHandler) Reindex(c *gin.Context) {
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}
	if !h.requireCourseOwner(c, courseID) {
		return
	}

	task, err := queue.NewReindexCourseTask(courseID)
	if err != nil {
		utils.RespondWithInternalError(c, "Could not queue reindex", nil)
		return
	}
	if _, err := h.client.Enqueue(task); err != nil {
		logger.Error("Failed to enqueue reindex task", "course_id", courseID, "error", err)
		utils.RespondWithInternalError(c, "Could not queue reindex", nil)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "reindex queued", "course_id": courseID})
}
