package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"elearning-chat-platform/internal/logger"
	"elearning-chat-platform/middleware"
	"elearning-chat-platform/models"
	"elearning-chat-platform/services"
	"elearning-chat-platform/utils"
)

type CourseHandler struct {
	db    *mongo.Database
	files *services.FileService
	rag   *services.RAGService
	perms *services.PermissionService
}

func NewCourseHandler(db *mongo.Database, files *services.FileService, rag *services.RAGService, perms *services.PermissionService) *CourseHandler {
	return &CourseHandler{db: db, files: files, rag: rag, perms: perms}
}

func courseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.RespondWithBadRequest(c, "Invalid course id", nil)
		return 0, false
	}
	return id, true
}

func (h *CourseHandler) Create(c *gin.Context) {
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid course payload", gin.H{"error": err.Error()})
		return
	}

	teacherID, ok := middleware.GetUserObjectID(c)
	if !ok {
		utils.RespondWithUnauthorized(c, "Invalid user identity")
		return
	}

	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	id, err := services.NextSequence(ctx, h.db, "courses")
	if err != nil {
		utils.RespondWithInternalError(c, "Could not allocate course id", nil)
		return
	}

	now := time.Now()
	course := models.Course{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		TeacherID:   teacherID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := h.db.Collection("courses").InsertOne(ctx, course); err != nil {
		utils.RespondWithInternalError(c, "Could not create course", nil)
		return
	}

	logger.Info("Course created", "course_id", id, "teacher", teacherID.Hex())
	c.JSON(http.StatusCreated, course)
}

// List returns the courses visible to the caller: all for admins, owned
// for teachers, enrolled for students.
func (h *CourseHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserObjectID(c)
	if !ok {
		utils.RespondWithUnauthorized(c, "Invalid user identity")
		return
	}

	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	var filter bson.M
	switch middleware.GetRole(c) {
	case models.RoleAdmin:
		filter = bson.M{}
	case models.RoleTeacher:
		filter = bson.M{"teacher_id": userID}
	default:
		cursor, err := h.db.Collection("enrollments").Find(ctx, bson.M{"student_id": userID})
		if err != nil {
			utils.RespondWithInternalError(c, "Could not load enrollments", nil)
			return
		}
		var enrollments []models.Enrollment
		if err := cursor.All(ctx, &enrollments); err != nil {
			utils.RespondWithInternalError(c, "Could not load enrollments", nil)
			return
		}
		ids := make([]int64, len(enrollments))
		for i, e := range enrollments {
			ids[i] = e.CourseID
		}
		filter = bson.M{"_id": bson.M{"$in": ids}}
	}

	cursor, err := h.db.Collection("courses").Find(ctx, filter)
	if err != nil {
		utils.RespondWithInternalError(c, "Could not load courses", nil)
		return
	}
	courses := []models.Course{}
	if err := cursor.All(ctx, &courses); err != nil {
		utils.RespondWithInternalError(c, "Could not load courses", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *CourseHandler) Get(c *gin.Context) {
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

	var course models.Course
	if err := h.db.Collection("courses").FindOne(ctx, bson.M{"_id": courseID}).Decode(&course); err != nil {
		utils.RespondWithNotFound(c, "Course not found")
		return
	}

	chunks, err := h.rag.CourseChunkCount(ctx, courseID)
	if err != nil {
		logger.Warn("Could not count indexed chunks", "course_id", courseID, "error", err)
		chunks = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"course":         course,
		"indexed_chunks": chunks,
	})
}

// Delete removes a course and everything hanging off it: indexed chunks,
// stored files, enrollments and chat history. Vectors go first so a partial
// failure can only leave relational leftovers, which the sweep tolerates.
func (h *CourseHandler) Delete(c *gin.Context) {
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}
	userID, okID := middleware.GetUserObjectID(c)
	if !okID {
		utils.RespondWithUnauthorized(c, "Invalid user identity")
		return
	}

	ctx, cancel := utils.WithLongTimeout(c.Request.Context())
	defer cancel()

	if middleware.GetRole(c) != models.RoleAdmin {
		owns, err := h.perms.OwnsCourse(ctx, courseID, userID)
		if err != nil {
			utils.RespondWithInternalError(c, "Could not check course ownership", nil)
			return
		}
		if !owns {
			utils.RespondWithForbidden(c, "Only the course owner can delete it")
			return
		}
	}

	exists, err := h.perms.CourseExists(ctx, courseID)
	if err != nil {
		utils.RespondWithInternalError(c, "Could not check course", nil)
		return
	}
	if !exists {
		utils.RespondWithNotFound(c, "Course not found")
		return
	}

	if err := h.files.DeleteCourseFiles(ctx, courseID); err != nil {
		utils.RespondWithServiceUnavailable(c, "index_unavailable", "Could not remove course materials from the index")
		return
	}

	if _, err := h.db.Collection("enrollments").DeleteMany(ctx, bson.M{"course_id": courseID}); err != nil {
		utils.RespondWithInternalError(c, "Could not remove enrollments", nil)
		return
	}
	if _, err := h.db.Collection("messages").DeleteMany(ctx, bson.M{"course_id": courseID}); err != nil {
		utils.RespondWithInternalError(c, "Could not remove chat history", nil)
		return
	}
	if _, err := h.db.Collection("courses").DeleteOne(ctx, bson.M{"_id": courseID}); err != nil {
		utils.RespondWithInternalError(c, "Could not remove course", nil)
		return
	}

	logger.Info("Course deleted", "course_id", courseID)
	c.JSON(http.StatusOK, gin.H{"message": "course deleted", "course_id": courseID})
}
