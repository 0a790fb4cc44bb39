package routes

import (
	"net/http"
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

type EnrollmentHandler struct {
	db    *mongo.Database
	perms *services.PermissionService
}

func NewEnrollmentHandler(db *mongo.Database, perms *services.PermissionService) *EnrollmentHandler {
	return &EnrollmentHandler{db: db, perms: perms}
}

// Enroll adds the calling student to a course. Enrolling twice is a no-op
// conflict, enforced by the unique index.
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}
	studentID, okID := middleware.GetUserObjectID(c)
	if !okID {
		utils.RespondWithUnauthorized(c, "Invalid user identity")
		return
	}

	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	exists, err := h.perms.CourseExists(ctx, courseID)
	if err != nil {
		utils.RespondWithInternalError(c, "Could not check course", nil)
		return
	}
	if !exists {
		utils.RespondWithNotFound(c, "Course not found")
		return
	}

	enrollment := models.Enrollment{
		CourseID:   courseID,
		StudentID:  studentID,
		EnrolledAt: time.Now(),
	}
	if _, err := h.db.Collection("enrollments").InsertOne(ctx, enrollment); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(c, http.StatusConflict, "already_enrolled", "Already enrolled in this course", nil)
			return
		}
		utils.RespondWithInternalError(c, "Could not enroll", nil)
		return
	}

	logger.Info("Student enrolled", "course_id", courseID, "student", studentID.Hex())
	c.JSON(http.StatusCreated, enrollment)
}

func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}
	studentID, okID := middleware.GetUserObjectID(c)
	if !okID {
		utils.RespondWithUnauthorized(c, "Invalid user identity")
		return
	}

	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	res, err := h.db.Collection("enrollments").DeleteOne(ctx, bson.M{
		"course_id":  courseID,
		"student_id": studentID,
	})
	if err != nil {
		utils.RespondWithInternalError(c, "Could not unenroll", nil)
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithNotFound(c, "Not enrolled in this course")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unenrolled", "course_id": courseID})
}

// Roster lists a course's enrolled students, for the owning teacher or an
// admin.
func (h *EnrollmentHandler) Roster(c *gin.Context) {
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

	if middleware.GetRole(c) != models.RoleAdmin {
		owns, err := h.perms.OwnsCourse(ctx, courseID, userID)
		if err != nil {
			utils.RespondWithInternalError(c, "Could not check course ownership", nil)
			return
		}
		if !owns {
			utils.RespondWithForbidden(c, "Only the course owner can view the roster")
			return
		}
	}

	cursor, err := h.db.Collection("enrollments").Find(ctx, bson.M{"course_id": courseID})
	if err != nil {
		utils.RespondWithInternalError(c, "Could not load roster", nil)
		return
	}
	enrollments := []models.Enrollment{}
	if err := cursor.All(ctx, &enrollments); err != nil {
		utils.RespondWithInternalError(c, "Could not load roster", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course_id": courseID, "enrollments": enrollments})
}
