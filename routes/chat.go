package routes

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"elearning-chat-platform/internal/logger"
	"elearning-chat-platform/internal/telemetry"
	"elearning-chat-platform/middleware"
	"elearning-chat-platform/models"
	"elearning-chat-platform/services"
	"elearning-chat-platform/utils"
)

type ChatHandler struct {
	db    *mongo.Database
	rag   *services.RAGService
	perms *services.PermissionService
}

func NewChatHandler(db *mongo.Database, rag *services.RAGService, perms *services.PermissionService) *ChatHandler {
	return &ChatHandler{db: db, rag: rag, perms: perms}
}

func (h *ChatHandler) authorize(c *gin.Context, courseID int64) bool {
	userID, ok := middleware.GetUserObjectID(c)
	if !ok {
		utils.RespondWithUnauthorized(c, "Invalid user identity")
		return false
	}

	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	allowed, err := h.perms.CanAccessCourse(ctx, courseID, userID, middleware.GetRole(c))
	if err != nil {
		utils.RespondWithInternalError(c, "Could not check course access", nil)
		return false
	}
	if !allowed {
		utils.RespondWithForbidden(c, "Not enrolled in this course")
		return false
	}
	return true
}

func respondQueryError(c *gin.Context, err error) {
	switch {
	case services.IsModelUnavailable(err):
		utils.RespondWithServiceUnavailable(c, "model_unavailable", "The language model is unavailable, try again later")
	case services.IsIndexError(err):
		utils.RespondWithServiceUnavailable(c, "index_unavailable", "Course materials are temporarily unavailable, try again later")
	default:
		utils.RespondWithInternalError(c, "Could not answer the question", nil)
	}
}

// Ask answers a question against the course's indexed materials.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid chat payload", gin.H{"error": err.Error()})
		return
	}
	if !h.authorize(c, req.CourseID) {
		return
	}

	ctx, cancel := utils.WithLongTimeout(c.Request.Context())
	defer cancel()

	answer, retrieved, err := h.rag.Query(ctx, req.CourseID, req.Question, req.TopK)
	if err != nil {
		logger.Error("Chat query failed", "course_id", req.CourseID, "error", err)
		respondQueryError(c, err)
		return
	}

	h.recordMessage(c, req, answer, retrieved)
	if telemetry.QueriesServed != nil {
		telemetry.QueriesServed.Add(ctx, 1)
	}

	c.JSON(http.StatusOK, models.ChatResponse{
		Answer:          answer,
		CourseID:        req.CourseID,
		RetrievedChunks: retrieved,
		Timestamp:       time.Now(),
	})
}

// AskStream answers a question as a plain-text stream of fragments. The
// client going away cancels generation between fragments.
func (h *ChatHandler) AskStream(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid chat payload", gin.H{"error": err.Error()})
		return
	}
	if !h.authorize(c, req.CourseID) {
		return
	}

	ctx, cancel := utils.WithLongTimeout(c.Request.Context())
	defer cancel()

	stream, retrieved, err := h.rag.QueryStream(ctx, req.CourseID, req.Question, req.TopK)
	if err != nil {
		logger.Error("Chat stream failed to start", "course_id", req.CourseID, "error", err)
		respondQueryError(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	var full strings.Builder
	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			logger.Info("Client disconnected mid-stream", "course_id", req.CourseID)
			return
		default:
		}

		fragment, ok := stream.Recv()
		if !ok {
			break
		}
		full.WriteString(fragment)
		if _, err := c.Writer.WriteString(fragment); err != nil {
			return
		}
		c.Writer.Flush()
	}

	if err := stream.Err(); err != nil {
		// headers are gone; all we can do is log and cut the stream short
		logger.Error("Chat stream failed mid-answer", "course_id", req.CourseID, "error", err)
		return
	}

	h.recordMessage(c, req, full.String(), retrieved)
	if telemetry.QueriesServed != nil {
		telemetry.QueriesServed.Add(ctx, 1)
	}
}

func (h *ChatHandler) recordMessage(c *gin.Context, req models.ChatRequest, answer string, retrieved int) {
	userID, ok := middleware.GetUserObjectID(c)
	if !ok {
		return
	}

	// the request context may already be finished after streaming
	ctx, cancel := utils.WithTimeout(context.Background())
	defer cancel()

	msg := models.Message{
		UserID:          userID,
		UserName:        middleware.GetUsername(c),
		CourseID:        req.CourseID,
		Question:        req.Question,
		Answer:          answer,
		RetrievedChunks: retrieved,
		Timestamp:       time.Now(),
	}
	if _, err := h.db.Collection("messages").InsertOne(ctx, msg); err != nil {
		logger.Warn("Could not record chat message", "course_id", req.CourseID, "error", err)
	}
}

// History returns the caller's past exchanges for one course, newest first.
func (h *ChatHandler) History(c *gin.Context) {
	courseID, err := strconv.ParseInt(c.Query("course_id"), 10, 64)
	if err != nil || courseID <= 0 {
		utils.RespondWithBadRequest(c, "Invalid course_id", nil)
		return
	}
	if !h.authorize(c, courseID) {
		return
	}
	userID, _ := middleware.GetUserObjectID(c)

	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	cursor, err := h.db.Collection("messages").Find(ctx,
		bson.M{"course_id": courseID, "user_id": userID},
		options.Find().SetSort(bson.M{"timestamp": -1}).SetLimit(limit),
	)
	if err != nil {
		utils.RespondWithInternalError(c, "Could not load chat history", nil)
		return
	}
	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		utils.RespondWithInternalError(c, "Could not load chat history", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course_id": courseID, "messages": messages})
}
